// Package forward relays stored messages to external sinks in the
// background. Delivery is best-effort and never blocks ingestion.
package forward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"

	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/circuitbreaker"
	apperrors "github.com/igoorng/webhook/pkg/errors"
	"github.com/igoorng/webhook/pkg/logging"
	"github.com/igoorng/webhook/pkg/metrics"
	"github.com/igoorng/webhook/pkg/retry"
)

type Options struct {
	QueueSize      int
	Workers        int
	Retry          retry.Policy
	CircuitBreaker *circuitbreaker.Config
}

type guardedSink struct {
	sink    Sink
	breaker *circuitbreaker.Wrapper
}

type item struct {
	msg  store.Message
	span trace.SpanContext
}

type Forwarder struct {
	sinks   []guardedSink
	queue   chan item
	workers int
	policy  retry.Policy
	logger  logger.Logger
}

// New builds a forwarder over sinks. With no sinks it accepts nothing and
// Run only waits for cancellation.
func New(opts Options, log logger.Logger, sinks ...Sink) *Forwarder {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	guarded := make([]guardedSink, 0, len(sinks))
	for _, s := range sinks {
		g := guardedSink{sink: s}
		if opts.CircuitBreaker != nil {
			cfg := *opts.CircuitBreaker
			cfg.Name = "forward_" + s.Name()
			cfg.OnStateChange = func(name string, from, to gobreaker.State) {
				log.Warnw("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			}
			g.breaker = circuitbreaker.NewWrapper(cfg)
		}
		guarded = append(guarded, g)
	}

	return &Forwarder{
		sinks:   guarded,
		queue:   make(chan item, opts.QueueSize),
		workers: opts.Workers,
		policy:  opts.Retry,
		logger:  log,
	}
}

func (f *Forwarder) Enabled() bool {
	return len(f.sinks) > 0
}

// Offer queues msg for delivery and reports whether it was accepted. A full
// queue drops the message.
func (f *Forwarder) Offer(ctx context.Context, msg store.Message) bool {
	if !f.Enabled() {
		return false
	}

	it := item{
		msg:  msg,
		span: trace.SpanContextFromContext(ctx),
	}

	select {
	case f.queue <- it:
		metrics.SetForwardQueueSize(len(f.queue))
		return true
	default:
		metrics.IncForwarded("queue", "dropped")
		f.logger.WarnwCtx(ctx, "Forward queue full, dropping message",
			"message_id", msg.ID,
			"queue_size", cap(f.queue),
		)
		return false
	}
}

// Run processes the queue until ctx is done, then closes the sinks.
func (f *Forwarder) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < f.workers && f.Enabled(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.worker(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	var errs []error
	for _, g := range f.sinks {
		if err := g.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink close error: %w", g.sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Forwarder) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-f.queue:
			metrics.SetForwardQueueSize(len(f.queue))
			f.process(ctx, it)
		}
	}
}

func (f *Forwarder) process(ctx context.Context, it item) {
	msgCtx := logging.WithMessageID(ctx, it.msg.ID)
	if it.span.IsValid() {
		msgCtx = trace.ContextWithRemoteSpanContext(msgCtx, it.span)
	}

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.RecoverPanic(r)
			f.logger.ErrorwCtx(msgCtx, "Panic while forwarding message", "error", err)
		}
	}()

	for _, g := range f.sinks {
		f.deliver(msgCtx, g, it.msg)
	}
}

func (f *Forwarder) deliver(ctx context.Context, g guardedSink, msg store.Message) {
	name := g.sink.Name()
	start := time.Now()

	send := func() error {
		if g.breaker == nil {
			return g.sink.Send(ctx, msg)
		}
		err := g.breaker.Execute(ctx, func(ctx context.Context) error {
			return g.sink.Send(ctx, msg)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return retry.NewFatalError(err)
		}
		return err
	}

	err := retry.RetryWithCallback(ctx, f.policy, send, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt(name)
		f.logger.WarnwCtx(ctx, "Forwarding failed, retrying",
			"sink", name,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})

	metrics.ObserveForwardDuration(name, time.Since(start))

	if err != nil {
		metrics.IncForwarded(name, "error")
		f.logger.ErrorwCtx(ctx, "Failed to forward message", "sink", name, "error", err)
		return
	}
	metrics.IncForwarded(name, "success")
	f.logger.DebugwCtx(ctx, "Message forwarded", "sink", name)
}
