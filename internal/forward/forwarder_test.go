package forward

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/circuitbreaker"
	"github.com/igoorng/webhook/pkg/retry"
)

type fakeSink struct {
	name     string
	failures int
	panics   bool

	mu     sync.Mutex
	calls  int
	sent   []int64
	closed bool
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Send(_ context.Context, msg store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panics {
		panic("sink exploded")
	}
	if s.calls <= s.failures {
		return errors.New("unavailable")
	}
	s.sent = append(s.sent, msg.ID)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) snapshot() (calls int, sent []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]int64{}, s.sent...)
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func runForwarder(t *testing.T, f *Forwarder) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("forwarder did not stop")
		}
	}
}

func TestForwarderDeliversToEverySink(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b", failures: 1}
	f := New(Options{QueueSize: 8, Workers: 1, Retry: fastRetry(3)}, logger.NopLogger(), a, b)
	stop := runForwarder(t, f)

	require.True(t, f.Offer(context.Background(), store.Message{ID: 1}))
	require.True(t, f.Offer(context.Background(), store.Message{ID: 2}))

	assert.Eventually(t, func() bool {
		_, sentA := a.snapshot()
		_, sentB := b.snapshot()
		return len(sentA) == 2 && len(sentB) == 2
	}, time.Second, 5*time.Millisecond)

	stop()

	_, sentA := a.snapshot()
	assert.Equal(t, []int64{1, 2}, sentA)
	callsB, _ := b.snapshot()
	assert.Equal(t, 3, callsB)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestForwarderGivesUpAfterRetries(t *testing.T) {
	sink := &fakeSink{name: "down", failures: 100}
	f := New(Options{QueueSize: 1, Workers: 1, Retry: fastRetry(3)}, logger.NopLogger(), sink)
	stop := runForwarder(t, f)
	defer stop()

	require.True(t, f.Offer(context.Background(), store.Message{ID: 1}))

	assert.Eventually(t, func() bool {
		calls, _ := sink.snapshot()
		return calls == 3
	}, time.Second, 5*time.Millisecond)
}

func TestForwarderCircuitBreakerStopsRetrying(t *testing.T) {
	sink := &fakeSink{name: "flaky", failures: 100}
	cb := circuitbreaker.Config{MaxRequests: 1, Timeout: time.Minute, FailureRatio: 0.5, MinRequests: 2}
	f := New(Options{QueueSize: 4, Workers: 1, Retry: fastRetry(5), CircuitBreaker: &cb}, logger.NopLogger(), sink)
	stop := runForwarder(t, f)
	defer stop()

	require.True(t, f.Offer(context.Background(), store.Message{ID: 1}))
	require.True(t, f.Offer(context.Background(), store.Message{ID: 2}))

	time.Sleep(100 * time.Millisecond)
	calls, _ := sink.snapshot()
	assert.Equal(t, 2, calls, "breaker opens after two failures and short-circuits the rest")
}

func TestForwarderSurvivesPanickingSink(t *testing.T) {
	bad := &fakeSink{name: "bad", panics: true}
	f := New(Options{QueueSize: 4, Workers: 1, Retry: fastRetry(1)}, logger.NopLogger(), bad)
	stop := runForwarder(t, f)
	defer stop()

	require.True(t, f.Offer(context.Background(), store.Message{ID: 1}))
	require.True(t, f.Offer(context.Background(), store.Message{ID: 2}))

	assert.Eventually(t, func() bool {
		calls, _ := bad.snapshot()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}

func TestOfferDropsWhenQueueFull(t *testing.T) {
	sink := &fakeSink{name: "a"}
	f := New(Options{QueueSize: 1, Workers: 1}, logger.NopLogger(), sink)

	assert.True(t, f.Offer(context.Background(), store.Message{ID: 1}))
	assert.False(t, f.Offer(context.Background(), store.Message{ID: 2}))
}

func TestForwarderWithoutSinks(t *testing.T) {
	f := New(Options{}, logger.NopLogger())
	assert.False(t, f.Enabled())
	assert.False(t, f.Offer(context.Background(), store.Message{ID: 1}))

	stop := runForwarder(t, f)
	stop()
}

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error { return nil }

func TestKafkaSinkSend(t *testing.T) {
	w := &fakeKafkaWriter{}
	sink := NewKafkaSink(w, "webhooks")

	msg := store.Message{ID: 12, Timestamp: "2024-01-01 00:00:00", Data: json.RawMessage(`{"a":1}`), SourceIP: "1.2.3.4"}
	require.NoError(t, sink.Send(context.Background(), msg))

	require.Len(t, w.messages, 1)
	km := w.messages[0]
	assert.Equal(t, "webhooks", km.Topic)
	assert.Equal(t, "12", string(km.Key))
	assert.JSONEq(t, `{"id":12,"timestamp":"2024-01-01 00:00:00","data":{"a":1},"source_ip":"1.2.3.4"}`, string(km.Value))
	assert.Equal(t, "message_id", km.Headers[0].Key)

	w.err = errors.New("broker down")
	assert.ErrorContains(t, sink.Send(context.Background(), msg), "broker down")
}

type fakePublisher struct {
	channel string
	payload interface{}
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload = message
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (p *fakePublisher) Close() error { return nil }

func TestRedisSinkSend(t *testing.T) {
	p := &fakePublisher{}
	sink := NewRedisSink(p, "webhook:messages")

	require.NoError(t, sink.Send(context.Background(), store.Message{ID: 3, Data: json.RawMessage(`{}`)}))
	assert.Equal(t, "webhook:messages", p.channel)
	payload, ok := p.payload.([]byte)
	require.True(t, ok)
	assert.Contains(t, string(payload), `"id":3`)

	p.err = errors.New("connection refused")
	assert.ErrorContains(t, sink.Send(context.Background(), store.Message{ID: 4}), "connection refused")
}
