package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/igoorng/webhook/internal/config"
	"github.com/igoorng/webhook/internal/forward"
	"github.com/igoorng/webhook/internal/logger"
)

// Base owns the outbound connections shared by the service: the forwarding
// sinks and the Redis client the health check reuses.
type Base struct {
	Config *config.Config
	Logger logger.Logger
	Redis  *redis.Client
	Sinks  []forward.Sink
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitSinks connects every enabled forwarding sink. On failure the sinks
// opened so far are closed again.
func (b *Base) InitSinks(ctx context.Context) error {
	fwd := b.Config.Forward

	if fwd.Kafka.Enabled {
		b.Sinks = append(b.Sinks, forward.NewKafkaSink(NewKafkaWriter(fwd.Kafka), fwd.Kafka.Topic))
		b.Logger.InfowCtx(ctx, "Kafka forwarding enabled", "brokers", fwd.Kafka.Brokers, "topic", fwd.Kafka.Topic)
	}

	if fwd.Redis.Enabled {
		rdb, err := InitRedis(ctx, fwd.Redis)
		if err != nil {
			b.CloseSinks()
			return err
		}
		b.Redis = rdb
		b.Sinks = append(b.Sinks, forward.NewRedisSink(rdb, fwd.Redis.Channel))
		b.Logger.InfowCtx(ctx, "Redis forwarding enabled",
			"addr", fmt.Sprintf("%s:%d", fwd.Redis.Host, fwd.Redis.Port),
			"channel", fwd.Redis.Channel,
		)
	}

	return nil
}

// CloseSinks is only for sinks that never reached a running forwarder,
// which otherwise closes them itself.
func (b *Base) CloseSinks() error {
	var errs []error
	for _, s := range b.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink close error: %w", s.Name(), err))
		}
	}
	b.Sinks = nil
	b.Redis = nil
	return errors.Join(errs...)
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application...")

	var errs []error
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown errors: %w", err)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
