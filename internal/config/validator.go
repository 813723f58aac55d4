package config

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateStorage(cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if err := validateWebhook(cfg.Webhook); err != nil {
		errs = append(errs, err)
	}

	if err := validateStream(cfg.Stream); err != nil {
		errs = append(errs, err)
	}

	if err := validateAuth(cfg.Auth); err != nil {
		errs = append(errs, err)
	}

	if err := validateForward(cfg.Forward); err != nil {
		errs = append(errs, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout < 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		}
	}

	return nil
}

func validateStorage(cfg StorageConfig) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return &ValidationError{
			Field:   "storage.data_dir",
			Message: "data directory is required",
		}
	}

	if cfg.MaxActiveMessages < 1 {
		return &ValidationError{
			Field:   "storage.max_active_messages",
			Message: fmt.Sprintf("max active messages must be positive, got %d", cfg.MaxActiveMessages),
		}
	}

	if cfg.PageSize < 1 {
		return &ValidationError{
			Field:   "storage.page_size",
			Message: fmt.Sprintf("page size must be positive, got %d", cfg.PageSize),
		}
	}

	return nil
}

func validateWebhook(cfg WebhookConfig) error {
	if cfg.MaxBodyBytes <= 0 {
		return &ValidationError{
			Field:   "webhook.max_body_bytes",
			Message: "max body size must be positive",
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return &ValidationError{
				Field:   "webhook.rate_limit.rps",
				Message: "rps must be positive when rate limiting is enabled",
			}
		}
		if cfg.RateLimit.Burst < 1 {
			return &ValidationError{
				Field:   "webhook.rate_limit.burst",
				Message: "burst must be at least 1 when rate limiting is enabled",
			}
		}
	}

	return nil
}

func validateStream(cfg StreamConfig) error {
	if cfg.HeartbeatInterval <= 0 {
		return &ValidationError{
			Field:   "stream.heartbeat_interval",
			Message: "heartbeat interval must be positive",
		}
	}

	if cfg.SubscriberBuffer < 1 {
		return &ValidationError{
			Field:   "stream.subscriber_buffer",
			Message: "subscriber buffer must be at least 1",
		}
	}

	return nil
}

func validateAuth(cfg AuthConfig) error {
	if cfg.Username == "" {
		return &ValidationError{
			Field:   "auth.username",
			Message: "admin username is required",
		}
	}

	if cfg.Password == "" && cfg.PasswordHash == "" {
		return &ValidationError{
			Field:   "auth.password",
			Message: "either auth.password or auth.password_hash is required",
		}
	}

	if cfg.SessionTTL <= 0 {
		return &ValidationError{
			Field:   "auth.session_ttl",
			Message: "session ttl must be positive",
		}
	}

	return nil
}

func validateForward(cfg ForwardConfig) error {
	if !cfg.Kafka.Enabled && !cfg.Redis.Enabled {
		return nil
	}

	if cfg.QueueSize < 1 {
		return &ValidationError{
			Field:   "forward.queue_size",
			Message: "queue size must be at least 1",
		}
	}

	if cfg.Workers < 1 {
		return &ValidationError{
			Field:   "forward.workers",
			Message: "at least one forward worker is required",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "forward.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "forward.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Kafka.Enabled {
		if err := validateKafka(cfg.Kafka); err != nil {
			return err
		}
	}

	if cfg.Redis.Enabled {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "forward.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("forward.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "forward.kafka.topic",
			Message: "Kafka topic is required",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "forward.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "forward.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.Channel == "" {
		return &ValidationError{
			Field:   "forward.redis.channel",
			Message: "Redis channel is required",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if cfg.Level != "" && !validLevels[strings.ToLower(cfg.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if cfg.Format != "" && !validFormats[strings.ToLower(cfg.Format)] {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console)", cfg.Format),
		}
	}

	return nil
}
