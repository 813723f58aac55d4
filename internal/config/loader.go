package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/igoorng/webhook/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.read_header_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)

	viper.SetDefault("storage.data_dir", constants.DefaultDataDir)
	viper.SetDefault("storage.max_active_messages", constants.DefaultMaxActiveMessages)
	viper.SetDefault("storage.page_size", constants.DefaultPageSize)

	viper.SetDefault("webhook.enabled", true)
	viper.SetDefault("webhook.max_body_bytes", constants.DefaultMaxBodyBytes)
	viper.SetDefault("webhook.rate_limit.rps", 10.0)
	viper.SetDefault("webhook.rate_limit.burst", 20)
	viper.SetDefault("webhook.rate_limit.cleanup_interval", 300)
	viper.SetDefault("webhook.rate_limit.max_age", 600)

	viper.SetDefault("stream.heartbeat_interval", constants.DefaultHeartbeat)
	viper.SetDefault("stream.subscriber_buffer", constants.DefaultSubscriberBuffer)

	viper.SetDefault("auth.username", "admin")
	viper.SetDefault("auth.session_ttl", constants.DefaultSessionTTL)
	viper.SetDefault("auth.cookie_name", constants.DefaultCookieName)

	viper.SetDefault("forward.queue_size", constants.DefaultForwardQueueSize)
	viper.SetDefault("forward.workers", constants.DefaultForwardWorkers)
	viper.SetDefault("forward.retry.max_attempts", 3)
	viper.SetDefault("forward.retry.initial_interval", 500*time.Millisecond)
	viper.SetDefault("forward.retry.max_interval", 10*time.Second)
	viper.SetDefault("forward.retry.multiplier", 2.0)
	viper.SetDefault("forward.kafka.topic", "webhook_messages")
	viper.SetDefault("forward.redis.port", 6379)
	viper.SetDefault("forward.redis.channel", "webhook:messages")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	viper.BindEnv("storage.data_dir", "DATA_DIR")
	viper.BindEnv("storage.max_active_messages", "MAX_ACTIVE_MESSAGES")
	viper.BindEnv("storage.page_size", "PAGE_SIZE")

	viper.BindEnv("webhook.secret", "DEFAULT_WEBHOOK_SECRET")
	viper.BindEnv("webhook.enabled", "DEFAULT_WEBHOOK_ENABLED")
	viper.BindEnv("webhook.event_filter", "DEFAULT_EVENT_FILTER")
	viper.BindEnv("webhook.filter_expression", "WEBHOOK_FILTER_EXPRESSION")
	viper.BindEnv("webhook.max_body_bytes", "WEBHOOK_MAX_BODY_BYTES")

	viper.BindEnv("stream.subscriber_buffer", "STREAM_SUBSCRIBER_BUFFER")

	viper.BindEnv("auth.username", "ADMIN_USERNAME")
	viper.BindEnv("auth.password", "ADMIN_PASSWORD")
	viper.BindEnv("auth.password_hash", "ADMIN_PASSWORD_HASH")
	viper.BindEnv("auth.session_ttl", "AUTH_SESSION_TTL")
	viper.BindEnv("auth.secure_cookie", "AUTH_SECURE_COOKIE")

	viper.BindEnv("forward.kafka.enabled", "FORWARD_KAFKA_ENABLED")
	viper.BindEnv("forward.kafka.brokers", "FORWARD_KAFKA_BROKERS")
	viper.BindEnv("forward.kafka.topic", "FORWARD_KAFKA_TOPIC")
	viper.BindEnv("forward.redis.enabled", "FORWARD_REDIS_ENABLED")
	viper.BindEnv("forward.redis.host", "FORWARD_REDIS_HOST")
	viper.BindEnv("forward.redis.port", "FORWARD_REDIS_PORT")
	viper.BindEnv("forward.redis.password", "FORWARD_REDIS_PASSWORD")
	viper.BindEnv("forward.redis.channel", "FORWARD_REDIS_CHANNEL")

	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("logging.format", "LOG_FORMAT")

	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("FORWARD_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Forward.Kafka.Brokers = brokers
		}
	}

	// SSE_HEARTBEAT_INTERVAL is historically a bare number of seconds.
	if raw := os.Getenv("SSE_HEARTBEAT_INTERVAL"); raw != "" {
		interval, err := parseSeconds(raw)
		if err != nil {
			return fmt.Errorf("invalid SSE_HEARTBEAT_INTERVAL %q: %w", raw, err)
		}
		cfg.Stream.HeartbeatInterval = interval
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(strings.TrimSpace(raw))
}
