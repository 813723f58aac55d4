package constants

import "time"

const (
	ServiceName = "webhook-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// TimestampLayout is the on-disk message timestamp format. It sorts
	// lexically in chronological order.
	TimestampLayout = "2006-01-02 15:04:05"
	DayLayout       = "2006-01-02"
)

const (
	ActiveMessagesFile = "messages.json"
	SettingsFile       = "settings.json"
	SequenceFile       = "sequence.json"
	ArchiveDir         = "archive"
	ArchiveFilePrefix  = "messages_"
	ArchiveFileSuffix  = ".json"
	CorruptShardSuffix = ".corrupt-"
)

const (
	DefaultDataDir           = "webhook_data"
	DefaultMaxActiveMessages = 1000
	DefaultPageSize          = 20
	DefaultMaxBodyBytes      = 32 << 20
	DefaultHeartbeat         = 30 * time.Second
	DefaultSubscriberBuffer  = 64
	DefaultSessionTTL        = 24 * time.Hour
	DefaultCookieName        = "webhook_session"
	DefaultForwardQueueSize  = 256
	DefaultForwardWorkers    = 2
	RecentMessagesWindow     = 24
)

const (
	PathHealth  = "/health"
	PathMetrics = "/metrics"
	PathSwagger = "/swagger/*any"
	PathStream  = "/api/stream"
	PathWS      = "/api/ws"
)

const (
	HeaderHubSignature256    = "X-Hub-Signature-256"
	HeaderSignature          = "X-Signature"
	HeaderGitHubSignature256 = "X-GitHub-Signature-256"
	HeaderEventType          = "X-Event-Type"
	HeaderGitHubEvent        = "X-GitHub-Event"
	HeaderRequestID          = "X-Request-ID"
)

// SignatureHeaders lists the headers consulted for a payload signature, in
// priority order.
var SignatureHeaders = []string{
	HeaderHubSignature256,
	HeaderSignature,
	HeaderGitHubSignature256,
}

const (
	EventTypeNewMessage = "new_message"
	EventTypeHeartbeat  = "heartbeat"
)

const (
	SinkKafka = "kafka"
	SinkRedis = "redis"
)
