// Package ingest runs each inbound webhook delivery through gating,
// signature verification, parsing, filtering, storage and fan-out.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/settings"
	"github.com/igoorng/webhook/internal/signature"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/cel"
	"github.com/igoorng/webhook/pkg/logging"
	"github.com/igoorng/webhook/pkg/metrics"
	"github.com/igoorng/webhook/pkg/tracing"
)

type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeFiltered         Outcome = "filtered"
	OutcomeParseError       Outcome = "parse_error"
	OutcomeDisabled         Outcome = "disabled"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeStorageFailed    Outcome = "storage_failed"
)

type SettingsProvider interface {
	Get() settings.Settings
}

type MessageStore interface {
	Append(ctx context.Context, build func(id int64, now time.Time) store.Message) (store.Message, error)
}

type Broadcaster interface {
	Broadcast(msg store.Message)
}

type Forwarder interface {
	Offer(ctx context.Context, msg store.Message) bool
}

type Request struct {
	Body     []byte
	Header   http.Header
	SourceIP string
}

// Result describes what happened to one delivery. Message is set whenever
// something was stored; Err carries the parse or storage failure.
type Result struct {
	Outcome Outcome
	Message *store.Message
	Err     error
}

type Service struct {
	settings  SettingsProvider
	store     MessageStore
	hub       Broadcaster
	forwarder Forwarder
	filter    *cel.Filter
	logger    logger.Logger
}

type Option func(*Service)

// WithForwarder relays every stored message to f after broadcast.
func WithForwarder(f Forwarder) Option {
	return func(s *Service) { s.forwarder = f }
}

// WithFilter drops successfully parsed deliveries for which f is false.
func WithFilter(f *cel.Filter) Option {
	return func(s *Service) { s.filter = f }
}

func NewService(cfg SettingsProvider, messages MessageStore, hub Broadcaster, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		settings: cfg,
		store:    messages,
		hub:      hub,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ingest(ctx context.Context, req Request) Result {
	ctx, span := tracing.StartSpan(ctx, "webhook.ingest")
	defer span.End()

	start := time.Now()
	result := s.ingest(ctx, req)

	span.SetAttributes(attribute.String("webhook.outcome", string(result.Outcome)))
	if result.Message != nil {
		span.SetAttributes(attribute.Int64("webhook.message_id", result.Message.ID))
	}
	if result.Err != nil {
		span.RecordError(result.Err)
	}

	metrics.IncWebhookRequest(string(result.Outcome))
	metrics.ObserveIngestDuration(time.Since(start), string(result.Outcome))
	return result
}

func (s *Service) ingest(ctx context.Context, req Request) Result {
	current := s.settings.Get()

	if !current.Enabled {
		return Result{Outcome: OutcomeDisabled}
	}

	if current.Secret != "" {
		if !signature.Verify(req.Body, signature.FromHeader(req.Header), current.Secret) {
			s.logger.WarnwCtx(ctx, "Rejected webhook with invalid signature", "source_ip", req.SourceIP)
			return Result{Outcome: OutcomeInvalidSignature}
		}
	}

	parsed, data, parseErr := parseBody(req.Body)
	if parseErr != nil {
		s.logger.WarnwCtx(ctx, "Failed to parse webhook body", "source_ip", req.SourceIP, "error", parseErr)
		return s.persistRaw(ctx, req, parseErr)
	}

	event := eventType(parsed, req.Header)
	if current.EventFilter != "" {
		filterEv, err := filterEventType(parsed, req.Header)
		if err != nil {
			s.logger.WarnwCtx(ctx, "Cannot read event type for filtering", "source_ip", req.SourceIP, "error", err)
			return s.persistRaw(ctx, req, err)
		}
		if !strings.Contains(filterEv, current.EventFilter) {
			return Result{Outcome: OutcomeFiltered}
		}
	}

	if s.filter != nil {
		ok, err := s.filter.Matches(ctx, cel.Input{
			Data:     parsed,
			Event:    event,
			SourceIP: req.SourceIP,
			Headers:  flattenHeaders(req.Header),
		})
		if err != nil {
			s.logger.WarnwCtx(ctx, "Filter expression failed, accepting delivery",
				"expression", s.filter.Expression(),
				"error", err,
			)
		} else if !ok {
			return Result{Outcome: OutcomeFiltered}
		}
	}

	return s.persist(ctx, OutcomeAccepted, nil, func(id int64, now time.Time) store.Message {
		return store.Message{
			Timestamp: store.FormatTimestamp(now),
			Data:      data,
			SourceIP:  req.SourceIP,
		}
	})
}

// persistRaw stores the body as text together with the failure that stopped
// it from being processed.
func (s *Service) persistRaw(ctx context.Context, req Request, cause error) Result {
	return s.persist(ctx, OutcomeParseError, cause, func(id int64, now time.Time) store.Message {
		return store.Message{
			Timestamp: store.FormatTimestamp(now),
			Data:      rawText(req.Body),
			Error:     cause.Error(),
			SourceIP:  req.SourceIP,
		}
	})
}

// persist appends the message, then broadcasts and forwards it even when the
// durable write failed, since it is held in memory either way.
func (s *Service) persist(ctx context.Context, outcome Outcome, cause error, build func(id int64, now time.Time) store.Message) Result {
	msg, err := s.store.Append(ctx, build)
	ctx = logging.WithMessageID(ctx, msg.ID)

	s.hub.Broadcast(msg)
	if s.forwarder != nil {
		s.forwarder.Offer(ctx, msg)
	}

	if err != nil {
		s.logger.ErrorwCtx(ctx, "Message stored in memory but not persisted", "error", err)
		return Result{Outcome: OutcomeStorageFailed, Message: &msg, Err: err}
	}

	s.logger.InfowCtx(ctx, "Webhook stored", "outcome", string(outcome), "source_ip", msg.SourceIP)
	return Result{Outcome: outcome, Message: &msg, Err: cause}
}

var emptyObject = json.RawMessage(`{}`)

// parseBody decodes body as JSON. An empty body or null becomes {}. The
// returned raw form is compact.
func parseBody(body []byte) (interface{}, json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]interface{}{}, emptyObject, nil
	}

	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, err
	}
	if parsed == nil {
		return map[string]interface{}{}, emptyObject, nil
	}

	if !utf8.Valid(body) {
		data, err := json.Marshal(parsed)
		if err != nil {
			return nil, nil, err
		}
		return parsed, data, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, nil, err
	}
	return parsed, json.RawMessage(buf.Bytes()), nil
}

// rawText encodes the undecodable body as a JSON string, dropping invalid
// UTF-8 sequences.
func rawText(body []byte) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(strings.ToValidUTF8(string(body), "")); err != nil {
		return json.RawMessage(`""`)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

// ErrEventType is returned when an event filter is set and the body has no
// readable event type.
var ErrEventType = errors.New("cannot read event type")

// eventType reads the top-level "event" string of an object body, falling
// back to the event headers.
func eventType(parsed interface{}, header http.Header) string {
	if obj, ok := parsed.(map[string]interface{}); ok {
		if ev, ok := obj["event"].(string); ok && ev != "" {
			return ev
		}
	}
	return headerEventType(header)
}

// filterEventType is eventType for the substring filter. Empty bodies of any
// JSON kind and unset event fields fall back to the headers; a non-empty
// body that is not an object, or an event field that is set but not a
// string, is an error.
func filterEventType(parsed interface{}, header http.Header) (string, error) {
	obj, ok := parsed.(map[string]interface{})
	if !ok {
		if truthy(parsed) {
			return "", fmt.Errorf("%w: body is a JSON %s, not an object", ErrEventType, jsonKind(parsed))
		}
		return headerEventType(header), nil
	}

	switch ev := obj["event"].(type) {
	case string:
		if ev != "" {
			return ev, nil
		}
	default:
		if truthy(ev) {
			return "", fmt.Errorf("%w: event field is a JSON %s, not a string", ErrEventType, jsonKind(ev))
		}
	}
	return headerEventType(header), nil
}

func headerEventType(header http.Header) string {
	if ev := header.Get(constants.HeaderEventType); ev != "" {
		return ev
	}
	return header.Get(constants.HeaderGitHubEvent)
}

// truthy reports whether a decoded JSON value is non-empty: not null, false,
// zero, "", [] or {}.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return "value"
	}
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k := range header {
		out[k] = header.Get(k)
	}
	return out
}
