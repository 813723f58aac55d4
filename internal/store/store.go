// Package store persists webhook messages in two tiers: a bounded active
// set kept in memory and mirrored to one JSON file, and per-day archive
// shards that receive the overflow.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/jsonfile"
	"github.com/igoorng/webhook/internal/logger"
	apperrors "github.com/igoorng/webhook/pkg/errors"
	"github.com/igoorng/webhook/pkg/metrics"
	"github.com/igoorng/webhook/pkg/tracing"
)

type Options struct {
	DataDir           string
	MaxActiveMessages int
	Clock             func() time.Time
}

type sequence struct {
	LastID int64 `json:"last_id"`
}

// Store owns the active message set. Every mutation runs under one lock
// covering id assignment, the list change, archival and the file write.
type Store struct {
	dataDir   string
	maxActive int
	clock     func() time.Time
	archiver  *Archiver
	logger    logger.Logger

	mu     sync.RWMutex
	active []Message
	lastID int64
}

// Open creates the data directories if needed and loads the active set. A
// missing or unreadable active file starts an empty set.
func Open(opts Options, log logger.Logger) (*Store, error) {
	if opts.MaxActiveMessages < 1 {
		opts.MaxActiveMessages = constants.DefaultMaxActiveMessages
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	archiveDir := filepath.Join(opts.DataDir, constants.ArchiveDir)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, apperrors.ErrStorage.WithCause(fmt.Errorf("creating %s: %w", archiveDir, err))
	}

	s := &Store{
		dataDir:   opts.DataDir,
		maxActive: opts.MaxActiveMessages,
		clock:     opts.Clock,
		archiver:  NewArchiver(archiveDir, log),
		logger:    log,
	}

	s.active = s.loadActive()
	s.lastID = s.NextID() - 1
	if seq := s.loadSequence(); seq > s.lastID {
		s.lastID = seq
	}
	metrics.SetActiveMessages(len(s.active))

	log.Infow("Message store opened",
		"data_dir", opts.DataDir,
		"active_messages", len(s.active),
		"last_id", s.lastID,
	)

	return s, nil
}

func (s *Store) activePath() string {
	return filepath.Join(s.dataDir, constants.ActiveMessagesFile)
}

func (s *Store) sequencePath() string {
	return filepath.Join(s.dataDir, constants.SequenceFile)
}

func (s *Store) loadActive() []Message {
	var messages []Message
	if err := jsonfile.Read(s.activePath(), &messages); err != nil {
		if !errors.Is(err, jsonfile.ErrNotExist) {
			metrics.IncStorageError("load")
			s.logger.Errorw("Failed to load active messages, starting empty", "error", err)
		}
		return []Message{}
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages
}

func (s *Store) loadSequence() int64 {
	var seq sequence
	if err := jsonfile.Read(s.sequencePath(), &seq); err != nil {
		if !errors.Is(err, jsonfile.ErrNotExist) {
			s.logger.Warnw("Failed to read id sequence", "error", err)
		}
		return 0
	}
	return seq.LastID
}

// NextID scans the active set and every archive shard for the highest id
// and returns one past it. Unreadable shards count as zero.
func (s *Store) NextID() int64 {
	s.mu.RLock()
	activeMax := maxID(s.active)
	s.mu.RUnlock()

	archivedMax := s.archiver.MaxID()
	if archivedMax > activeMax {
		return archivedMax + 1
	}
	return activeMax + 1
}

// Append assigns the next id, builds the message with it and stores it at
// the head of the active set. The returned message is valid even when err
// is non-nil: it is held in memory but its durable write failed.
func (s *Store) Append(ctx context.Context, build func(id int64, now time.Time) Message) (Message, error) {
	_, span := tracing.StartSpan(ctx, "store.append")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	msg := build(s.lastID, s.clock())
	msg.ID = s.lastID

	s.prepend(msg)
	s.trimToCapacity()

	if err := s.persistActive(); err != nil {
		span.RecordError(err)
		return msg, err
	}
	return msg, nil
}

func (s *Store) prepend(msg Message) {
	s.active = append(s.active, Message{})
	copy(s.active[1:], s.active)
	s.active[0] = msg
}

// trimToCapacity moves the overflow tail into archive shards. On archive
// failure the overflow stays active and is retried on the next call.
func (s *Store) trimToCapacity() {
	excess := len(s.active) - s.maxActive
	if excess <= 0 {
		return
	}

	tail := s.active[len(s.active)-excess:]
	if err := s.archiver.Archive(tail, s.clock()); err != nil {
		s.logger.Errorw("Archival failed, keeping overflow in active set",
			"excess", excess,
			"error", err,
		)
		return
	}

	s.active = s.active[:len(s.active)-excess:len(s.active)-excess]
	metrics.AddArchivedMessages(excess)
	s.logger.Infow("Archived messages", "count", excess)
}

func (s *Store) persistActive() error {
	metrics.SetActiveMessages(len(s.active))
	if err := jsonfile.Write(s.activePath(), s.active); err != nil {
		metrics.IncStorageError("persist")
		s.logger.Errorw("Failed to persist active messages", "error", err)
		return apperrors.ErrStorage.WithCause(err)
	}
	return nil
}

// Clear empties the active set. Archive shards are untouched and ids are
// never reused afterwards.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := jsonfile.Write(s.sequencePath(), sequence{LastID: s.lastID}); err != nil {
		metrics.IncStorageError("sequence")
		s.logger.ErrorwCtx(ctx, "Failed to persist id sequence", "error", err)
		return apperrors.ErrStorage.WithCause(err)
	}

	s.active = []Message{}
	if err := s.persistActive(); err != nil {
		return err
	}

	s.logger.InfowCtx(ctx, "Active messages cleared", "last_id", s.lastID)
	return nil
}

// Snapshot returns a copy of the active set, newest first.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.active))
	copy(out, s.active)
	return out
}

// Collect returns a copy of the active set, followed by the contents of
// every archive shard when includeArchived is set. Shards are read after the
// store lock is released; a message archived in between is reported once.
func (s *Store) Collect(includeArchived bool) []Message {
	out := s.Snapshot()
	if !includeArchived {
		return out
	}

	archived, _ := s.archiver.ReadAll()
	return appendUnseen(out, archived)
}

// appendUnseen appends the messages of extra whose id is not in base.
func appendUnseen(base, extra []Message) []Message {
	seen := make(map[int64]struct{}, len(base))
	for _, m := range base {
		seen[m.ID] = struct{}{}
	}
	for _, m := range extra {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		base = append(base, m)
	}
	return base
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

func (s *Store) Stats() Stats {
	snapshot := s.Snapshot()
	active := len(snapshot)

	archived, files := s.archiver.ReadAll()
	all := appendUnseen(snapshot, archived)

	recent := active
	if recent > constants.RecentMessagesWindow {
		recent = constants.RecentMessagesWindow
	}

	return Stats{
		TotalMessages:    len(all),
		ActiveMessages:   active,
		ArchivedMessages: len(all) - active,
		ArchivedFiles:    files,
		RecentMessages:   recent,
	}
}

func (s *Store) Archives() []ArchiveInfo {
	return s.archiver.List()
}

func (s *Store) DataDir() string {
	return s.dataDir
}
