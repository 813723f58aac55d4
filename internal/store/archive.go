package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/jsonfile"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/pkg/metrics"
)

// Archiver maintains the per-day archive shards under dir. Its own lock
// serializes shard rewrites against readers, independently of the store lock.
type Archiver struct {
	dir    string
	logger logger.Logger

	mu sync.RWMutex
}

func NewArchiver(dir string, log logger.Logger) *Archiver {
	return &Archiver{dir: dir, logger: log}
}

func (a *Archiver) shardPath(day string) string {
	return filepath.Join(a.dir, constants.ArchiveFilePrefix+day+constants.ArchiveFileSuffix)
}

// Archive merges messages into their day shards. Each shard is deduplicated
// by id with the incoming copy winning, sorted newest first and rewritten in
// full, so repeating a call with overlapping input is harmless. now buckets
// messages whose timestamp cannot be parsed.
func (a *Archiver) Archive(messages []Message, now time.Time) error {
	if len(messages) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	groups := make(map[string][]Message)
	for _, m := range messages {
		day := dayKey(m, now)
		groups[day] = append(groups[day], m)
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	var errs []error
	for _, day := range days {
		if err := a.mergeShard(day, groups[day]); err != nil {
			metrics.IncStorageError("archive")
			a.logger.Errorw("Failed to write archive shard",
				"day", day,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (a *Archiver) mergeShard(day string, incoming []Message) error {
	path := a.shardPath(day)

	var existing []Message
	if err := jsonfile.Read(path, &existing); err != nil {
		switch {
		case errors.Is(err, jsonfile.ErrNotExist):
		case errors.Is(err, jsonfile.ErrCorrupt):
			if qerr := a.quarantine(path, err); qerr != nil {
				return fmt.Errorf("loading shard %s: %w", day, qerr)
			}
			existing = nil
		default:
			// Never overwrite a shard that could not be read.
			return fmt.Errorf("loading shard %s: %w", day, err)
		}
	}

	byID := make(map[int64]Message, len(existing)+len(incoming))
	for _, m := range existing {
		byID[m.ID] = m
	}
	for _, m := range incoming {
		byID[m.ID] = m
	}

	merged := make([]Message, 0, len(byID))
	for _, m := range byID {
		merged = append(merged, m)
	}
	SortNewestFirst(merged)

	if err := jsonfile.Write(path, merged); err != nil {
		return fmt.Errorf("writing shard %s: %w", day, err)
	}
	return nil
}

// quarantine renames an undecodable shard out of the shard namespace so the
// day can be written again. The original bytes are kept for inspection.
func (a *Archiver) quarantine(path string, cause error) error {
	target := path + constants.CorruptShardSuffix + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("moving corrupt shard aside: %w", err)
	}

	metrics.IncStorageError("archive_quarantine")
	a.logger.Errorw("Moved corrupt archive shard aside",
		"file", filepath.Base(path),
		"moved_to", filepath.Base(target),
		"error", cause,
	)
	return nil
}

// List returns the shard files, newest date first. I/O failures yield an
// empty list.
func (a *Archiver) List() []ArchiveInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.list()
}

func (a *Archiver) list() []ArchiveInfo {
	pattern := filepath.Join(a.dir, constants.ArchiveFilePrefix+"*"+constants.ArchiveFileSuffix)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		a.logger.Errorw("Failed to list archive shards", "error", err)
		return []ArchiveInfo{}
	}

	infos := make([]ArchiveInfo, 0, len(paths))
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			a.logger.Warnw("Failed to stat archive shard", "file", path, "error", err)
			continue
		}
		name := filepath.Base(path)
		date := strings.TrimSuffix(strings.TrimPrefix(name, constants.ArchiveFilePrefix), constants.ArchiveFileSuffix)
		infos = append(infos, ArchiveInfo{
			Date: date,
			File: name,
			Size: stat.Size(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Date > infos[j].Date
	})
	return infos
}

// ReadShard loads one shard by its date.
func (a *Archiver) ReadShard(day string) ([]Message, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readShard(day)
}

func (a *Archiver) readShard(day string) ([]Message, error) {
	var messages []Message
	if err := jsonfile.Read(a.shardPath(day), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ReadAll concatenates every readable shard. Unreadable shards are logged
// and skipped.
func (a *Archiver) ReadAll() ([]Message, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	infos := a.list()
	var all []Message
	for _, info := range infos {
		messages, err := a.readShard(info.Date)
		if err != nil {
			metrics.IncStorageError("archive_read")
			a.logger.Warnw("Skipping unreadable archive shard",
				"file", info.File,
				"error", err,
			)
			continue
		}
		all = append(all, messages...)
	}
	return all, len(infos)
}

// MaxID returns the highest id across all shards. A corrupt shard
// contributes zero.
func (a *Archiver) MaxID() int64 {
	messages, _ := a.ReadAll()
	return maxID(messages)
}
