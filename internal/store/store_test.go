package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/jsonfile"
	"github.com/igoorng/webhook/internal/logger"
	apperrors "github.com/igoorng/webhook/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func localTime(s string) time.Time {
	t, err := time.ParseInLocation(constants.TimestampLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func openStore(t *testing.T, dir string, max int, clock *fakeClock) *Store {
	t.Helper()
	s, err := Open(Options{DataDir: dir, MaxActiveMessages: max, Clock: clock.Now}, logger.NopLogger())
	require.NoError(t, err)
	return s
}

func appendJSON(t *testing.T, s *Store, body string) Message {
	t.Helper()
	msg, err := s.Append(context.Background(), func(id int64, now time.Time) Message {
		return Message{
			Timestamp: FormatTimestamp(now),
			Data:      json.RawMessage(body),
			SourceIP:  "127.0.0.1",
		}
	})
	require.NoError(t, err)
	return msg
}

func ids(messages []Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 100, clock)

	assert.Equal(t, int64(1), s.NextID())

	for i := 1; i <= 5; i++ {
		msg := appendJSON(t, s, fmt.Sprintf(`{"n":%d}`, i))
		assert.Equal(t, int64(i), msg.ID)
		assert.Equal(t, "2024-03-01 10:00:00", msg.Timestamp)
	}

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(s.Snapshot()))
	assert.Equal(t, int64(6), s.NextID())
}

func TestAppendPersistsActiveSet(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 100, clock)

	appendJSON(t, s, `{"name":"你好"}`)

	raw, err := os.ReadFile(filepath.Join(dir, constants.ActiveMessagesFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "你好")
	assert.Contains(t, string(raw), "\n  {\n    \"id\": 1,")

	reopened := openStore(t, dir, 100, clock)
	require.Len(t, reopened.Snapshot(), 1)
	assert.JSONEq(t, `{"name":"你好"}`, string(reopened.Snapshot()[0].Data))
	assert.Equal(t, int64(2), reopened.NextID())
}

func TestCapacityEnforcement(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 23:59:59"))
	s := openStore(t, dir, 5, clock)

	for i := 0; i < 7; i++ {
		appendJSON(t, s, `{"event":"test"}`)
		clock.Advance(time.Second)
	}

	assert.Equal(t, []int64{7, 6, 5, 4, 3}, ids(s.Snapshot()))

	archives := s.Archives()
	require.Len(t, archives, 2)
	assert.Equal(t, "2024-03-02", archives[0].Date)
	assert.Equal(t, "messages_2024-03-02.json", archives[0].File)
	assert.Equal(t, "2024-03-01", archives[1].Date)

	day1, err := s.archiver.ReadShard("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(day1))

	day2, err := s.archiver.ReadShard("2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(day2))

	stats := s.Stats()
	assert.Equal(t, Stats{
		TotalMessages:    7,
		ActiveMessages:   5,
		ArchivedMessages: 2,
		ArchivedFiles:    2,
		RecentMessages:   5,
	}, stats)
}

func TestCapacityEnforcementLargeOverflow(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 3, clock)

	const k = 10
	for i := 0; i < 3+k; i++ {
		appendJSON(t, s, `{}`)
	}

	assert.Len(t, s.Snapshot(), 3)
	archived, _ := s.archiver.ReadAll()
	assert.Len(t, archived, k)
	assert.Equal(t, int64(3+k+1), s.NextID())
}

func TestArchiveIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(dir, logger.NopLogger())
	now := localTime("2024-03-01 12:00:00")

	first := []Message{
		{ID: 1, Timestamp: "2024-03-01 08:00:00", Data: json.RawMessage(`{"v":1}`)},
		{ID: 2, Timestamp: "2024-03-01 09:00:00", Data: json.RawMessage(`{"v":1}`)},
	}
	second := []Message{
		{ID: 2, Timestamp: "2024-03-01 09:00:00", Data: json.RawMessage(`{"v":2}`)},
		{ID: 3, Timestamp: "2024-03-01 09:00:00", Data: json.RawMessage(`{"v":2}`)},
	}

	require.NoError(t, a.Archive(first, now))
	require.NoError(t, a.Archive(second, now))
	require.NoError(t, a.Archive(second, now))

	shard, err := a.ReadShard("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(shard))
	assert.JSONEq(t, `{"v":2}`, string(shard[1].Data), "incoming copy wins")
}

func TestArchiveInvalidTimestampUsesRunDay(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(dir, logger.NopLogger())

	require.NoError(t, a.Archive([]Message{{ID: 9, Timestamp: "yesterday"}}, localTime("2024-05-06 01:02:03")))

	shard, err := a.ReadShard("2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids(shard))
}

func TestArchiveMovesCorruptShardAside(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(dir, logger.NopLogger())
	path := filepath.Join(dir, "messages_2024-03-01.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	require.NoError(t, a.Archive([]Message{{ID: 1, Timestamp: "2024-03-01 08:00:00"}}, time.Now()))

	shard, err := a.ReadShard("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(shard))

	moved, err := filepath.Glob(path + constants.CorruptShardSuffix + "*")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	raw, err := os.ReadFile(moved[0])
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(raw))

	assert.Len(t, a.List(), 1)
}

func TestArchiveRefusesUnreadableShard(t *testing.T) {
	dir := t.TempDir()
	a := NewArchiver(dir, logger.NopLogger())
	path := filepath.Join(dir, "messages_2024-03-01.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := a.Archive([]Message{{ID: 1, Timestamp: "2024-03-01 08:00:00"}}, time.Now())
	require.Error(t, err)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestCorruptShardDoesNotBreakCapacity(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 2, clock)

	shard := filepath.Join(dir, constants.ArchiveDir, "messages_2024-03-01.json")
	require.NoError(t, os.WriteFile(shard, []byte("[{"), 0o644))

	for i := 0; i < 5; i++ {
		appendJSON(t, s, `{}`)
	}

	assert.Equal(t, []int64{5, 4}, ids(s.Snapshot()))
	archived, files := s.archiver.ReadAll()
	assert.Equal(t, 1, files)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids(archived))
}

func TestNextIDScansArchivesAndSkipsCorruptShards(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, constants.ArchiveDir)
	require.NoError(t, os.MkdirAll(archiveDir, 0o755))

	require.NoError(t, jsonfile.Write(filepath.Join(archiveDir, "messages_2024-01-01.json"), []Message{
		{ID: 41, Timestamp: "2024-01-01 00:00:01"},
		{ID: 40, Timestamp: "2024-01-01 00:00:00"},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, "messages_2024-01-02.json"), []byte("not json"), 0o644))

	s := openStore(t, dir, 10, newFakeClock(time.Now()))
	assert.Equal(t, int64(42), s.NextID())

	msg := appendJSON(t, s, `{}`)
	assert.Equal(t, int64(42), msg.ID)
}

func TestOpenWithCorruptActiveFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.ActiveMessagesFile), []byte("[{"), 0o644))

	s := openStore(t, dir, 10, newFakeClock(time.Now()))
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, int64(1), s.NextID())
}

func TestClearKeepsArchivesAndNeverReusesIDs(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 2, clock)

	for i := 0; i < 3; i++ {
		appendJSON(t, s, `{}`)
	}
	require.NoError(t, s.Clear(context.Background()))

	assert.Empty(t, s.Snapshot())
	assert.Len(t, s.Archives(), 1)

	var onDisk []Message
	require.NoError(t, jsonfile.Read(filepath.Join(dir, constants.ActiveMessagesFile), &onDisk))
	assert.Empty(t, onDisk)

	reopened := openStore(t, dir, 2, clock)
	msg := appendJSON(t, reopened, `{}`)
	assert.Equal(t, int64(4), msg.ID)
}

func TestClearWithoutArchivesNeverReusesIDs(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 10, clock)

	appendJSON(t, s, `{}`)
	appendJSON(t, s, `{}`)
	require.NoError(t, s.Clear(context.Background()))

	reopened := openStore(t, dir, 10, clock)
	assert.Equal(t, int64(3), appendJSON(t, reopened, `{}`).ID)
}

func TestAppendPersistFailureKeepsMessageInMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 10, clock)

	require.NoError(t, os.RemoveAll(dir))

	msg, err := s.Append(context.Background(), func(id int64, now time.Time) Message {
		return Message{Timestamp: FormatTimestamp(now), Data: json.RawMessage(`{}`)}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, []int64{1}, ids(s.Snapshot()))
}

func TestArchiveFailureKeepsOverflowActive(t *testing.T) {
	dir := t.TempDir()
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, dir, 2, clock)

	archiveDir := filepath.Join(dir, constants.ArchiveDir)
	require.NoError(t, os.RemoveAll(archiveDir))
	require.NoError(t, os.WriteFile(archiveDir, []byte("blocker"), 0o644))

	for i := 0; i < 3; i++ {
		appendJSON(t, s, `{}`)
	}
	assert.Len(t, s.Snapshot(), 3)

	require.NoError(t, os.Remove(archiveDir))
	require.NoError(t, os.MkdirAll(archiveDir, 0o755))

	appendJSON(t, s, `{}`)
	assert.Equal(t, []int64{4, 3}, ids(s.Snapshot()))

	archived, _ := s.archiver.ReadAll()
	assert.ElementsMatch(t, []int64{1, 2}, ids(archived))
}

func TestCollect(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 2, clock)

	for i := 0; i < 5; i++ {
		appendJSON(t, s, `{}`)
		clock.Advance(time.Minute)
	}

	assert.Len(t, s.Collect(false), 2)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, ids(s.Collect(true)))
}

func TestCollectDeduplicatesMessagesSeenInBothTiers(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 10, clock)

	appendJSON(t, s, `{}`)
	appendJSON(t, s, `{}`)

	// Same state a reader sees when a message is archived between its
	// active copy and its shard read.
	require.NoError(t, s.archiver.Archive(s.Snapshot()[1:], clock.Now()))

	assert.ElementsMatch(t, []int64{1, 2}, ids(s.Collect(true)))

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 2, stats.ActiveMessages)
	assert.Equal(t, 0, stats.ArchivedMessages)
	assert.Equal(t, 1, stats.ArchivedFiles)
}

func TestAppendNotBlockedByShardReads(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 10, clock)
	appendJSON(t, s, `{}`)

	// Hold the shard lock so readers stall mid-read.
	s.archiver.mu.Lock()

	readers := make(chan struct{}, 2)
	go func() {
		s.Collect(true)
		readers <- struct{}{}
	}()
	go func() {
		s.Stats()
		readers <- struct{}{}
	}()
	time.Sleep(50 * time.Millisecond)

	appended := make(chan Message, 1)
	go func() {
		msg, _ := s.Append(context.Background(), func(id int64, now time.Time) Message {
			return Message{Timestamp: FormatTimestamp(now), Data: json.RawMessage(`{}`)}
		})
		appended <- msg
	}()

	select {
	case msg := <-appended:
		assert.Equal(t, int64(2), msg.ID)
	case <-time.After(5 * time.Second):
		s.archiver.mu.Unlock()
		t.Fatal("append blocked behind an archive read")
	}

	s.archiver.mu.Unlock()
	for i := 0; i < 2; i++ {
		select {
		case <-readers:
		case <-time.After(5 * time.Second):
			t.Fatal("reader did not finish")
		}
	}
}

func TestConcurrentAppendsProduceUniqueIDs(t *testing.T) {
	clock := newFakeClock(localTime("2024-03-01 10:00:00"))
	s := openStore(t, t.TempDir(), 20, clock)

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	results := make(chan int64, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				msg, err := s.Append(context.Background(), func(id int64, now time.Time) Message {
					return Message{Timestamp: FormatTimestamp(now), Data: json.RawMessage(`{}`)}
				})
				if err == nil {
					results <- msg.ID
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for id := range results {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Len(t, s.Collect(true), workers*perWorker)
	assert.Equal(t, int64(workers*perWorker+1), s.NextID())
}

func TestSortNewestFirst(t *testing.T) {
	messages := []Message{
		{ID: 1, Timestamp: "2024-01-01 00:00:00"},
		{ID: 3, Timestamp: "2024-01-01 00:00:01"},
		{ID: 2, Timestamp: "2024-01-01 00:00:01"},
		{ID: 4, Timestamp: "2023-12-31 23:59:59"},
	}
	SortNewestFirst(messages)
	assert.Equal(t, []int64{3, 2, 1, 4}, ids(messages))
}
