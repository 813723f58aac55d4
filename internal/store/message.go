package store

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/igoorng/webhook/internal/constants"
)

// Message is one received webhook delivery. Data holds the parsed JSON body,
// or on a parse failure the raw body text as a JSON string alongside Error.
type Message struct {
	ID        int64           `json:"id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
	SourceIP  string          `json:"source_ip"`
}

// Failed reports whether the message records a body that could not be parsed.
func (m Message) Failed() bool {
	return m.Error != ""
}

// FormatTimestamp renders t in the on-disk message timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(constants.TimestampLayout)
}

// SortNewestFirst orders messages by timestamp descending, then id
// descending. The sort is stable.
func SortNewestFirst(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp > messages[j].Timestamp
		}
		return messages[i].ID > messages[j].ID
	})
}

// dayKey returns the archive bucket for a message. Unparseable timestamps
// fall into the bucket of fallback.
func dayKey(m Message, fallback time.Time) string {
	ts, err := time.ParseInLocation(constants.TimestampLayout, m.Timestamp, time.Local)
	if err != nil {
		return fallback.Format(constants.DayLayout)
	}
	return ts.Format(constants.DayLayout)
}

func maxID(messages []Message) int64 {
	var max int64
	for _, m := range messages {
		if m.ID > max {
			max = m.ID
		}
	}
	return max
}

// Stats summarizes the two storage tiers.
type Stats struct {
	TotalMessages    int `json:"total_messages"`
	ActiveMessages   int `json:"active_messages"`
	ArchivedMessages int `json:"archived_messages"`
	ArchivedFiles    int `json:"archived_files"`
	RecentMessages   int `json:"recent_messages"`
}

// ArchiveInfo describes one per-day archive shard.
type ArchiveInfo struct {
	Date string `json:"date"`
	File string `json:"file"`
	Size int64  `json:"size"`
}
