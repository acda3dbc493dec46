package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrUnavailable marks a storage-layer I/O failure. Services wrap their
// backend errors with it so callers can treat any backend outage as one
// transient condition.
var ErrUnavailable = errors.New("storage unavailable")

// RoomConfigData is one room's persisted configuration row.
type RoomConfigData struct {
	RoomID       string    `json:"roomID"`
	Assistants   []string  `json:"assistants"`
	ContextSize  int       `json:"contextSize"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FeedbackData is one user's verdict on one answer.
// (AnswerID, UserID) is the unique key; a later verdict replaces an earlier one.
type FeedbackData struct {
	AnswerID  string    `json:"answerID"`
	UserID    string    `json:"userID"`
	Verdict   string    `json:"verdict"` // "like" or "dislike"
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoomConfigStore persists per-room configuration.
type RoomConfigStore interface {
	// Get returns the stored row for roomID, or nil when no row exists.
	Get(ctx context.Context, roomID string) (*RoomConfigData, error)
	// Put replaces the full row for cfg.RoomID, inserting when absent.
	Put(ctx context.Context, cfg *RoomConfigData) error
	// Count reports how many rooms have stored configuration.
	Count(ctx context.Context) (int, error)
}

// FeedbackStore persists answer feedback.
type FeedbackStore interface {
	// Upsert inserts the verdict for (AnswerID, UserID), replacing any earlier one.
	Upsert(ctx context.Context, fb *FeedbackData) error
	// Get returns the stored verdict for (answerID, userID), or nil when none exists.
	Get(ctx context.Context, answerID, userID string) (*FeedbackData, error)
	// Count reports the total number of feedback rows.
	Count(ctx context.Context) (int, error)
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Rooms    RoomConfigStore
	Feedback FeedbackStore

	DB *sql.DB
}

// Close releases the underlying database handle.
func (s *Stores) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
