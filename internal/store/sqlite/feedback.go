package sqlite

import (
	"context"
	"database/sql"

	"github.com/clementinebot/clementine/internal/store"
)

// SQLiteFeedbackStore implements store.FeedbackStore backed by SQLite.
type SQLiteFeedbackStore struct {
	db *sql.DB
}

func NewSQLiteFeedbackStore(db *sql.DB) *SQLiteFeedbackStore {
	return &SQLiteFeedbackStore{db: db}
}

func (s *SQLiteFeedbackStore) Upsert(ctx context.Context, fb *store.FeedbackData) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (answer_id, user_id, verdict, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (answer_id, user_id) DO UPDATE SET
			verdict = excluded.verdict,
			updated_at = excluded.updated_at`,
		fb.AnswerID, fb.UserID, fb.Verdict, fb.UpdatedAt)
	return err
}

func (s *SQLiteFeedbackStore) Get(ctx context.Context, answerID, userID string) (*store.FeedbackData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT answer_id, user_id, verdict, updated_at
		 FROM feedback WHERE answer_id = ? AND user_id = ?`, answerID, userID)

	var d store.FeedbackData
	err := row.Scan(&d.AnswerID, &d.UserID, &d.Verdict, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteFeedbackStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n)
	return n, err
}
