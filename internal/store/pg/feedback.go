package pg

import (
	"context"
	"database/sql"

	"github.com/clementinebot/clementine/internal/store"
)

// PGFeedbackStore implements store.FeedbackStore backed by Postgres.
type PGFeedbackStore struct {
	db *sql.DB
}

func NewPGFeedbackStore(db *sql.DB) *PGFeedbackStore {
	return &PGFeedbackStore{db: db}
}

func (s *PGFeedbackStore) Upsert(ctx context.Context, fb *store.FeedbackData) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (answer_id, user_id, verdict, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (answer_id, user_id) DO UPDATE SET
			verdict = EXCLUDED.verdict,
			updated_at = EXCLUDED.updated_at`,
		fb.AnswerID, fb.UserID, fb.Verdict, fb.UpdatedAt)
	return err
}

func (s *PGFeedbackStore) Get(ctx context.Context, answerID, userID string) (*store.FeedbackData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT answer_id, user_id, verdict, updated_at
		 FROM feedback WHERE answer_id = $1 AND user_id = $2`, answerID, userID)

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

func (s *PGFeedbackStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&n)
	return n, err
}
