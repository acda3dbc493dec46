package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clementinebot/clementine/internal/store"
)

// PGRoomStore implements store.RoomConfigStore backed by Postgres.
type PGRoomStore struct {
	db *sql.DB
}

func NewPGRoomStore(db *sql.DB) *PGRoomStore {
	return &PGRoomStore{db: db}
}

const roomSelectCols = `room_id, assistants, context_size, system_prompt, updated_at`

func (s *PGRoomStore) Get(ctx context.Context, roomID string) (*store.RoomConfigData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roomSelectCols+` FROM room_configs WHERE room_id = $1`, roomID)

	var d store.RoomConfigData
	var assistantsJSON []byte
	err := row.Scan(&d.RoomID, &assistantsJSON, &d.ContextSize, &d.SystemPrompt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assistantsJSON, &d.Assistants); err != nil {
		return nil, fmt.Errorf("decode assistants for room %s: %w", roomID, err)
	}
	return &d, nil
}

func (s *PGRoomStore) Put(ctx context.Context, cfg *store.RoomConfigData) error {
	assistants := cfg.Assistants
	if assistants == nil {
		assistants = []string{}
	}
	assistantsJSON, err := json.Marshal(assistants)
	if err != nil {
		return fmt.Errorf("encode assistants: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO room_configs (room_id, assistants, context_size, system_prompt, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (room_id) DO UPDATE SET
			assistants = EXCLUDED.assistants,
			context_size = EXCLUDED.context_size,
			system_prompt = EXCLUDED.system_prompt,
			updated_at = EXCLUDED.updated_at`,
		cfg.RoomID, assistantsJSON, cfg.ContextSize, cfg.SystemPrompt, cfg.UpdatedAt)
	return err
}

func (s *PGRoomStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_configs`).Scan(&n)
	return n, err
}
