package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clementinebot/clementine/internal/store"
)

// OpenDB connects to Postgres and verifies the connection.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPGStores creates all stores backed by Postgres.
// Schema is managed by the migrate command, not here.
func NewPGStores(dsn string) (*store.Stores, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	return &store.Stores{
		Rooms:    NewPGRoomStore(db),
		Feedback: NewPGFeedbackStore(db),
		DB:       db,
	}, nil
}
