// Package rooms resolves and mutates per-room bot configuration.
//
// Reads never fail on a missing row: a room without stored configuration
// gets defaults. Writes are serialized per room and replace the whole row,
// so concurrent readers observe either the old or the new state, never a
// mix.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clementinebot/clementine/internal/config"
	"github.com/clementinebot/clementine/internal/store"
)

// Custom prompts beyond this length are cut, not rejected.
const maxCustomPromptLen = 5000

// ErrInvalidConfiguration marks a rejected configuration update.
// The wrapped message is safe to show to the user.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrStorageUnavailable marks a backend I/O failure. Callers decide
// whether to retry; this package never does.
var ErrStorageUnavailable = store.ErrUnavailable

// Update carries the fields of one configuration change.
// Nil fields keep their stored value.
type Update struct {
	Assistants   *[]string
	ContextSize  *int
	CustomPrompt *string
}

// Service mediates all room configuration access.
type Service struct {
	store  store.RoomConfigStore
	bounds config.ContextConfig

	// roomLocks maps room_id -> *sync.Mutex so writes to the same room
	// serialize while different rooms proceed in parallel.
	roomLocks sync.Map

	now func() time.Time
}

func NewService(st store.RoomConfigStore, bounds config.ContextConfig) *Service {
	return &Service{
		store:  st,
		bounds: bounds,
		now:    time.Now,
	}
}

// Defaults returns the configuration a room has before anyone touches it.
func (s *Service) Defaults(roomID string) *store.RoomConfigData {
	return &store.RoomConfigData{
		RoomID:      roomID,
		Assistants:  []string{},
		ContextSize: s.bounds.Min,
	}
}

// Get returns the room's configuration, falling back to defaults when no
// row exists. It never creates a row. A stored context size that drifted
// outside the current bounds (bounds can change between runs) is clamped
// on the way out.
func (s *Service) Get(ctx context.Context, roomID string) (*store.RoomConfigData, error) {
	cur, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if cur == nil {
		return s.Defaults(roomID), nil
	}
	if cur.Assistants == nil {
		cur.Assistants = []string{}
	}
	if clamped := s.clampSize(cur.ContextSize); clamped != cur.ContextSize {
		slog.Debug("stored context size outside bounds, clamping",
			"room", roomID, "stored", cur.ContextSize, "clamped", clamped)
		cur.ContextSize = clamped
	}
	return cur, nil
}

// Upsert applies the non-nil fields of upd on top of the room's current
// state and persists the result as one full-row replace. The context size
// is validated against the global bounds before anything is written.
func (s *Service) Upsert(ctx context.Context, roomID string, upd Update) (*store.RoomConfigData, error) {
	if upd.ContextSize != nil {
		if *upd.ContextSize < s.bounds.Min || *upd.ContextSize > s.bounds.Max {
			return nil, fmt.Errorf("%w: context size must be between %d and %d",
				ErrInvalidConfiguration, s.bounds.Min, s.bounds.Max)
		}
	}

	mu := s.lockFor(roomID)
	mu.Lock()
	defer mu.Unlock()

	cur, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	next := s.Defaults(roomID)
	if cur != nil {
		*next = *cur
	}

	if upd.Assistants != nil {
		next.Assistants = dedupe(*upd.Assistants)
	}
	if upd.ContextSize != nil {
		next.ContextSize = *upd.ContextSize
	}
	if upd.CustomPrompt != nil {
		next.SystemPrompt = normalizePrompt(*upd.CustomPrompt)
	}

	ts := s.now()
	if cur != nil && ts.Before(cur.UpdatedAt) {
		ts = cur.UpdatedAt
	}
	next.UpdatedAt = ts

	if err := s.store.Put(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return next, nil
}

// Reset returns the room to defaults. The row is kept; rooms are never
// deleted here.
func (s *Service) Reset(ctx context.Context, roomID string) (*store.RoomConfigData, error) {
	empty := []string{}
	size := s.bounds.Min
	prompt := ""
	return s.Upsert(ctx, roomID, Update{
		Assistants:   &empty,
		ContextSize:  &size,
		CustomPrompt: &prompt,
	})
}

func (s *Service) lockFor(roomID string) *sync.Mutex {
	mu, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) clampSize(n int) int {
	if n < s.bounds.Min {
		return s.bounds.Min
	}
	if n > s.bounds.Max {
		return s.bounds.Max
	}
	return n
}

// dedupe keeps the first occurrence of each assistant, preserving order
// and dropping blanks.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func normalizePrompt(p string) string {
	p = strings.TrimSpace(p)
	if r := []rune(p); len(r) > maxCustomPromptLen {
		p = string(r[:maxCustomPromptLen])
	}
	return p
}
