// Package history extracts bounded, ordered windows of recent room
// conversation for use as question context.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrContextUnavailable marks a retrieval failure with nothing collected.
// A failure after at least one page succeeded is not an error: the partial
// window is returned instead, a trimmed context beats no answer.
var ErrContextUnavailable = errors.New("conversation context unavailable")

// Message is one message lifted from room history. Produced fresh per
// extraction, never cached across requests.
type Message struct {
	AuthorID   string
	AuthorName string // resolved display name, falls back to AuthorID
	Text       string
	Timestamp  string // platform ordering key, also the dedup identity
	ThreadRef  string // parent timestamp for replies, empty otherwise
}

// Scope selects what slice of a room to read: the whole channel, or one
// thread when ThreadTS is set.
type Scope struct {
	RoomID   string
	ThreadTS string
}

func (s Scope) InThread() bool { return s.ThreadTS != "" }

// Page is one page of raw history. NextCursor is empty on the last page.
type Page struct {
	Messages   []Message
	NextCursor string
}

// Source reads raw room history one page at a time. Channel-wide reads
// deliver newest first, thread reads oldest first, both as the platform
// does.
type Source interface {
	FetchPage(ctx context.Context, scope Scope, cursor string, pageSize int) (Page, error)
}

// Resolver maps a platform user ID to a display name.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}

// Extractor pulls, deduplicates, orders and windows room history.
type Extractor struct {
	source   Source
	resolver Resolver

	hardMax  int // ceiling for the requested window size
	pageSize int
	maxPages int // hard stop against unbounded threads
}

func NewExtractor(source Source, resolver Resolver, hardMax int) *Extractor {
	return &Extractor{
		source:   source,
		resolver: resolver,
		hardMax:  hardMax,
		pageSize: 200,
		maxPages: 20,
	}
}

// Extract returns at most limit messages from the scope, oldest first.
// When more history exists than limit, the most recent messages win.
// limit is clamped to [1, hardMax] before use.
func (e *Extractor) Extract(ctx context.Context, scope Scope, limit int) ([]Message, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > e.hardMax {
		limit = e.hardMax
	}

	collected, err := e.collect(ctx, scope, limit)
	if err != nil {
		return nil, err
	}

	msgs := window(collected, limit)
	if err := e.resolveNames(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// collect pages through the source, deduplicating by timestamp and
// keeping the first occurrence. Channel scope stops as soon as limit
// unique messages are in hand (pages arrive newest first); thread scope
// reads to the end so the newest replies are included.
func (e *Extractor) collect(ctx context.Context, scope Scope, limit int) ([]Message, error) {
	var (
		out    []Message
		seen   = make(map[string]bool)
		cursor string
	)
	for page := 0; page < e.maxPages; page++ {
		p, err := e.source.FetchPage(ctx, scope, cursor, e.pageSize)
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation discards partials.
				return nil, ctx.Err()
			}
			if len(out) > 0 {
				return out, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrContextUnavailable, err)
		}

		for _, m := range p.Messages {
			if m.Timestamp == "" || m.Text == "" || seen[m.Timestamp] {
				continue
			}
			seen[m.Timestamp] = true
			out = append(out, m)
		}

		if !scope.InThread() && len(out) >= limit {
			break
		}
		if p.NextCursor == "" {
			break
		}
		cursor = p.NextCursor
	}
	return out, nil
}

// window sorts ascending by timestamp (stable, so arrival order breaks
// ties) and keeps the most recent limit messages, still oldest first.
func window(msgs []Message, limit int) []Message {
	sort.SliceStable(msgs, func(i, j int) bool {
		return tsLess(msgs[i].Timestamp, msgs[j].Timestamp)
	})
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

func (e *Extractor) resolveNames(ctx context.Context, msgs []Message) error {
	for i := range msgs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msgs[i].AuthorName != "" {
			continue
		}
		name, err := e.resolver.Resolve(ctx, msgs[i].AuthorID)
		if err != nil || name == "" {
			// One unresolvable name must not sink the extraction.
			name = msgs[i].AuthorID
		}
		msgs[i].AuthorName = name
	}
	return nil
}

// tsLess orders platform timestamps numerically ("1712345678.000100"),
// falling back to a string compare for anything unparseable.
func tsLess(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}
