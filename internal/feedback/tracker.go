// Package feedback records like/dislike verdicts on previously delivered
// answers and forwards them upstream.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clementinebot/clementine/internal/store"
)

// Verdict is a user's reaction to one answer.
type Verdict string

const (
	VerdictLike    Verdict = "like"
	VerdictDislike Verdict = "dislike"
)

// ErrUnknownAnswer marks feedback referencing an answer this process
// never issued. Correlation does not survive restarts.
var ErrUnknownAnswer = errors.New("unknown answer")

// issuedRegistrySize bounds the answer-ID registry. Feedback on an
// answer old enough to be evicted reports ErrUnknownAnswer.
const issuedRegistrySize = 4096

// Notifier forwards a recorded verdict upstream. Implementations must
// not surface failures: the local record is the source of truth.
type Notifier interface {
	Notify(ctx context.Context, answerID, interactionID string, verdict Verdict)
}

// Tracker validates and persists answer feedback.
type Tracker struct {
	store    store.FeedbackStore
	issued   *lru.Cache[string, string] // answer_id -> interaction_id
	upstream Notifier                   // nil disables forwarding

	// pairLocks maps answer_id+user_id -> *sync.Mutex so verdicts for
	// the same pair apply in the order they arrive.
	pairLocks sync.Map

	now func() time.Time
}

func NewTracker(st store.FeedbackStore, upstream Notifier) *Tracker {
	cache, _ := lru.New[string, string](issuedRegistrySize)
	return &Tracker{
		store:    st,
		issued:   cache,
		upstream: upstream,
		now:      time.Now,
	}
}

// MarkIssued registers an answer that was delivered to a room, keyed by
// its answer ID, so later feedback can be matched to it. The interaction
// ID travels with upstream submissions.
func (t *Tracker) MarkIssued(answerID, interactionID string) {
	if answerID == "" {
		return
	}
	t.issued.Add(answerID, interactionID)
}

// Record stores one verdict for (answerID, userID). A later verdict for
// the same pair replaces the earlier one; repeating the same verdict is
// a no-op that still reports success.
func (t *Tracker) Record(ctx context.Context, answerID, userID string, v Verdict) error {
	if v != VerdictLike && v != VerdictDislike {
		return fmt.Errorf("invalid verdict %q", v)
	}

	interactionID, ok := t.issued.Get(answerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAnswer, answerID)
	}

	mu := t.lockFor(answerID, userID)
	mu.Lock()
	defer mu.Unlock()

	prev, err := t.store.Get(ctx, answerID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if prev != nil && prev.Verdict == string(v) {
		return nil
	}
	if prev != nil {
		slog.Debug("feedback verdict changed",
			"answer", answerID, "user", userID, "from", prev.Verdict, "to", v)
	}

	fb := &store.FeedbackData{
		AnswerID:  answerID,
		UserID:    userID,
		Verdict:   string(v),
		UpdatedAt: t.now(),
	}
	if err := t.store.Upsert(ctx, fb); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	if t.upstream != nil {
		t.upstream.Notify(ctx, answerID, interactionID, v)
	}
	return nil
}

func (t *Tracker) lockFor(answerID, userID string) *sync.Mutex {
	mu, _ := t.pairLocks.LoadOrStore(answerID+"\x00"+userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
