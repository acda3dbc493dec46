package slackbot

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/clementinebot/clementine/internal/history"
)

// HistorySource reads channel and thread history pages from Slack.
// conversations.history and conversations.replies are Tier 3 methods,
// roughly 50 calls per minute, so every fetch goes through a limiter.
type HistorySource struct {
	api     API
	limiter *rate.Limiter
}

func NewHistorySource(api API) *HistorySource {
	return &HistorySource{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(1200*time.Millisecond), 2),
	}
}

// FetchPage returns one page of raw messages. Channel pages arrive
// newest first, thread pages oldest first; callers order the merged
// window themselves.
func (s *HistorySource) FetchPage(ctx context.Context, scope history.Scope, cursor string, pageSize int) (history.Page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return history.Page{}, err
	}
	if scope.InThread() {
		return s.fetchReplies(ctx, scope, cursor, pageSize)
	}
	return s.fetchHistory(ctx, scope, cursor, pageSize)
}

func (s *HistorySource) fetchHistory(ctx context.Context, scope history.Scope, cursor string, pageSize int) (history.Page, error) {
	resp, err := s.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: scope.RoomID,
		Cursor:    cursor,
		Limit:     pageSize,
	})
	if err != nil {
		return history.Page{}, fmt.Errorf("conversations.history %s: %w", scope.RoomID, err)
	}
	page := history.Page{Messages: mapMessages(resp.Messages)}
	if resp.HasMore {
		page.NextCursor = resp.ResponseMetaData.NextCursor
	}
	return page, nil
}

func (s *HistorySource) fetchReplies(ctx context.Context, scope history.Scope, cursor string, pageSize int) (history.Page, error) {
	msgs, hasMore, nextCursor, err := s.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: scope.RoomID,
		Timestamp: scope.ThreadTS,
		Cursor:    cursor,
		Limit:     pageSize,
	})
	if err != nil {
		return history.Page{}, fmt.Errorf("conversations.replies %s/%s: %w", scope.RoomID, scope.ThreadTS, err)
	}
	page := history.Page{Messages: mapMessages(msgs)}
	if hasMore {
		page.NextCursor = nextCursor
	}
	return page, nil
}

// mapMessages converts Slack messages to the neutral shape. Join and
// leave noise is dropped; bot posts stay because earlier answers are
// useful context, and their username rides along so no user lookup is
// needed for them.
func mapMessages(in []slack.Message) []history.Message {
	out := make([]history.Message, 0, len(in))
	for _, m := range in {
		if !keepSubType(m.SubType) {
			continue
		}
		hm := history.Message{
			AuthorID:  m.User,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			ThreadRef: m.ThreadTimestamp,
		}
		if hm.AuthorID == "" && m.BotID != "" {
			hm.AuthorID = m.BotID
			hm.AuthorName = m.Username
		}
		out = append(out, hm)
	}
	return out
}

func keepSubType(sub string) bool {
	switch sub {
	case "", "bot_message", "thread_broadcast":
		return true
	default:
		return false
	}
}
