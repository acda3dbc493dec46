package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/clementinebot/clementine/internal/bot"
	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
)

// handleMention answers an @-mention in the thread it arrived in. A
// top-level mention starts a thread at that message; mentions inside a
// thread also feed the thread's messages to the QA service as context.
func (r *Runtime) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == "" || ev.User == r.botUserID || ev.BotID != "" {
		return
	}

	question := stripMention(ev.Text)
	if question == "" {
		r.postEphemeral(ev.Channel, ev.User, helpText(r.botName))
		return
	}

	threadTS := ev.ThreadTimeStamp
	inThread := threadTS != ""
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	loadingTS := r.postLoading(ev.Channel, threadTS)
	ans, err := r.answerer.Answer(ctx, Question{
		RoomID:     ev.Channel,
		ThreadTS:   threadTS,
		Text:       question,
		UseContext: inThread,
	})
	if err != nil {
		r.renderFailure(ev.Channel, loadingTS, threadTS, err,
			slog.String("room", ev.Channel), slog.String("user", ev.User))
		return
	}
	r.renderAnswer(ev.Channel, loadingTS, threadTS, ans)
}

func (r *Runtime) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	sub, rest := splitWord(cmd.Text)
	switch sub {
	case "ask":
		r.handleAsk(ctx, cmd, rest)
	case "config":
		r.handleConfig(ctx, cmd, rest)
	case "help", "":
		r.postEphemeral(cmd.ChannelID, cmd.UserID, helpText(r.botName))
	default:
		r.postEphemeral(cmd.ChannelID, cmd.UserID,
			fmt.Sprintf("Unknown subcommand %q.\n\n%s", sub, helpText(r.botName)))
	}
}

// handleAsk answers a question over the channel's recent history.
func (r *Runtime) handleAsk(ctx context.Context, cmd slack.SlashCommand, args string) {
	question := strings.TrimSpace(args)
	if question == "" {
		r.postEphemeral(cmd.ChannelID, cmd.UserID, "Usage: `/clementine ask <question>`")
		return
	}

	loadingTS := r.postLoading(cmd.ChannelID, "")
	ans, err := r.answerer.Answer(ctx, Question{
		RoomID:     cmd.ChannelID,
		Text:       question,
		UseContext: true,
	})
	if err != nil {
		r.renderFailure(cmd.ChannelID, loadingTS, "", err,
			slog.String("room", cmd.ChannelID), slog.String("user", cmd.UserID))
		return
	}
	r.renderAnswer(cmd.ChannelID, loadingTS, "", ans)
}

func (r *Runtime) handleConfig(ctx context.Context, cmd slack.SlashCommand, args string) {
	sub, rest := splitWord(args)
	switch sub {
	case "show", "":
		data, err := r.rooms.Get(ctx, cmd.ChannelID)
		if err != nil {
			slog.Error("config show failed", "room", cmd.ChannelID, "err", err)
			r.postEphemeral(cmd.ChannelID, cmd.UserID, bot.UserMessage(err, r.botName))
			return
		}
		r.postEphemeral(cmd.ChannelID, cmd.UserID, configText(data))
	case "set":
		upd, err := parseConfigSet(rest)
		if err != nil {
			r.postEphemeral(cmd.ChannelID, cmd.UserID, err.Error())
			return
		}
		data, err := r.rooms.Upsert(ctx, cmd.ChannelID, upd)
		if err != nil {
			if !errors.Is(err, rooms.ErrInvalidConfiguration) {
				slog.Error("config set failed", "room", cmd.ChannelID, "err", err)
			}
			r.postEphemeral(cmd.ChannelID, cmd.UserID, bot.UserMessage(err, r.botName))
			return
		}
		r.postEphemeral(cmd.ChannelID, cmd.UserID, "Updated.\n\n"+configText(data))
	case "reset":
		data, err := r.rooms.Reset(ctx, cmd.ChannelID)
		if err != nil {
			slog.Error("config reset failed", "room", cmd.ChannelID, "err", err)
			r.postEphemeral(cmd.ChannelID, cmd.UserID, bot.UserMessage(err, r.botName))
			return
		}
		r.postEphemeral(cmd.ChannelID, cmd.UserID, "Reset to defaults.\n\n"+configText(data))
	default:
		r.postEphemeral(cmd.ChannelID, cmd.UserID,
			"Usage: `/clementine config show`, `/clementine config set <key=value ...>` or `/clementine config reset`")
	}
}

// handleInteraction routes feedback button clicks. The answer ID rides
// in the action value, so no per-message state is consulted.
func (r *Runtime) handleInteraction(ctx context.Context, callback slack.InteractionCallback) {
	if callback.Type != slack.InteractionTypeBlockActions {
		return
	}
	for _, action := range callback.ActionCallback.BlockActions {
		var verdict feedback.Verdict
		switch {
		case strings.HasPrefix(action.ActionID, actionLikePrefix):
			verdict = feedback.VerdictLike
		case strings.HasPrefix(action.ActionID, actionDislikePrefix):
			verdict = feedback.VerdictDislike
		default:
			continue
		}
		r.recordVote(ctx, callback, action.Value, verdict)
	}
}

func (r *Runtime) recordVote(ctx context.Context, callback slack.InteractionCallback, answerID string, verdict feedback.Verdict) {
	userID := callback.User.ID
	if err := r.tracker.Record(ctx, answerID, userID, verdict); err != nil {
		slog.Warn("feedback not recorded", "answer", answerID, "user", userID, "err", err)
		r.postEphemeral(callback.Channel.ID, userID, bot.UserMessage(err, r.botName))
		return
	}
	slog.Info("feedback recorded", "answer", answerID, "user", userID, "verdict", verdict)

	blocks := votedBlocks(callback.Message.Blocks.BlockSet, verdict)
	if _, _, _, err := r.api.UpdateMessage(callback.Channel.ID, callback.Message.Timestamp,
		slack.MsgOptionBlocks(blocks...)); err != nil {
		slog.Warn("vote acknowledgement failed", "answer", answerID, "err", err)
	}
}

func (r *Runtime) postLoading(channelID, threadTS string) string {
	opts := []slack.MsgOption{slack.MsgOptionText(loadingPhrase(), false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := r.api.PostMessage(channelID, opts...)
	if err != nil {
		slog.Warn("loading message failed", "room", channelID, "err", err)
		return ""
	}
	return ts
}

// renderAnswer replaces the loading placeholder with the answer, or
// posts fresh if the placeholder never made it out.
func (r *Runtime) renderAnswer(channelID, loadingTS, threadTS string, ans *qa.Answer) {
	opts := []slack.MsgOption{
		slack.MsgOptionBlocks(answerBlocks(ans)...),
		slack.MsgOptionText(truncateText(ans.Text), false),
	}
	if loadingTS != "" {
		if _, _, _, err := r.api.UpdateMessage(channelID, loadingTS, opts...); err != nil {
			slog.Error("answer update failed", "room", channelID, "answer", ans.AnswerID, "err", err)
		}
		return
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := r.api.PostMessage(channelID, opts...); err != nil {
		slog.Error("answer post failed", "room", channelID, "answer", ans.AnswerID, "err", err)
	}
}

// renderFailure swaps the placeholder for a user-facing failure line.
// The cause is logged here; the room only ever sees the mapped text.
func (r *Runtime) renderFailure(channelID, loadingTS, threadTS string, err error, attrs ...slog.Attr) {
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.LogAttrs(context.Background(), slog.LevelError, "question failed",
		append(attrs, slog.Any("err", err))...)

	text := bot.UserMessage(err, r.botName)
	if loadingTS != "" {
		if _, _, _, uerr := r.api.UpdateMessage(channelID, loadingTS, slack.MsgOptionText(text, false)); uerr != nil {
			slog.Warn("failure message update failed", "room", channelID, "err", uerr)
		}
		return
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, perr := r.api.PostMessage(channelID, opts...); perr != nil {
		slog.Warn("failure message post failed", "room", channelID, "err", perr)
	}
}

func (r *Runtime) postEphemeral(channelID, userID, text string) {
	if _, err := r.api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		slog.Warn("ephemeral message failed", "room", channelID, "user", userID, "err", err)
	}
}

// parseConfigSet turns `assistants=a,b context_size=120 prompt=...`
// into a partial update. The prompt key consumes the rest of the line,
// so it goes last and may contain spaces.
func parseConfigSet(args string) (rooms.Update, error) {
	var upd rooms.Update

	if idx := strings.Index(args, "prompt="); idx >= 0 {
		prompt := strings.TrimSpace(args[idx+len("prompt="):])
		upd.CustomPrompt = &prompt
		args = args[:idx]
	}

	for _, field := range strings.Fields(args) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return rooms.Update{}, fmt.Errorf("expected key=value, got %q", field)
		}
		switch key {
		case "assistants":
			names := splitAssistants(value)
			upd.Assistants = &names
		case "context_size":
			n, err := strconv.Atoi(value)
			if err != nil {
				return rooms.Update{}, fmt.Errorf("context_size must be a number, got %q", value)
			}
			upd.ContextSize = &n
		default:
			return rooms.Update{}, fmt.Errorf("unknown setting %q; valid keys are assistants, context_size and prompt", key)
		}
	}

	if upd.Assistants == nil && upd.ContextSize == nil && upd.CustomPrompt == nil {
		return rooms.Update{}, errors.New("nothing to set; try `/clementine config set assistants=<a,b> context_size=<n> prompt=<text>`")
	}
	return upd, nil
}

// splitAssistants parses a comma list. "none" clears the list.
func splitAssistants(value string) []string {
	if value == "" || strings.EqualFold(value, "none") {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var mentionPrefix = regexp.MustCompile(`^\s*<@[^>]+>\s*`)

// stripMention drops leading @-mentions from an event's text, leaving
// the question. Mentions elsewhere in the text stay.
func stripMention(text string) string {
	for {
		stripped := mentionPrefix.ReplaceAllString(text, "")
		if stripped == text {
			return strings.TrimSpace(stripped)
		}
		text = stripped
	}
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	if idx := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' }); idx >= 0 {
		return s[:idx], strings.TrimSpace(s[idx+1:])
	}
	return s, ""
}
