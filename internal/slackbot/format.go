package slackbot

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/store"
)

// Slack caps section text at 3000 characters; answers are cut below
// that so the ellipsis always fits.
const maxSectionRunes = 2900

// maxRenderedSources caps the source list under an answer.
const maxRenderedSources = 3

// Feedback button action IDs carry the answer ID so a vote can be
// routed without any per-message state.
const (
	actionLikePrefix    = "feedback_like_"
	actionDislikePrefix = "feedback_dislike_"
)

// answerBlocks renders an answer: the text, up to three sources, and
// the like and dislike buttons.
func answerBlocks(ans *qa.Answer) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncateText(ans.Text), false, false),
			nil, nil),
	}
	if src := sourcesLine(ans.Sources); src != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, src, false, false),
			nil, nil))
	}
	if ans.AnswerID != "" {
		blocks = append(blocks, feedbackActions(ans.AnswerID))
	}
	return blocks
}

func feedbackActions(answerID string) *slack.ActionBlock {
	like := slack.NewButtonBlockElement(
		actionLikePrefix+answerID, answerID,
		slack.NewTextBlockObject(slack.PlainTextType, "👍 Helpful", true, false))
	dislike := slack.NewButtonBlockElement(
		actionDislikePrefix+answerID, answerID,
		slack.NewTextBlockObject(slack.PlainTextType, "👎 Not helpful", true, false))
	return slack.NewActionBlock("", like, dislike)
}

// votedBlocks rebuilds a rated message: the buttons go away and a
// short acknowledgement takes their place. Repeat votes on a stale
// client still route fine because the answer ID lives in the action.
func votedBlocks(blocks []slack.Block, verdict feedback.Verdict) []slack.Block {
	out := make([]slack.Block, 0, len(blocks))
	for _, b := range blocks {
		if _, ok := b.(*slack.ActionBlock); ok {
			continue
		}
		out = append(out, b)
	}
	ack := "Thanks for the feedback!"
	if verdict == feedback.VerdictDislike {
		ack = "Thanks, noted. We'll try to do better."
	}
	return append(out, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, "_"+ack+"_", false, false)))
}

func sourcesLine(sources []qa.Source) string {
	if len(sources) == 0 {
		return ""
	}
	if len(sources) > maxRenderedSources {
		sources = sources[:maxRenderedSources]
	}
	var b strings.Builder
	b.WriteString("*Sources:*")
	for _, s := range sources {
		title := linkEscaper.Replace(s.Title)
		if strings.TrimSpace(title) == "" {
			title = s.URL
		}
		fmt.Fprintf(&b, "\n• <%s|%s>", s.URL, title)
	}
	return b.String()
}

var linkEscaper = strings.NewReplacer("<", "", ">", "", "|", "")

func truncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSectionRunes {
		return text
	}
	return string(runes[:maxSectionRunes]) + "…"
}

// configText renders a room's effective configuration for an ephemeral
// reply. A zero UpdatedAt means nothing was ever stored and the room is
// running on defaults.
func configText(data *store.RoomConfigData) string {
	var b strings.Builder
	b.WriteString("*Channel configuration*\n")
	if data.UpdatedAt.IsZero() {
		b.WriteString("_Using defaults; nothing has been set for this channel yet._\n")
	}

	assistants := "_none_"
	if len(data.Assistants) > 0 {
		assistants = strings.Join(data.Assistants, ", ")
	}
	fmt.Fprintf(&b, "• Assistants: %s\n", assistants)
	fmt.Fprintf(&b, "• Context window: %d messages\n", data.ContextSize)

	prompt := "_default_"
	if data.SystemPrompt != "" {
		prompt = fmt.Sprintf("custom (%d chars)", len([]rune(data.SystemPrompt)))
	}
	fmt.Fprintf(&b, "• System prompt: %s", prompt)
	return b.String()
}

func helpText(botName string) string {
	return strings.Join([]string{
		fmt.Sprintf("*%s commands*", botName),
		"• `@" + botName + " <question>` — ask in a thread; the conversation continues across replies",
		"• `/clementine ask <question>` — answer using this channel's recent history as context",
		"• `/clementine config show` — show this channel's configuration",
		"• `/clementine config set assistants=<a,b> context_size=<n> prompt=<text>` — change settings (any subset)",
		"• `/clementine config reset` — return this channel to defaults",
		"• `/clementine help` — this message",
	}, "\n")
}
