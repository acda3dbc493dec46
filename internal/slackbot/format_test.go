package slackbot

import (
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/store"
)

func TestAnswerBlocks_FullAnswer(t *testing.T) {
	ans := &qa.Answer{
		Text:     "Deploys go out on Tuesdays.",
		AnswerID: "ans-1",
		Sources: []qa.Source{
			{Title: "Release runbook", URL: "https://wiki.example.com/releases"},
			{Title: "", URL: "https://wiki.example.com/cadence"},
		},
	}

	blocks := answerBlocks(ans)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want text + sources + actions", len(blocks))
	}

	text, ok := blocks[0].(*slack.SectionBlock)
	if !ok || text.Text.Text != ans.Text {
		t.Errorf("first block = %#v, want the answer text", blocks[0])
	}

	src, ok := blocks[1].(*slack.SectionBlock)
	if !ok {
		t.Fatalf("second block is %T, want sources section", blocks[1])
	}
	if !strings.Contains(src.Text.Text, "<https://wiki.example.com/releases|Release runbook>") {
		t.Errorf("sources = %q, want a titled link", src.Text.Text)
	}
	if !strings.Contains(src.Text.Text, "<https://wiki.example.com/cadence|https://wiki.example.com/cadence>") {
		t.Errorf("sources = %q, want URL as title fallback", src.Text.Text)
	}

	actions, ok := blocks[2].(*slack.ActionBlock)
	if !ok {
		t.Fatalf("third block is %T, want actions", blocks[2])
	}
	if n := len(actions.Elements.ElementSet); n != 2 {
		t.Fatalf("got %d buttons, want 2", n)
	}
	like, ok := actions.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	if !ok || like.ActionID != actionLikePrefix+"ans-1" || like.Value != "ans-1" {
		t.Errorf("like button = %#v", actions.Elements.ElementSet[0])
	}
}

func TestAnswerBlocks_SourcesCapped(t *testing.T) {
	ans := &qa.Answer{Text: "x", AnswerID: "a", Sources: []qa.Source{
		{Title: "one", URL: "https://e/1"},
		{Title: "two", URL: "https://e/2"},
		{Title: "three", URL: "https://e/3"},
		{Title: "four", URL: "https://e/4"},
	}}

	blocks := answerBlocks(ans)
	src := blocks[1].(*slack.SectionBlock).Text.Text
	if strings.Contains(src, "https://e/4") {
		t.Errorf("sources = %q, want at most three entries", src)
	}
	if got := strings.Count(src, "\n•"); got != 3 {
		t.Errorf("rendered %d source lines, want 3", got)
	}
}

func TestAnswerBlocks_NoSourcesNoAnswerID(t *testing.T) {
	blocks := answerBlocks(&qa.Answer{Text: "plain"})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want just the text", len(blocks))
	}
}

func TestVotedBlocks_DropsButtonsAddsAck(t *testing.T) {
	original := answerBlocks(&qa.Answer{Text: "answer", AnswerID: "ans-1"})

	voted := votedBlocks(original, feedback.VerdictLike)
	for _, b := range voted {
		if _, ok := b.(*slack.ActionBlock); ok {
			t.Fatal("actions block survived the vote")
		}
	}
	last, ok := voted[len(voted)-1].(*slack.ContextBlock)
	if !ok {
		t.Fatalf("last block is %T, want a context acknowledgement", voted[len(voted)-1])
	}
	text, ok := last.ContextElements.Elements[0].(*slack.TextBlockObject)
	if !ok || !strings.Contains(text.Text, "Thanks") {
		t.Errorf("ack element = %#v", last.ContextElements.Elements[0])
	}
}

func TestTruncateText(t *testing.T) {
	short := "short answer"
	if got := truncateText(short); got != short {
		t.Errorf("truncateText(short) = %q", got)
	}

	long := strings.Repeat("я", maxSectionRunes+100)
	got := truncateText(long)
	if !strings.HasSuffix(got, "…") {
		t.Error("long text not marked as truncated")
	}
	if runes := len([]rune(got)); runes != maxSectionRunes+1 {
		t.Errorf("truncated to %d runes, want %d", runes, maxSectionRunes+1)
	}
}

func TestConfigText(t *testing.T) {
	defaults := &store.RoomConfigData{RoomID: "C1", Assistants: []string{}, ContextSize: 50}
	text := configText(defaults)
	if !strings.Contains(text, "Using defaults") {
		t.Errorf("defaults text = %q, want the defaults note", text)
	}
	if !strings.Contains(text, "_none_") || !strings.Contains(text, "50 messages") {
		t.Errorf("defaults text = %q", text)
	}

	configured := &store.RoomConfigData{
		RoomID:       "C1",
		Assistants:   []string{"kb", "support"},
		ContextSize:  120,
		SystemPrompt: "be brief",
		UpdatedAt:    time.Now(),
	}
	text = configText(configured)
	if strings.Contains(text, "Using defaults") {
		t.Error("configured room still labeled as defaults")
	}
	if !strings.Contains(text, "kb, support") || !strings.Contains(text, "120 messages") {
		t.Errorf("configured text = %q", text)
	}
	if !strings.Contains(text, "custom (8 chars)") {
		t.Errorf("configured text = %q, want prompt length note", text)
	}
}
