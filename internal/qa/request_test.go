package qa

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/clementinebot/clementine/internal/history"
)

func contextMessages() []history.Message {
	return []history.Message{
		{AuthorID: "U1", AuthorName: "Ada", Text: "deploys are failing", Timestamp: "1.0"},
		{AuthorID: "U2", AuthorName: "Grace", Text: "since the cert rotation?", Timestamp: "2.0"},
		{AuthorID: "U1", AuthorName: "Ada", Text: "yes, exactly then", Timestamp: "3.0"},
	}
}

func TestBuild_ChunkFormatAndOrder(t *testing.T) {
	req, trimmed, err := Build(BuildInput{
		Question:   "why are deploys failing?",
		Messages:   contextMessages(),
		Assistants: []string{"ops"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if trimmed != 0 {
		t.Errorf("trimmed = %d, want 0", trimmed)
	}
	want := []string{
		"Ada: deploys are failing",
		"Grace: since the cert rotation?",
		"Ada: yes, exactly then",
	}
	if len(req.Chunks) != len(want) {
		t.Fatalf("chunks = %d, want %d", len(req.Chunks), len(want))
	}
	for i, w := range want {
		if req.Chunks[i].Text != w {
			t.Errorf("chunk[%d] = %q, want %q", i, req.Chunks[i].Text, w)
		}
	}
	if !req.DisableAgentic {
		t.Error("disable_agentic should be set when chunks are present")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	in := BuildInput{
		Question:      "same question",
		Messages:      contextMessages(),
		Assistants:    []string{"docs", "ops"},
		ModelOverride: "granite-8b",
		SystemPrompt:  "be helpful",
		SessionID:     "sess-1",
		InteractionID: "int-1",
		Client:        "clementine",
	}

	a, _, err := Build(in)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Build(in)
	if err != nil {
		t.Fatal(err)
	}

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if !bytes.Equal(aj, bj) {
		t.Errorf("same input produced different requests:\n%s\n%s", aj, bj)
	}
}

func TestBuild_NoAssistantConfigured(t *testing.T) {
	_, _, err := Build(BuildInput{
		Question: "anyone there?",
		Messages: contextMessages(),
	})
	if !errors.Is(err, ErrNoAssistantConfigured) {
		t.Errorf("err = %v, want ErrNoAssistantConfigured", err)
	}
}

func TestBuild_ModelFieldPresence(t *testing.T) {
	tests := []struct {
		name     string
		override string
		wantKey  bool
	}{
		{"omitted without override", "", false},
		{"present with override", "granite-8b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _, err := Build(BuildInput{
				Question:      "q",
				Assistants:    []string{"docs"},
				ModelOverride: tt.override,
			})
			if err != nil {
				t.Fatal(err)
			}
			body, _ := json.Marshal(req)
			has := bytes.Contains(body, []byte(`"model"`))
			if has != tt.wantKey {
				t.Errorf("model key present = %v, want %v in %s", has, tt.wantKey, body)
			}
		})
	}
}

func TestBuild_StreamAlwaysExplicitFalse(t *testing.T) {
	req, _, err := Build(BuildInput{Question: "q", Assistants: []string{"docs"}})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(req)
	if !bytes.Contains(body, []byte(`"stream":false`)) {
		t.Errorf("stream:false missing from %s", body)
	}
	if bytes.Contains(body, []byte(`"disable_agentic"`)) {
		t.Errorf("disable_agentic should be omitted with no chunks: %s", body)
	}
}

func TestBuild_TrimsOldestOverPayloadCap(t *testing.T) {
	big := strings.Repeat("x", 400)
	msgs := []history.Message{
		{AuthorName: "Ada", Text: "oldest " + big, Timestamp: "1.0"},
		{AuthorName: "Ada", Text: "middle " + big, Timestamp: "2.0"},
		{AuthorName: "Ada", Text: "newest " + big, Timestamp: "3.0"},
	}

	req, trimmed, err := Build(BuildInput{
		Question:   "q",
		Messages:   msgs,
		Assistants: []string{"docs"},
		MaxBytes:   1100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if trimmed == 0 {
		t.Fatal("expected trimming with a 1100-byte cap")
	}
	if len(req.Chunks) == 0 {
		t.Fatal("cap should leave at least the newest chunk here")
	}
	last := req.Chunks[len(req.Chunks)-1].Text
	if !strings.HasPrefix(last, "Ada: newest") {
		t.Errorf("newest chunk lost: last = %q", last)
	}
	for _, c := range req.Chunks {
		if strings.HasPrefix(c.Text, "Ada: oldest") {
			t.Error("oldest chunk should have been trimmed first")
		}
	}

	body, _ := json.Marshal(req)
	if len(body) > 1100 {
		t.Errorf("payload = %d bytes, want <= 1100", len(body))
	}
}

func TestBuild_TrimToZeroIsNotAnError(t *testing.T) {
	msgs := []history.Message{
		{AuthorName: "Ada", Text: strings.Repeat("y", 5000), Timestamp: "1.0"},
	}
	req, trimmed, err := Build(BuildInput{
		Question:   "q",
		Messages:   msgs,
		Assistants: []string{"docs"},
		MaxBytes:   200,
	})
	if err != nil {
		t.Fatal(err)
	}
	if trimmed != 1 || len(req.Chunks) != 0 {
		t.Errorf("trimmed = %d chunks = %d, want 1 and 0", trimmed, len(req.Chunks))
	}
	if req.DisableAgentic {
		t.Error("disable_agentic must clear once all chunks are gone")
	}
}

func TestBuild_FallsBackToAuthorID(t *testing.T) {
	msgs := []history.Message{{AuthorID: "U7", Text: "hi", Timestamp: "1.0"}}
	req, _, err := Build(BuildInput{Question: "q", Messages: msgs, Assistants: []string{"docs"}})
	if err != nil {
		t.Fatal(err)
	}
	if req.Chunks[0].Text != "U7: hi" {
		t.Errorf("chunk = %q, want U7: hi", req.Chunks[0].Text)
	}
}
