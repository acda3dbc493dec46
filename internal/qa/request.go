package qa

import (
	"encoding/json"

	"github.com/clementinebot/clementine/internal/history"
)

// DefaultMaxPayload bounds the serialized request size. Oldest chunks are
// trimmed first when over it: recent context matters most.
const DefaultMaxPayload = 256 * 1024

// Chunk is one serialized unit of conversation context.
type Chunk struct {
	Text string `json:"text"`
}

// Request is the QA service payload. Immutable once built.
type Request struct {
	Question       string   `json:"question"`
	Chunks         []Chunk  `json:"chunks"`
	Assistants     []string `json:"assistants"`
	Model          string   `json:"model,omitempty"`
	SessionID      string   `json:"sessionId,omitempty"`
	InteractionID  string   `json:"interactionId,omitempty"`
	Client         string   `json:"client,omitempty"`
	Stream         bool     `json:"stream"`
	DisableAgentic bool     `json:"disable_agentic,omitempty"`
	SystemPrompt   string   `json:"system_prompt,omitempty"`
	UserPrompt     string   `json:"userPrompt,omitempty"`
}

// BuildInput carries everything Build consumes. Identifiers like
// SessionID are inputs, not generated here, so identical inputs always
// produce byte-identical requests.
type BuildInput struct {
	Question      string
	Messages      []history.Message
	Assistants    []string
	ModelOverride string
	SystemPrompt  string
	UserPrompt    string
	SessionID     string
	InteractionID string
	Client        string
	MaxBytes      int // 0 means DefaultMaxPayload
}

// Build assembles the QA request. Pure: no I/O, no clocks, no randomness.
// It returns the number of chunks trimmed to satisfy the payload bound.
// Trimming drops from the oldest end and is never an error.
func Build(in BuildInput) (*Request, int, error) {
	if len(in.Assistants) == 0 {
		return nil, 0, ErrNoAssistantConfigured
	}

	maxBytes := in.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayload
	}

	chunks := make([]Chunk, 0, len(in.Messages))
	for _, m := range in.Messages {
		name := m.AuthorName
		if name == "" {
			name = m.AuthorID
		}
		chunks = append(chunks, Chunk{Text: name + ": " + m.Text})
	}

	req := &Request{
		Question:      in.Question,
		Chunks:        chunks,
		Assistants:    in.Assistants,
		Model:         in.ModelOverride,
		SessionID:     in.SessionID,
		InteractionID: in.InteractionID,
		Client:        in.Client,
		Stream:        false,
		SystemPrompt:  in.SystemPrompt,
		UserPrompt:    in.UserPrompt,
	}

	trimmed := 0
	for {
		req.DisableAgentic = len(req.Chunks) > 0
		body, err := json.Marshal(req)
		if err != nil {
			return nil, 0, err
		}
		if len(body) <= maxBytes || len(req.Chunks) == 0 {
			break
		}
		req.Chunks = req.Chunks[1:]
		trimmed++
	}
	return req, trimmed, nil
}
