package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const feedbackPath = "/api/feedback"

// Upstream posts recorded verdicts to the QA service. Fire-and-forget:
// failures are logged and never block or undo the local record.
type Upstream struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewUpstream(baseURL, token string, timeout time.Duration) *Upstream {
	return &Upstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type feedbackPayload struct {
	Like          bool   `json:"like"`
	Dislike       bool   `json:"dislike"`
	Feedback      string `json:"feedback"`
	InteractionID string `json:"interactionId"`
}

func (u *Upstream) Notify(ctx context.Context, answerID, interactionID string, verdict Verdict) {
	body, err := json.Marshal(feedbackPayload{
		Like:          verdict == VerdictLike,
		Dislike:       verdict == VerdictDislike,
		Feedback:      "",
		InteractionID: interactionID,
	})
	if err != nil {
		slog.Warn("encode feedback payload", "answer", answerID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+feedbackPath, bytes.NewReader(body))
	if err != nil {
		slog.Warn("build feedback request", "answer", answerID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.httpc.Do(req)
	if err != nil {
		slog.Warn("forward feedback", "answer", answerID, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("forward feedback", "answer", answerID, "status", resp.StatusCode)
	}
}
