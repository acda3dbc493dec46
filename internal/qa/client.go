package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const askPath = "/api/assistants/chat"

// Source is one reference the service consulted for an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is a successful QA response. AnswerID correlates later feedback.
type Answer struct {
	Text     string
	AnswerID string
	Sources  []Source
}

type wireResponse struct {
	AnswerText     string   `json:"answer_text"`
	AnswerID       string   `json:"answer_id"`
	SearchMetadata []Source `json:"search_metadata"`
}

// Client calls the QA service. Exactly one network attempt per Ask, no
// internal retry, no logging, no shared state beyond the HTTP transport.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Ask sends one request and classifies the outcome. Caller cancellation
// comes back as the plain context error; everything else is an *Error.
func (c *Client) Ask(ctx context.Context, req *Request) (*Answer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode qa request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+askPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build qa request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout}
		}
		return nil, &Error{Kind: KindServiceError, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout}
		}
		return nil, &Error{Kind: KindServiceError, Status: resp.StatusCode, Body: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Kind: KindUnauthorized, Status: resp.StatusCode, Body: snippet(respBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Kind:       KindRateLimited,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{Kind: KindServiceError, Status: resp.StatusCode, Body: snippet(respBody)}
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Body: snippet(respBody)}
	}
	if wire.AnswerID == "" {
		return nil, &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Body: "missing answer_id"}
	}
	return &Answer{Text: wire.AnswerText, AnswerID: wire.AnswerID, Sources: wire.SearchMetadata}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(b []byte) string {
	const max = 512
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
