package qa

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAssistantConfigured marks a context question in a room whose
// assistant set is empty. A configuration problem, never retried.
var ErrNoAssistantConfigured = errors.New("no assistant configured for this room")

// Kind classifies a failed QA call.
type Kind int

const (
	KindTimeout Kind = iota
	KindUnauthorized
	KindRateLimited
	KindServiceError
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindServiceError:
		return "service_error"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is a classified QA failure. Status and Body are set when an HTTP
// response was received; RetryAfter when the service asked for backoff.
type Error struct {
	Kind       Kind
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("qa %s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("qa %s", e.Kind)
}

// Transient reports whether the failure is worth retrying later.
// Unauthorized and malformed responses are not: the first needs new
// credentials, the second a service-side fix.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindServiceError:
		return true
	}
	return false
}
