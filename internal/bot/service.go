// Package bot orchestrates the question flows: room configuration is
// read and copied first, context is extracted, the request is built and
// sent, and issued answers are registered for later feedback.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clementinebot/clementine/internal/config"
	"github.com/clementinebot/clementine/internal/history"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
)

var tracer = otel.Tracer("clementine/bot")

// extractTimeout bounds history retrieval; the QA call has its own
// deadline from config.
const extractTimeout = 60 * time.Second

// ErrHalted short-circuits QA calls after a credential rejection.
// Rejected credentials fail every call; only a restart with fixed
// configuration clears the condition.
var ErrHalted = errors.New("qa calls halted after credential rejection")

// Gateway sends one built request to the QA service.
type Gateway interface {
	Ask(ctx context.Context, req *qa.Request) (*qa.Answer, error)
}

// Extractor pulls a bounded window of room history.
type Extractor interface {
	Extract(ctx context.Context, scope history.Scope, limit int) ([]history.Message, error)
}

// AnswerRegistry remembers which answer IDs this process issued.
type AnswerRegistry interface {
	MarkIssued(answerID, interactionID string)
}

// PromptSource supplies the current default prompts.
type PromptSource interface {
	System() string
	User() string
}

// Question is one inbound ask. ThreadTS scopes both the context window
// and the conversation session; empty means channel-wide.
type Question struct {
	RoomID     string
	ThreadTS   string
	Text       string
	UseContext bool // extract a history window and send it as chunks
}

// Service wires the engine together. One instance serves all rooms.
type Service struct {
	cfg      *config.Config
	rooms    *rooms.Service
	extract  Extractor
	gateway  Gateway
	registry AnswerRegistry
	prompts  PromptSource

	halted atomic.Bool
}

func New(cfg *config.Config, roomsSvc *rooms.Service, ex Extractor, gw Gateway, reg AnswerRegistry, ps PromptSource) *Service {
	return &Service{
		cfg:      cfg,
		rooms:    roomsSvc,
		extract:  ex,
		gateway:  gw,
		registry: reg,
		prompts:  ps,
	}
}

// Halted reports whether QA calls are short-circuited.
func (s *Service) Halted() bool { return s.halted.Load() }

// Answer runs one question end to end. The room configuration is read
// once and copied; no lock is held during network I/O.
func (s *Service) Answer(ctx context.Context, q Question) (*qa.Answer, error) {
	ctx, span := tracer.Start(ctx, "answer", trace.WithAttributes(
		attribute.String("room.id", q.RoomID),
		attribute.Bool("with_context", q.UseContext),
	))
	defer span.End()

	ans, err := s.answer(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "question failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("answer.id", ans.AnswerID))
	return ans, nil
}

func (s *Service) answer(ctx context.Context, q Question) (*qa.Answer, error) {
	if s.halted.Load() {
		return nil, ErrHalted
	}

	roomCfg, err := s.rooms.Get(ctx, q.RoomID)
	if err != nil {
		return nil, err
	}
	if len(roomCfg.Assistants) == 0 {
		// Nothing to route to; fail before any network call.
		return nil, qa.ErrNoAssistantConfigured
	}

	var msgs []history.Message
	if q.UseContext {
		exCtx, cancel := context.WithTimeout(ctx, extractTimeout)
		msgs, err = s.extract.Extract(exCtx, history.Scope{RoomID: q.RoomID, ThreadTS: q.ThreadTS}, roomCfg.ContextSize)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	systemPrompt := roomCfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = s.prompts.System()
	}

	var sessionID string
	if q.ThreadTS != "" {
		sessionID = SessionID(q.RoomID, q.ThreadTS)
	}

	req, trimmed, err := qa.Build(qa.BuildInput{
		Question:      q.Text,
		Messages:      msgs,
		Assistants:    roomCfg.Assistants,
		ModelOverride: s.cfg.ModelOverride,
		SystemPrompt:  systemPrompt,
		UserPrompt:    s.prompts.User(),
		SessionID:     sessionID,
		InteractionID: uuid.NewString(),
		Client:        s.cfg.QA.ClientName,
	})
	if err != nil {
		return nil, err
	}
	if trimmed > 0 {
		slog.Debug("context trimmed to fit payload bound",
			"room", q.RoomID, "dropped", trimmed, "kept", len(req.Chunks))
	}

	ans, err := s.gateway.Ask(ctx, req)
	if err != nil {
		var qerr *qa.Error
		if errors.As(err, &qerr) && qerr.Kind == qa.KindUnauthorized {
			if s.halted.CompareAndSwap(false, true) {
				slog.Error("qa credentials rejected, halting downstream calls",
					"status", qerr.Status)
			}
		}
		return nil, fmt.Errorf("ask qa service: %w", err)
	}

	s.registry.MarkIssued(ans.AnswerID, req.InteractionID)
	return ans, nil
}

// SessionID derives the stable conversation key for a room thread, so
// the QA service can keep per-thread memory across mentions.
func SessionID(roomID, threadTS string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(roomID+"_"+threadTS)).String()
}
