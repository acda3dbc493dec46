package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/clementinebot/clementine/internal/bot"
	"github.com/clementinebot/clementine/internal/config"
	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
)

// Answerer runs one question end to end.
type Answerer interface {
	Answer(ctx context.Context, q Question) (*qa.Answer, error)
}

// Question aliases the orchestration input so handlers and tests in
// this package read naturally.
type Question = bot.Question

// FeedbackRecorder stores one verdict for an answer.
type FeedbackRecorder interface {
	Record(ctx context.Context, answerID, userID string, v feedback.Verdict) error
}

// Runtime is the Socket Mode event loop. Each inbound event is handled
// in its own goroutine so a slow QA call never stalls the socket.
type Runtime struct {
	api      API
	sock     *socketmode.Client
	answerer Answerer
	rooms    *rooms.Service
	tracker  FeedbackRecorder

	botName   string
	botUserID string
}

// NewAPIClient builds the Web API client shared by the runtime, the
// history source and the user directory.
func NewAPIClient(cfg *config.Config) (*slack.Client, error) {
	if cfg.Slack.BotToken == "" {
		return nil, fmt.Errorf("slack.bot_token is required")
	}
	if !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
		return nil, fmt.Errorf("slack.app_token must be an app-level token starting with xapp-")
	}
	return slack.New(cfg.Slack.BotToken,
		slack.OptionDebug(cfg.Slack.Debug),
		slack.OptionAppLevelToken(cfg.Slack.AppToken),
	), nil
}

func NewRuntime(cfg *config.Config, client *slack.Client, answerer Answerer, roomsSvc *rooms.Service, tracker FeedbackRecorder) *Runtime {
	return &Runtime{
		api:      client,
		sock:     socketmode.New(client, socketmode.OptionDebug(cfg.Slack.Debug)),
		answerer: answerer,
		rooms:    roomsSvc,
		tracker:  tracker,
		botName:  cfg.BotName,
	}
}

// Run connects to Slack and processes events until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	resp, err := r.api.AuthTest()
	if err != nil {
		slog.Warn("slack auth test failed, mention stripping may misfire", "err", err)
	} else {
		r.botUserID = resp.UserID
		slog.Info("connected to slack", "bot_user", resp.UserID, "team", resp.Team)
	}

	go func() {
		for evt := range r.sock.Events {
			r.handleEvent(ctx, evt)
		}
	}()
	return r.sock.RunContext(ctx)
}

func (r *Runtime) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		slog.Info("connecting to slack socket mode")
	case socketmode.EventTypeConnected:
		slog.Info("slack socket mode connected")
	case socketmode.EventTypeConnectionError:
		slog.Warn("slack socket mode connection error", "data", evt.Data)
	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		r.ack(evt)
		r.handleEventsAPI(ctx, event)
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		r.ack(evt)
		go r.handleSlashCommand(ctx, cmd)
	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		r.ack(evt)
		go r.handleInteraction(ctx, callback)
	}
}

func (r *Runtime) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		go r.handleMention(ctx, ev)
	}
}

func (r *Runtime) ack(evt socketmode.Event) {
	if evt.Request != nil {
		r.sock.Ack(*evt.Request)
	}
}
