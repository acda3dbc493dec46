// Package slackbot connects the engine to Slack over Socket Mode:
// inbound mentions, slash commands and feedback buttons, outbound
// answer rendering, plus history and user-directory adapters.
package slackbot

import (
	"context"

	"github.com/slack-go/slack"
)

// API is the subset of the Slack Web API the bot touches. *slack.Client
// satisfies it; tests substitute a recorder.
type API interface {
	AuthTest() (*slack.AuthTestResponse, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
}
