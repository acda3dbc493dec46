package bot

import (
	"errors"
	"fmt"

	"github.com/clementinebot/clementine/internal/feedback"
	"github.com/clementinebot/clementine/internal/history"
	"github.com/clementinebot/clementine/internal/qa"
	"github.com/clementinebot/clementine/internal/rooms"
)

// UserMessage turns a flow error into the line shown in the room.
// Actionable failures get specific wording; transient ones a generic
// retry line. The underlying cause goes to the log, never the room.
func UserMessage(err error, botName string) string {
	switch {
	case errors.Is(err, qa.ErrNoAssistantConfigured):
		return "No assistant is configured for this channel yet. An admin can set one with `/clementine config set assistants=<name>`."
	case errors.Is(err, rooms.ErrInvalidConfiguration):
		return err.Error()
	case errors.Is(err, history.ErrContextUnavailable):
		return fmt.Sprintf("%s couldn't read any history here. Check that the bot has been invited to this channel.", botName)
	case errors.Is(err, feedback.ErrUnknownAnswer):
		return "That answer is too old to rate."
	default:
		return GenericFailure(botName)
	}
}

// GenericFailure is the catch-all line for transient trouble.
func GenericFailure(botName string) string {
	return fmt.Sprintf("Oops, %s hit a snag. Please try again in a moment.", botName)
}
