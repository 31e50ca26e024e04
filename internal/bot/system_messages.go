package bot

import (
	"context"
	"strings"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const stepDeleteSystemMessage = "Delete System Message"

// MessageDeleter is an interface for deleting messages (for testing)
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// SystemMessageCleaner removes join, leave and rename notices from groups
type SystemMessageCleaner struct {
	bot     MessageDeleter
	invoker *domain.Invoker
	logger  domain.Logger
}

// NewSystemMessageCleaner creates a new SystemMessageCleaner.
// Rate limited deletions wait on invoker and are retried.
func NewSystemMessageCleaner(b MessageDeleter, invoker *domain.Invoker, logger domain.Logger) *SystemMessageCleaner {
	return &SystemMessageCleaner{bot: b, invoker: invoker, logger: logger}
}

// IsSystemMessage reports whether msg is a membership or title notice
func IsSystemMessage(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	return len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil || msg.NewChatTitle != ""
}

// Handle deletes msg if it is a system message and reports whether it was one.
// Deletion failures are logged and never returned.
func (c *SystemMessageCleaner) Handle(ctx context.Context, msg *models.Message) bool {
	if !IsSystemMessage(msg) {
		return false
	}

	err := c.invoker.Do(ctx, stepDeleteSystemMessage, func(ctx context.Context) error {
		_, err := c.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
		})
		return err
	})

	switch {
	case err == nil:
		c.logger.Debug("system message deleted", "chat_id", msg.Chat.ID, "message_id", msg.ID)
	case isMessageNotFoundError(err):
		c.logger.Info("message not found (may have been manually deleted)",
			"chat_id", msg.Chat.ID,
			"message_id", msg.ID)
	case isMessageTooOldError(err):
		c.logger.Info("message too old to delete (Telegram limitation)",
			"chat_id", msg.Chat.ID,
			"message_id", msg.ID)
	default:
		c.logger.Warn("system message deletion failed",
			"chat_id", msg.Chat.ID,
			"message_id", msg.ID,
			"error", err.Error())
	}
	return true
}

// isMessageNotFoundError checks if the error is a "message not found" error
func isMessageNotFoundError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "message to delete not found") ||
		strings.Contains(errStr, "message not found") ||
		strings.Contains(errStr, "MESSAGE_ID_INVALID")
}

// isMessageTooOldError checks if the error is a "message too old" error
func isMessageTooOldError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "message can't be deleted") ||
		strings.Contains(errStr, "message is too old") ||
		strings.Contains(errStr, "MESSAGE_DELETE_FORBIDDEN")
}
