package domain

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gotd/td/tg"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// TemplateRepository interface for template lookups.
// GetTemplate returns nil, nil when no template has the code.
type TemplateRepository interface {
	GetTemplate(ctx context.Context, code string) (*Template, error)
}

// GroupRepository interface for group operations.
// Single-group lookups return nil, nil when nothing matches.
type GroupRepository interface {
	GetGroup(ctx context.Context, groupID int64) (*Group, error)
	GetAllGroups(ctx context.Context) ([]*Group, error)
	FindReadyCleanGroup(ctx context.Context, templateCode string) (*Group, error)
	SetGroupClean(ctx context.Context, groupID int64, clean bool) error
}

// TopicRepository interface for the relay's user to thread mapping
type TopicRepository interface {
	GetThreadID(ctx context.Context, userID int64) (int, bool, error)
	GetUserID(ctx context.Context, threadID int) (int64, bool, error)
	SaveTopic(ctx context.Context, topic *UserTopic) error
}

// ChannelTitleEditor renames channels through a user session
type ChannelTitleEditor interface {
	EditChannelTitle(ctx context.Context, channelID int64, title string) error
}

// MessageEditor replaces the text and entities of an existing message
type MessageEditor interface {
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, entities []tg.MessageEntityClass) error
}

// BotInterface defines the bot operations needed to announce a publication
type BotInterface interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// GroupPublisher publishes the next clean group of a template
type GroupPublisher interface {
	Publish(ctx context.Context, templateCode string) error
}
