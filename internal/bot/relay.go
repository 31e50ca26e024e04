package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jollyunion/unionkeeper/internal/domain"
	"github.com/jollyunion/unionkeeper/internal/locale"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// RelayAPI is the part of the Bot API the topic relay needs (for testing)
type RelayAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error)
	CreateForumTopic(ctx context.Context, params *bot.CreateForumTopicParams) (*models.ForumTopic, error)
	GetUserProfilePhotos(ctx context.Context, params *bot.GetUserProfilePhotosParams) (*models.UserProfilePhotos, error)
}

// Relay mirrors private conversations with the bot into per-user topics of
// a forum group, and copies replies written in those topics back to the user
type Relay struct {
	bot          RelayAPI
	topics       domain.TopicRepository
	topicGroupID int64
	limiter      *rate.Limiter
	localizer    locale.Localizer
	logger       domain.Logger

	// serialises topic creation so a user never gets two topics
	setupMu sync.Mutex
}

// NewRelay creates a new Relay. At most perMinute messages are sent per
// minute, in bursts of up to perMinute. Zero or less disables throttling.
func NewRelay(
	b RelayAPI,
	topics domain.TopicRepository,
	topicGroupID int64,
	perMinute int,
	localizer locale.Localizer,
	logger domain.Logger,
) *Relay {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}

	return &Relay{
		bot:          b,
		topics:       topics,
		topicGroupID: topicGroupID,
		limiter:      limiter,
		localizer:    localizer,
		logger:       logger,
	}
}

// Handle relays msg if it belongs to a private chat or a mapped topic and
// reports whether it was relayed
func (r *Relay) Handle(ctx context.Context, msg *models.Message) bool {
	if msg == nil {
		return false
	}

	switch {
	case msg.Chat.Type == models.ChatTypeSupergroup && msg.Chat.ID == r.topicGroupID:
		return r.toUser(ctx, msg)
	case msg.Chat.Type == models.ChatTypePrivate && msg.From != nil:
		return r.toTopic(ctx, msg)
	}
	return false
}

// toUser copies a topic message back to the user the topic belongs to
func (r *Relay) toUser(ctx context.Context, msg *models.Message) bool {
	if msg.MessageThreadID == 0 {
		return false
	}

	userID, ok, err := r.topics.GetUserID(ctx, msg.MessageThreadID)
	if err != nil {
		r.logger.Error("failed to look up topic owner", "thread_id", msg.MessageThreadID, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := r.copy(ctx, msg, userID, 0); err != nil {
		r.logger.Error("failed to relay message to user",
			"user_id", userID,
			"thread_id", msg.MessageThreadID,
			"error", err)
	}
	return true
}

// toTopic copies a private message into the sender's topic, creating it first
// if needed
func (r *Relay) toTopic(ctx context.Context, msg *models.Message) bool {
	threadID, err := r.threadFor(ctx, msg.From)
	if err != nil {
		r.logger.Error("failed to set up topic", "user_id", msg.From.ID, "error", err)
		return false
	}

	if err := r.copy(ctx, msg, r.topicGroupID, threadID); err != nil {
		r.logger.Error("failed to relay message to topic",
			"user_id", msg.From.ID,
			"thread_id", threadID,
			"error", err)
	}
	return true
}

func (r *Relay) copy(ctx context.Context, msg *models.Message, chatID int64, threadID int) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := r.bot.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:          chatID,
		MessageThreadID: threadID,
		FromChatID:      msg.Chat.ID,
		MessageID:       msg.ID,
	})
	return err
}

// threadFor returns the user's topic, creating it and posting the info card
// on first contact
func (r *Relay) threadFor(ctx context.Context, user *models.User) (int, error) {
	r.setupMu.Lock()
	defer r.setupMu.Unlock()

	threadID, ok, err := r.topics.GetThreadID(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up topic: %w", err)
	}
	if ok {
		return threadID, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	topic, err := r.bot.CreateForumTopic(ctx, &bot.CreateForumTopicParams{
		ChatID: r.topicGroupID,
		Name:   TopicName(user),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create topic: %w", err)
	}

	if err := r.topics.SaveTopic(ctx, &domain.UserTopic{UserID: user.ID, ThreadID: topic.MessageThreadID}); err != nil {
		return 0, fmt.Errorf("failed to save topic: %w", err)
	}
	r.logger.Info("topic created", "user_id", user.ID, "thread_id", topic.MessageThreadID)

	r.sendInfoCard(ctx, user, topic.MessageThreadID)
	return topic.MessageThreadID, nil
}

// sendInfoCard posts who the user is at the top of their topic, with their
// first profile photo when they have one. Failures are only logged.
func (r *Relay) sendInfoCard(ctx context.Context, user *models.User, threadID int) {
	card := r.infoCard(user)

	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	if fileID := r.profilePhoto(ctx, user.ID); fileID != "" {
		_, err := r.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          r.topicGroupID,
			MessageThreadID: threadID,
			Photo:           &models.InputFileString{Data: fileID},
			Caption:         card,
			ParseMode:       models.ParseModeHTML,
		})
		if err == nil {
			return
		}
		r.logger.Warn("failed to send info card photo", "user_id", user.ID, "error", err)
	}

	if _, err := r.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          r.topicGroupID,
		MessageThreadID: threadID,
		Text:            card,
		ParseMode:       models.ParseModeHTML,
	}); err != nil {
		r.logger.Warn("failed to send info card", "user_id", user.ID, "error", err)
	}
}

func (r *Relay) profilePhoto(ctx context.Context, userID int64) string {
	photos, err := r.bot.GetUserProfilePhotos(ctx, &bot.GetUserProfilePhotosParams{UserID: userID, Limit: 1})
	if err != nil {
		r.logger.Debug("failed to get profile photos", "user_id", userID, "error", err)
		return ""
	}
	if photos == nil || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return ""
	}
	return photos.Photos[0][0].FileID
}

// infoCard renders the HTML card describing user
func (r *Relay) infoCard(user *models.User) string {
	unset := "<i>" + html.EscapeString(r.localizer.MustLocalize(locale.RelayCardUnset)) + "</i>"

	lastName := unset
	if user.LastName != "" {
		lastName = html.EscapeString(user.LastName)
	}
	username := unset
	if user.Username != "" {
		username = "@" + html.EscapeString(user.Username)
	}

	lines := []string{
		r.localizer.MustLocalize(locale.RelayCardFirstName) + ": " + html.EscapeString(user.FirstName),
		r.localizer.MustLocalize(locale.RelayCardLastName) + ": " + lastName,
		r.localizer.MustLocalize(locale.RelayCardUsername) + ": " + username,
		r.localizer.MustLocalize(locale.RelayCardID) + ": <code>" + strconv.FormatInt(user.ID, 10) + "</code>",
	}
	return strings.Join(lines, "\n")
}

// TopicName names a user's topic "@username [id]", or "first name [id]"
// when the user has no username
func TopicName(user *models.User) string {
	name := user.FirstName
	if user.Username != "" {
		name = "@" + user.Username
	}
	return fmt.Sprintf("%s [%d]", name, user.ID)
}
