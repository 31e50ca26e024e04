package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jollyunion/unionkeeper/internal/domain"
	"github.com/jollyunion/unionkeeper/internal/locale"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// CommandAPI is the part of the Bot API the admin commands need (for testing)
type CommandAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error)
}

// Handler serves the /new and /replace admin commands
type Handler struct {
	bot         CommandAPI
	publisher   domain.GroupPublisher
	groups      domain.GroupRepository
	indexChatID int64
	localizer   locale.Localizer
	logger      domain.Logger
}

// NewHandler creates a new Handler.
// Only administrators of indexChatID may run the commands.
func NewHandler(
	b CommandAPI,
	publisher domain.GroupPublisher,
	groups domain.GroupRepository,
	indexChatID int64,
	localizer locale.Localizer,
	logger domain.Logger,
) *Handler {
	return &Handler{
		bot:         b,
		publisher:   publisher,
		groups:      groups,
		indexChatID: indexChatID,
		localizer:   localizer,
		logger:      logger,
	}
}

// MatchCommand returns a matcher for "/name", "/name args" and "/name@bot args"
func MatchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, _ := splitCommand(update.Message.Text)
		return cmd == name
	}
}

// splitCommand returns the command name without slash or bot suffix, and the
// first argument
func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", ""
	}
	cmd, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	if len(fields) < 2 {
		return cmd, ""
	}
	return cmd, fields[1]
}

// HandleNew publishes the next group of the template named in the command
func (h *Handler) HandleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if !h.authorize(ctx, msg) {
		return
	}

	_, code := splitCommand(msg.Text)
	if code == "" {
		h.reply(ctx, msg, h.localizer.MustLocalize(locale.UsageNew))
		return
	}

	h.logger.Info("new group requested", "user_id", msg.From.ID, "user", displayName(msg.From), "template", code)
	h.publish(ctx, msg, code)
}

// HandleReplace marks a group as used and publishes a replacement for its template
func (h *Handler) HandleReplace(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if !h.authorize(ctx, msg) {
		return
	}

	_, arg := splitCommand(msg.Text)
	if arg == "" {
		h.reply(ctx, msg, h.localizer.MustLocalize(locale.UsageReplace))
		return
	}
	groupID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.ReplaceInvalidGroupID, arg))
		return
	}

	h.logger.Info("group replacement requested", "user_id", msg.From.ID, "user", displayName(msg.From), "group_id", groupID)

	group, err := h.groups.GetGroup(ctx, groupID)
	if err != nil || group == nil {
		if err != nil {
			h.logger.Error("failed to look up group", "group_id", groupID, "error", err)
		}
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.ReplaceGroupNotFound, arg))
		return
	}

	if err := h.groups.SetGroupClean(ctx, groupID, false); err != nil {
		h.logger.Error("failed to set dirty flag", "group_id", groupID, "error", err)
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.ReplaceDirtyFlagFailed, arg))
	}

	h.publish(ctx, msg, group.Template)
}

// publish runs the publication and reports the outcome to the caller
func (h *Handler) publish(ctx context.Context, msg *models.Message, code string) {
	err := h.publisher.Publish(ctx, code)
	switch {
	case err == nil:
		h.logger.Info("group published by admin", "user_id", msg.From.ID, "template", code)
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.Published, code))
	case domain.IsAlreadyPublished(err):
		h.logger.Warn("publication made no change", "template", code, "error", err)
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.PublishLikelyDone, code))
	case errors.Is(err, domain.ErrTemplateNotFound):
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.PublishTemplateNotFound, code))
	case errors.Is(err, domain.ErrGroupNotFound):
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.PublishNoCleanGroup, code))
	default:
		h.logger.Error("publication failed", "template", code, "error", err)
		h.reply(ctx, msg, h.localizer.MustLocalizeWithTemplate(locale.PublishFailed, code))
	}
}

// authorize shows the typing indicator and checks that the sender administers
// the index channel. Everyone else is logged and ignored.
func (h *Handler) authorize(ctx context.Context, msg *models.Message) bool {
	if msg == nil || msg.From == nil {
		return false
	}

	if _, err := h.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: msg.Chat.ID,
		Action: models.ChatActionTyping,
	}); err != nil {
		h.logger.Debug("failed to send chat action", "chat_id", msg.Chat.ID, "error", err)
	}

	admins, err := h.bot.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: h.indexChatID})
	if err != nil {
		h.logger.Error("failed to get index chat administrators", "chat_id", h.indexChatID, "error", err)
		return false
	}

	if !isAdministrator(admins, msg.From.ID) {
		h.logger.Warn("user is not an administrator of the index chat",
			"user_id", msg.From.ID,
			"user", displayName(msg.From))
		return false
	}
	return true
}

func (h *Handler) reply(ctx context.Context, msg *models.Message, text string) {
	if _, err := h.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	}); err != nil {
		h.logger.Error("failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func isAdministrator(members []models.ChatMember, userID int64) bool {
	for _, m := range members {
		switch {
		case m.Owner != nil && m.Owner.User != nil && m.Owner.User.ID == userID:
			return true
		case m.Administrator != nil && m.Administrator.User.ID == userID:
			return true
		}
	}
	return false
}

// displayName returns the username, or the first name when there is none
func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
