package domain

import (
	"context"
	"strconv"
	"strings"
)

// ModerationTrigger consumes messages seen by the auxiliary session.
// Every message is buffered for echo correlation; posts in the signal chat
// that mention a clean group's ID take that group out of circulation and
// republish its template.
type ModerationTrigger struct {
	buffer       *EchoBuffer
	signalChatID int64
	groups       GroupRepository
	publisher    GroupPublisher
	logger       Logger
}

// NewModerationTrigger creates a new ModerationTrigger
func NewModerationTrigger(buffer *EchoBuffer, signalChatID int64, groups GroupRepository, publisher GroupPublisher, logger Logger) *ModerationTrigger {
	return &ModerationTrigger{
		buffer:       buffer,
		signalChatID: signalChatID,
		groups:       groups,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleMessage processes one observed message
func (m *ModerationTrigger) HandleMessage(ctx context.Context, msg Message) {
	m.buffer.Append(msg)

	if msg.ChatID != m.signalChatID {
		return
	}

	groups, err := m.groups.GetAllGroups(ctx)
	if err != nil {
		m.logger.Error("failed to list groups for takedown notice", "message_id", msg.ID, "error", err)
		return
	}

	group := affectedGroup(groups, msg.Text)
	if group == nil {
		m.logger.Debug("takedown notice matches no clean group", "message_id", msg.ID)
		return
	}

	m.logger.Warn("takedown notice received", "group_id", group.ID, "template", group.Template)

	if err := m.groups.SetGroupClean(ctx, group.ID, false); err != nil {
		m.logger.Error("failed to mark group as taken down", "group_id", group.ID, "error", err)
	}

	if err := m.publisher.Publish(ctx, group.Template); err != nil {
		if IsAlreadyPublished(err) {
			m.logger.Info("replacement group likely already published", "template", group.Template)
			return
		}
		m.logger.Error("failed to publish replacement group", "template", group.Template, "error", err)
		return
	}

	m.logger.Info("replacement group published", "template", group.Template, "taken_down", group.ID)
}

// affectedGroup returns the first clean group whose ID appears in text
func affectedGroup(groups []*Group, text string) *Group {
	for _, g := range groups {
		if g.Clean && strings.Contains(text, strconv.FormatInt(g.ID, 10)) {
			return g
		}
	}
	return nil
}
