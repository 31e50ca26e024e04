package mtproto

import (
	"context"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
)

// updateHandler turns pushed updates into domain messages. Short updates
// are converted directly; everything else goes through the dispatcher.
func (s *Session) updateHandler() telegram.UpdateHandler {
	dispatcher := tg.NewUpdateDispatcher()

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		s.rememberChannels(e.Channels)
		s.observe(ctx, u.Message)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		s.rememberChannels(e.Channels)
		s.observe(ctx, u.Message)
		return nil
	})

	return telegram.UpdateHandlerFunc(func(ctx context.Context, updates tg.UpdatesClass) error {
		switch u := updates.(type) {
		case *tg.UpdateShortMessage:
			s.emit(ctx, domain.Message{
				ID:       u.ID,
				ChatID:   u.UserID,
				Date:     u.Date,
				Text:     u.Message,
				Entities: u.Entities,
			})
			return nil
		case *tg.UpdateShortChatMessage:
			s.emit(ctx, domain.Message{
				ID:       u.ID,
				ChatID:   -u.ChatID,
				Date:     u.Date,
				Text:     u.Message,
				Entities: u.Entities,
			})
			return nil
		}
		return dispatcher.Handle(ctx, updates)
	})
}

func (s *Session) observe(ctx context.Context, m tg.MessageClass) {
	msg, ok := m.(*tg.Message)
	if !ok {
		return
	}
	s.emit(ctx, messageFromTG(msg))
}

func (s *Session) emit(ctx context.Context, msg domain.Message) {
	if s.onMessage == nil {
		return
	}
	s.onMessage(ctx, msg)
}

func messageFromTG(m *tg.Message) domain.Message {
	return domain.Message{
		ID:       m.ID,
		ChatID:   ChatIDFromPeer(m.PeerID),
		Date:     m.Date,
		Text:     m.Message,
		Entities: m.Entities,
	}
}
