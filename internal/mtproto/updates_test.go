package mtproto

import (
	"context"
	"sync"
	"testing"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collected struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (c *collected) handle(ctx context.Context, msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func TestShortMessageUpdate(t *testing.T) {
	var got collected
	s := newTestSession(&fakeRPC{})
	s.onMessage = got.handle
	entities := []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 0, Length: 4}}

	err := s.updateHandler().Handle(context.Background(), &tg.UpdateShortMessage{
		ID:       3,
		UserID:   777,
		Message:  "Name\nrest",
		Date:     1700000000,
		Entities: entities,
	})
	require.NoError(t, err)

	require.Len(t, got.msgs, 1)
	assert.Equal(t, domain.Message{ID: 3, ChatID: 777, Date: 1700000000, Text: "Name\nrest", Entities: entities}, got.msgs[0])
}

func TestChannelMessageUpdate(t *testing.T) {
	var got collected
	api := &fakeRPC{}
	s := newTestSession(api)
	s.onMessage = got.handle

	err := s.updateHandler().Handle(context.Background(), &tg.Updates{
		Updates: []tg.UpdateClass{
			&tg.UpdateNewChannelMessage{
				Message: &tg.Message{
					ID:      9,
					PeerID:  &tg.PeerChannel{ChannelID: 1333333333},
					Date:    1700000001,
					Message: "takedown 1500000002",
				},
			},
		},
		Chats: []tg.ChatClass{&tg.Channel{ID: 1333333333, AccessHash: 55}},
	})
	require.NoError(t, err)

	require.Len(t, got.msgs, 1)
	assert.Equal(t, int64(-1001333333333), got.msgs[0].ChatID)
	assert.Equal(t, "takedown 1500000002", got.msgs[0].Text)

	// The update taught the session the channel's access hash
	require.NoError(t, s.EditChannelTitle(context.Background(), 1333333333, "x"))
	assert.Zero(t, api.listCalls)
}

func TestServiceMessagesAreIgnored(t *testing.T) {
	var got collected
	s := newTestSession(&fakeRPC{})
	s.onMessage = got.handle

	err := s.updateHandler().Handle(context.Background(), &tg.Updates{
		Updates: []tg.UpdateClass{
			&tg.UpdateNewMessage{Message: &tg.MessageService{ID: 1, PeerID: &tg.PeerUser{UserID: 1}}},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, got.msgs)
}
