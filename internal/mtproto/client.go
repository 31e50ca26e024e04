package mtproto

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

var (
	// ErrUnknownChannel is returned when no access hash can be found for a channel
	ErrUnknownChannel = errors.New("channel is not known to this session")
	// ErrUnsupportedPeer is returned for chat IDs a user session cannot address by ID alone
	ErrUnsupportedPeer = errors.New("unsupported peer")
)

// rpc is the subset of the raw API the session adapter calls
type rpc interface {
	ChannelsEditTitle(ctx context.Context, request *tg.ChannelsEditTitleRequest) (tg.UpdatesClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
	MessagesGetAllChats(ctx context.Context, exceptIDs []int64) (tg.MessagesChatsClass, error)
}

// MessageHandler receives every new message a session observes
type MessageHandler func(ctx context.Context, msg domain.Message)

// Options configures a Session
type Options struct {
	Name          string
	APIID         int
	APIHash       string
	SessionString string
	// OnMessage enables the update stream when set
	OnMessage MessageHandler
	Logger    domain.Logger
}

// Session is a logged-in MTProto user account
type Session struct {
	name      string
	client    *telegram.Client
	api       rpc
	onMessage MessageHandler
	logger    domain.Logger

	hashesMu sync.RWMutex
	hashes   map[int64]int64 // channel ID -> access hash

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a Session from an exported session string. The session is
// not connected until Run is called.
func New(ctx context.Context, opts Options) (*Session, error) {
	storage, err := NewSessionStorage(ctx, opts.SessionString)
	if err != nil {
		return nil, fmt.Errorf("%s session: %w", opts.Name, err)
	}

	s := &Session{
		name:      opts.Name,
		onMessage: opts.OnMessage,
		logger:    opts.Logger,
		hashes:    make(map[int64]int64),
		ready:     make(chan struct{}),
	}

	clientOpts := telegram.Options{
		SessionStorage: storage,
		NoUpdates:      opts.OnMessage == nil,
	}
	if opts.OnMessage != nil {
		clientOpts.UpdateHandler = s.updateHandler()
	}

	s.client = telegram.NewClient(opts.APIID, opts.APIHash, clientOpts)
	s.api = s.client.API()
	return s, nil
}

// Name returns the session's label
func (s *Session) Name() string {
	return s.name
}

// Run connects and blocks until ctx is cancelled or the connection fails
func (s *Session) Run(ctx context.Context) error {
	return s.client.Run(ctx, func(ctx context.Context) error {
		self, err := s.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("%s session is not authorized: %w", s.name, err)
		}
		s.logger.Info("mtproto session connected", "session", s.name, "user_id", self.ID, "username", self.Username)

		s.readyOnce.Do(func() { close(s.ready) })

		<-ctx.Done()
		return ctx.Err()
	})
}

// Ready is closed once the session is connected and authorized
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Self returns the logged-in user
func (s *Session) Self(ctx context.Context) (*tg.User, error) {
	return s.client.Self(ctx)
}

// Ping checks that the connection is alive
func (s *Session) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// EditChannelTitle renames the channel with the given raw ID
func (s *Session) EditChannelTitle(ctx context.Context, channelID int64, title string) error {
	channel, err := s.inputChannel(ctx, channelID)
	if err != nil {
		return err
	}

	_, err = s.api.ChannelsEditTitle(ctx, &tg.ChannelsEditTitleRequest{
		Channel: channel,
		Title:   title,
	})
	return wrapRPCError(err)
}

// EditMessage replaces the text and formatting of a message.
// chatID uses the Bot API convention.
func (s *Session) EditMessage(ctx context.Context, chatID int64, messageID int, text string, entities []tg.MessageEntityClass) error {
	peer, err := s.inputPeer(ctx, chatID)
	if err != nil {
		return err
	}

	req := &tg.MessagesEditMessageRequest{
		Peer: peer,
		ID:   messageID,
	}
	req.SetMessage(text)
	req.SetEntities(entities)

	_, err = s.api.MessagesEditMessage(ctx, req)
	return wrapRPCError(err)
}

// wrapRPCError marks "nothing changed" replies with domain.ErrNotModified
func wrapRPCError(err error) error {
	if err == nil {
		return nil
	}
	if tgerr.Is(err, "CHAT_NOT_MODIFIED", "MESSAGE_NOT_MODIFIED") {
		return fmt.Errorf("%w: %w", domain.ErrNotModified, err)
	}
	return err
}

func (s *Session) inputPeer(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	if channelID, ok := ChannelID(chatID); ok {
		channel, err := s.inputChannel(ctx, channelID)
		if err != nil {
			return nil, err
		}
		return &tg.InputPeerChannel{ChannelID: channel.ChannelID, AccessHash: channel.AccessHash}, nil
	}
	if chatID < 0 {
		return &tg.InputPeerChat{ChatID: -chatID}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedPeer, chatID)
}

// inputChannel resolves the access hash of a channel the account belongs to,
// listing the account's chats once on a cache miss
func (s *Session) inputChannel(ctx context.Context, channelID int64) (*tg.InputChannel, error) {
	if hash, ok := s.accessHash(channelID); ok {
		return &tg.InputChannel{ChannelID: channelID, AccessHash: hash}, nil
	}

	chats, err := s.api.MessagesGetAllChats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	s.rememberChats(chats.GetChats())

	if hash, ok := s.accessHash(channelID); ok {
		return &tg.InputChannel{ChannelID: channelID, AccessHash: hash}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, channelID)
}

func (s *Session) accessHash(channelID int64) (int64, bool) {
	s.hashesMu.RLock()
	defer s.hashesMu.RUnlock()
	hash, ok := s.hashes[channelID]
	return hash, ok
}

func (s *Session) rememberChats(chats []tg.ChatClass) {
	s.hashesMu.Lock()
	defer s.hashesMu.Unlock()
	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Channel:
			s.hashes[c.ID] = c.AccessHash
		case *tg.ChannelForbidden:
			s.hashes[c.ID] = c.AccessHash
		}
	}
}

func (s *Session) rememberChannels(channels map[int64]*tg.Channel) {
	if len(channels) == 0 {
		return
	}
	s.hashesMu.Lock()
	defer s.hashesMu.Unlock()
	for id, c := range channels {
		s.hashes[id] = c.AccessHash
	}
}
