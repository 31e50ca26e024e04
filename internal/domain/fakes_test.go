package domain

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gotd/td/tg"
)

// mockLogger implements the Logger interface for testing
type mockLogger struct{}

func (m *mockLogger) Info(msg string, args ...interface{})  {}
func (m *mockLogger) Error(msg string, args ...interface{}) {}
func (m *mockLogger) Debug(msg string, args ...interface{}) {}
func (m *mockLogger) Warn(msg string, args ...interface{})  {}

// recordingSleeper returns immediately and remembers every requested pause
type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
	onCall func(n int)
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	n := len(s.pauses)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(n)
	}
	return nil
}

func (s *recordingSleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.pauses {
		sum += d
	}
	return sum
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pauses)
}

type tick struct {
	label     string
	remaining int
}

// recordingStatus collects countdown ticks
type recordingStatus struct {
	ticks  []tick
	waited []int
}

func (s *recordingStatus) Countdown(label string, remaining int) {
	s.ticks = append(s.ticks, tick{label: label, remaining: remaining})
}

func (s *recordingStatus) Waited(label string, seconds int) {
	s.waited = append(s.waited, seconds)
}

// fakeTemplateRepo is an in-memory TemplateRepository
type fakeTemplateRepo struct {
	templates map[string]*Template
}

func (r *fakeTemplateRepo) GetTemplate(ctx context.Context, code string) (*Template, error) {
	return r.templates[code], nil
}

// fakeGroupRepo is an in-memory GroupRepository keeping insertion order
type fakeGroupRepo struct {
	mu       sync.Mutex
	groups   []*Group
	cleanErr error
}

func (r *fakeGroupRepo) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID == groupID {
			c := *g
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeGroupRepo) GetAllGroups(ctx context.Context) ([]*Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		c := *g
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeGroupRepo) FindReadyCleanGroup(ctx context.Context, templateCode string) (*Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.Eligible(templateCode) {
			c := *g
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeGroupRepo) SetGroupClean(ctx context.Context, groupID int64, clean bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanErr != nil {
		return r.cleanErr
	}
	for _, g := range r.groups {
		if g.ID == groupID {
			g.Clean = clean
		}
	}
	return nil
}

func (r *fakeGroupRepo) clean(groupID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID == groupID {
			return g.Clean
		}
	}
	return false
}

// fakeSession records MTProto calls made by the publisher
type fakeSession struct {
	titleErrs []error // consumed one per call, nil once exhausted
	editErrs  []error

	titles []string
	edits  []editCall
	calls  int
}

type editCall struct {
	chatID    int64
	messageID int
	text      string
	entities  []tg.MessageEntityClass
}

func (s *fakeSession) EditChannelTitle(ctx context.Context, channelID int64, title string) error {
	s.calls++
	s.titles = append(s.titles, title)
	if len(s.titleErrs) > 0 {
		err := s.titleErrs[0]
		s.titleErrs = s.titleErrs[1:]
		return err
	}
	return nil
}

func (s *fakeSession) EditMessage(ctx context.Context, chatID int64, messageID int, text string, entities []tg.MessageEntityClass) error {
	s.calls++
	s.edits = append(s.edits, editCall{chatID: chatID, messageID: messageID, text: text, entities: entities})
	if len(s.editErrs) > 0 {
		err := s.editErrs[0]
		s.editErrs = s.editErrs[1:]
		return err
	}
	return nil
}

// fakeBot answers SendMessage and optionally echoes into a buffer the way
// the auxiliary session would
type fakeBot struct {
	echoInto *EchoBuffer
	echoText func(sent string) string
	date     int
	nextID   int

	sent    []*bot.SendMessageParams
	deleted []*bot.DeleteMessageParams
	sendErr error
}

func (b *fakeBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	b.sent = append(b.sent, params)
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	b.nextID++
	text := renderedText(params.Text)
	msg := &models.Message{ID: b.nextID, Date: b.date, Text: text}
	if b.echoInto != nil {
		echoed := text
		if b.echoText != nil {
			echoed = b.echoText(text)
		}
		b.echoInto.Append(Message{
			ID:       1000 + b.nextID,
			ChatID:   555,
			Date:     b.date,
			Text:     echoed,
			Entities: []tg.MessageEntityClass{&tg.MessageEntityBold{Offset: 0, Length: 5}},
		})
	}
	return msg, nil
}

func (b *fakeBot) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	b.deleted = append(b.deleted, params)
	return true, nil
}

func (b *fakeBot) remoteCalls() int {
	return len(b.sent) + len(b.deleted)
}

// renderedText strips tags the way Telegram does when it parses HTML
func renderedText(html string) string {
	out := make([]rune, 0, len(html))
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out = append(out, r)
		}
	}
	return string(out)
}
