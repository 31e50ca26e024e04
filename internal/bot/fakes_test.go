package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// mockLogger implements the domain.Logger interface for testing
type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, args ...interface{})  {}
func (m *mockLogger) Error(msg string, args ...interface{}) {}
func (m *mockLogger) Debug(msg string, args ...interface{}) {}
func (m *mockLogger) Warn(msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

// mockBot records every Bot API call the package makes
type mockBot struct {
	mu sync.Mutex

	admins    []models.ChatMember
	adminsErr error

	sent       []*bot.SendMessageParams
	photos     []*bot.SendPhotoParams
	copies     []*bot.CopyMessageParams
	topics     []*bot.CreateForumTopicParams
	actions    []*bot.SendChatActionParams
	deleted    []*bot.DeleteMessageParams
	nextThread int

	profilePhotos *models.UserProfilePhotos
	deleteErrs    []error
	copyErr       error
	topicErr      error
}

func (m *mockBot) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	return &models.Message{ID: len(m.sent)}, nil
}

func (m *mockBot) SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, params)
	return true, nil
}

func (m *mockBot) GetChatAdministrators(ctx context.Context, params *bot.GetChatAdministratorsParams) ([]models.ChatMember, error) {
	return m.admins, m.adminsErr
}

func (m *mockBot) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, params)
	if len(m.deleteErrs) > 0 {
		err := m.deleteErrs[0]
		m.deleteErrs = m.deleteErrs[1:]
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *mockBot) SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, params)
	return &models.Message{}, nil
}

func (m *mockBot) CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.copyErr != nil {
		return nil, m.copyErr
	}
	m.copies = append(m.copies, params)
	return &models.MessageID{ID: len(m.copies)}, nil
}

func (m *mockBot) CreateForumTopic(ctx context.Context, params *bot.CreateForumTopicParams) (*models.ForumTopic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topicErr != nil {
		return nil, m.topicErr
	}
	m.topics = append(m.topics, params)
	m.nextThread += 10
	return &models.ForumTopic{MessageThreadID: m.nextThread, Name: params.Name}, nil
}

func (m *mockBot) GetUserProfilePhotos(ctx context.Context, params *bot.GetUserProfilePhotosParams) (*models.UserProfilePhotos, error) {
	if m.profilePhotos == nil {
		return &models.UserProfilePhotos{}, nil
	}
	return m.profilePhotos, nil
}

func (m *mockBot) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, p := range m.sent {
		out = append(out, p.Text)
	}
	return out
}

// fakePublisher records requested templates and returns err
type fakePublisher struct {
	codes []string
	err   error
}

func (p *fakePublisher) Publish(ctx context.Context, templateCode string) error {
	p.codes = append(p.codes, templateCode)
	return p.err
}

// fakeGroupRepo is an in-memory GroupRepository
type fakeGroupRepo struct {
	groups   map[int64]*domain.Group
	cleanErr error
	calls    []string
}

func (r *fakeGroupRepo) GetGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	r.calls = append(r.calls, "get")
	return r.groups[groupID], nil
}

func (r *fakeGroupRepo) GetAllGroups(ctx context.Context) ([]*domain.Group, error) {
	out := make([]*domain.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeGroupRepo) FindReadyCleanGroup(ctx context.Context, templateCode string) (*domain.Group, error) {
	return nil, nil
}

func (r *fakeGroupRepo) SetGroupClean(ctx context.Context, groupID int64, clean bool) error {
	r.calls = append(r.calls, "clean")
	if r.cleanErr != nil {
		return r.cleanErr
	}
	if g, ok := r.groups[groupID]; ok {
		g.Clean = clean
	}
	return nil
}

// fakeTopicRepo is an in-memory TopicRepository
type fakeTopicRepo struct {
	mu      sync.Mutex
	threads map[int64]int
	saveErr error
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{threads: make(map[int64]int)}
}

func (r *fakeTopicRepo) GetThreadID(ctx context.Context, userID int64) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.threads[userID]
	return id, ok, nil
}

func (r *fakeTopicRepo) GetUserID(ctx context.Context, threadID int) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for user, thread := range r.threads {
		if thread == threadID {
			return user, true, nil
		}
	}
	return 0, false, nil
}

func (r *fakeTopicRepo) SaveTopic(ctx context.Context, topic *domain.UserTopic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.threads[topic.UserID] = topic.ThreadID
	return nil
}

var errBoom = errors.New("boom")
