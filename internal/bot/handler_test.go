package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jollyunion/unionkeeper/internal/domain"
	"github.com/jollyunion/unionkeeper/internal/locale"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIndexChat = int64(-1001111111111)
	testAdmin     = int64(42)
	testOwner     = int64(1)
	testStranger  = int64(99)
)

func newTestHandler(t *testing.T, publisher *fakePublisher, groups *fakeGroupRepo) (*Handler, *mockBot, *mockLogger) {
	t.Helper()

	loc, err := locale.NewLocalizer(locale.En)
	require.NoError(t, err)

	b := &mockBot{
		admins: []models.ChatMember{
			{Type: models.ChatMemberTypeOwner, Owner: &models.ChatMemberOwner{User: &models.User{ID: testOwner}}},
			{Type: models.ChatMemberTypeAdministrator, Administrator: &models.ChatMemberAdministrator{User: models.User{ID: testAdmin}}},
		},
	}
	if groups == nil {
		groups = &fakeGroupRepo{groups: map[int64]*domain.Group{}}
	}
	log := &mockLogger{}
	return NewHandler(b, publisher, groups, testIndexChat, loc, log), b, log
}

func command(from int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   5,
			Chat: models.Chat{ID: from, Type: models.ChatTypePrivate},
			From: &models.User{ID: from, FirstName: "Ann", Username: "ann"},
			Text: text,
		},
	}
}

func TestNewPublishesTemplate(t *testing.T) {
	publisher := &fakePublisher{}
	h, b, _ := newTestHandler(t, publisher, nil)

	h.HandleNew(context.Background(), nil, command(testAdmin, "/new wt"))

	assert.Equal(t, []string{"wt"}, publisher.codes)
	assert.Equal(t, []string{"Published new wt group"}, b.texts())
	require.Len(t, b.actions, 1)
	assert.Equal(t, models.ChatActionTyping, b.actions[0].Action)
}

func TestOwnerIsAuthorized(t *testing.T) {
	publisher := &fakePublisher{}
	h, _, _ := newTestHandler(t, publisher, nil)

	h.HandleNew(context.Background(), nil, command(testOwner, "/new@unionbot wt"))

	assert.Equal(t, []string{"wt"}, publisher.codes)
}

func TestStrangersAreIgnored(t *testing.T) {
	publisher := &fakePublisher{}
	groups := &fakeGroupRepo{groups: map[int64]*domain.Group{7: {ID: 7, Template: "wt", Clean: true}}}
	h, b, log := newTestHandler(t, publisher, groups)

	h.HandleNew(context.Background(), nil, command(testStranger, "/new wt"))
	h.HandleReplace(context.Background(), nil, command(testStranger, "/replace 7"))

	assert.Empty(t, publisher.codes)
	assert.Empty(t, groups.calls)
	assert.Empty(t, b.texts(), "unauthorized callers get no reply")
	assert.Len(t, log.warns, 2)
	assert.True(t, groups.groups[7].Clean)
}

func TestAdministratorLookupFailure(t *testing.T) {
	publisher := &fakePublisher{}
	h, b, _ := newTestHandler(t, publisher, nil)
	b.adminsErr = errBoom

	h.HandleNew(context.Background(), nil, command(testAdmin, "/new wt"))

	assert.Empty(t, publisher.codes)
	assert.Empty(t, b.texts())
}

func TestNewUsage(t *testing.T) {
	publisher := &fakePublisher{}
	h, b, _ := newTestHandler(t, publisher, nil)

	h.HandleNew(context.Background(), nil, command(testAdmin, "/new"))

	assert.Empty(t, publisher.codes)
	assert.Equal(t, []string{"Usage: /new <template code>"}, b.texts())
}

func TestNewReportsFailures(t *testing.T) {
	notModified := &domain.PublishError{
		Template: "wt",
		GroupID:  300,
		Step:     domain.StepPrepareGroup,
		Err:      fmt.Errorf("%w: %w", errors.New("rpc error code 400: CHAT_NOT_MODIFIED"), domain.ErrNotModified),
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"already published", notModified, "Could not publish new wt group. Replacement group likely already published"},
		{"unknown template", fmt.Errorf("%w: wt", domain.ErrTemplateNotFound), "Template wt not found"},
		{"no clean group", fmt.Errorf("%w: wt", domain.ErrGroupNotFound), "No ready clean wt group left to publish"},
		{"remote failure", &domain.PublishError{Template: "wt", Step: domain.StepEcho, Err: domain.ErrEchoNotReceived}, "Could not publish new wt group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, b, _ := newTestHandler(t, &fakePublisher{err: tt.err}, nil)

			h.HandleNew(context.Background(), nil, command(testAdmin, "/new wt"))

			assert.Equal(t, []string{tt.want}, b.texts())
		})
	}
}

func TestReplaceMarksGroupDirtyBeforePublishing(t *testing.T) {
	publisher := &fakePublisher{}
	groups := &fakeGroupRepo{groups: map[int64]*domain.Group{
		1500000002: {ID: 1500000002, Template: "wt", Status: domain.GroupStatusReady, Clean: true},
	}}
	h, b, _ := newTestHandler(t, publisher, groups)

	h.HandleReplace(context.Background(), nil, command(testAdmin, "/replace 1500000002"))

	assert.Equal(t, []string{"get", "clean"}, groups.calls)
	assert.False(t, groups.groups[1500000002].Clean)
	assert.Equal(t, []string{"wt"}, publisher.codes)
	assert.Equal(t, []string{"Published new wt group"}, b.texts())
}

func TestReplaceUnknownGroup(t *testing.T) {
	publisher := &fakePublisher{}
	h, b, _ := newTestHandler(t, publisher, nil)

	h.HandleReplace(context.Background(), nil, command(testAdmin, "/replace 123"))

	assert.Empty(t, publisher.codes)
	assert.Equal(t, []string{"Group 123 not found"}, b.texts())
}

func TestReplaceContinuesWhenDirtyFlagFails(t *testing.T) {
	publisher := &fakePublisher{}
	groups := &fakeGroupRepo{
		groups:   map[int64]*domain.Group{7: {ID: 7, Template: "wt", Clean: true}},
		cleanErr: errBoom,
	}
	h, b, _ := newTestHandler(t, publisher, groups)

	h.HandleReplace(context.Background(), nil, command(testAdmin, "/replace 7"))

	assert.Equal(t, []string{"wt"}, publisher.codes)
	assert.Equal(t, []string{
		"Could not set dirty flag for group 7, group may be reused",
		"Published new wt group",
	}, b.texts())
}

func TestReplaceRejectsBadArguments(t *testing.T) {
	publisher := &fakePublisher{}
	h, b, _ := newTestHandler(t, publisher, nil)

	h.HandleReplace(context.Background(), nil, command(testAdmin, "/replace"))
	h.HandleReplace(context.Background(), nil, command(testAdmin, "/replace wt"))

	assert.Empty(t, publisher.codes)
	assert.Equal(t, []string{"Usage: /replace <group id>", "wt is not a group id"}, b.texts())
}

func TestMatchCommand(t *testing.T) {
	match := MatchCommand("new")

	tests := []struct {
		text string
		want bool
	}{
		{"/new wt", true},
		{"/new", true},
		{"/new@unionbot wt", true},
		{"  /new   wt  ", true},
		{"/newer wt", false},
		{"/replace 7", false},
		{"new wt", false},
		{"", false},
	}
	for _, tt := range tests {
		got := match(&models.Update{Message: &models.Message{Text: tt.text}})
		assert.Equal(t, tt.want, got, "%q", tt.text)
	}

	assert.False(t, match(&models.Update{}))
}
