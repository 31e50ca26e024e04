package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Publication steps, used in PublishError and as flood wait labels
const (
	StepPrepareGroup = "Prepare Group"
	StepAnnounce     = "Announce"
	StepEcho         = "Receive Echo"
	StepPublishGroup = "Publish Group"
	StepCleanup      = "Cleanup"
)

// markUsedTimeout bounds the compensating update once ctx is gone
const markUsedTimeout = 10 * time.Second

// PublishError reports a publication that failed after a group was selected.
// The group has already been marked as used when this is returned.
type PublishError struct {
	Template string
	GroupID  int64
	Step     string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s with group %d failed at %s: %v", e.Template, e.GroupID, e.Step, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsAlreadyPublished reports whether err means the remote saw nothing to change,
// which in practice means the replacement group was published earlier
func IsAlreadyPublished(err error) bool {
	return errors.Is(err, ErrNotModified)
}

// Publisher moves a template's listing to its next clean group: it renames
// the group's channel, has the bot send the listing to the auxiliary user,
// waits for the auxiliary session to see it, copies the rendered text and
// entities into the index channel and removes the bot's copy
type Publisher struct {
	templates   TemplateRepository
	groups      GroupRepository
	titles      ChannelTitleEditor
	index       MessageEditor
	bot         BotInterface
	correlator  *Correlator
	invoker     *Invoker
	indexChatID int64
	echoChatID  int64
	logger      Logger
	locks       keyedMutex
}

// NewPublisher creates a new Publisher.
// echoChatID is the auxiliary user's ID, the chat the bot announces into.
func NewPublisher(
	templates TemplateRepository,
	groups GroupRepository,
	titles ChannelTitleEditor,
	index MessageEditor,
	b BotInterface,
	correlator *Correlator,
	invoker *Invoker,
	indexChatID int64,
	echoChatID int64,
	logger Logger,
) *Publisher {
	return &Publisher{
		templates:   templates,
		groups:      groups,
		titles:      titles,
		index:       index,
		bot:         b,
		correlator:  correlator,
		invoker:     invoker,
		indexChatID: indexChatID,
		echoChatID:  echoChatID,
		logger:      logger,
	}
}

// Publish lists the next ready clean group of templateCode in the index channel.
// Lookup failures return ErrTemplateNotFound or ErrGroupNotFound without side
// effects; anything later returns a *PublishError.
func (p *Publisher) Publish(ctx context.Context, templateCode string) error {
	unlock := p.locks.Lock(templateCode)
	defer unlock()

	template, err := p.templates.GetTemplate(ctx, templateCode)
	if err != nil {
		return fmt.Errorf("failed to get template %s: %w", templateCode, err)
	}
	if template == nil {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateCode)
	}

	group, err := p.groups.FindReadyCleanGroup(ctx, templateCode)
	if err != nil {
		return fmt.Errorf("failed to find group for %s: %w", templateCode, err)
	}
	if group == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, templateCode)
	}

	p.logger.Info("publishing group", "template", templateCode, "group_id", group.ID)

	step, err := p.publish(ctx, template, group)

	// The group is spent whether or not the publication went through,
	// including when ctx was cancelled half way
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markUsedTimeout)
	defer cancel()
	if cleanErr := p.groups.SetGroupClean(markCtx, group.ID, false); cleanErr != nil {
		p.logger.Error("failed to mark group as used", "group_id", group.ID, "error", cleanErr)
	}

	if err != nil {
		return &PublishError{
			Template: templateCode,
			GroupID:  group.ID,
			Step:     step,
			Err:      err,
		}
	}

	p.logger.Info("group published", "template", templateCode, "group_id", group.ID)
	return nil
}

// publish runs the remote steps in order and returns the failing step
func (p *Publisher) publish(ctx context.Context, t *Template, g *Group) (string, error) {
	title := GroupTitle(t, g)
	err := p.invoker.Do(ctx, StepPrepareGroup, func(ctx context.Context) error {
		return p.titles.EditChannelTitle(ctx, g.ID, title)
	})
	if err != nil {
		return StepPrepareGroup, err
	}

	sent, err := p.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    p.echoChatID,
		Text:      ComposeIndexMessage(t, g.InviteLink),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return StepAnnounce, err
	}

	echo, err := p.correlator.AwaitEcho(ctx, SentMessage{
		ChatID: p.echoChatID,
		ID:     sent.ID,
		Date:   sent.Date,
		Text:   sent.Text,
	})
	if err != nil {
		return StepEcho, err
	}
	if echo == nil {
		return StepEcho, ErrEchoNotReceived
	}

	indexChatID := t.IndexRef.ChatID
	if indexChatID == 0 {
		indexChatID = p.indexChatID
	}
	err = p.invoker.Do(ctx, StepPublishGroup, func(ctx context.Context) error {
		return p.index.EditMessage(ctx, indexChatID, t.IndexRef.MessageID, echo.Text, echo.Entities)
	})
	if err != nil {
		return StepPublishGroup, err
	}

	_, err = p.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    p.echoChatID,
		MessageID: sent.ID,
	})
	if err != nil {
		return StepCleanup, err
	}

	return "", nil
}

// keyedMutex serialises work per key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
