package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jollyunion/unionkeeper/internal/bot"
	"github.com/jollyunion/unionkeeper/internal/config"
	"github.com/jollyunion/unionkeeper/internal/domain"
	"github.com/jollyunion/unionkeeper/internal/locale"
	"github.com/jollyunion/unionkeeper/internal/logger"
	"github.com/jollyunion/unionkeeper/internal/mtproto"
	"github.com/jollyunion/unionkeeper/internal/storage"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	log.Info("Starting unionkeeper", "version", version, "log_level", cfg.LogLevel)

	// Initialize database
	db, queue, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	defer queue.Close()
	log.Info("Database opened", "path", cfg.DatabasePath)

	templates := storage.NewTemplateRepository(queue)
	groups := storage.NewGroupRepository(queue)
	topics := storage.NewTopicRepository(queue)

	localizer, err := locale.NewLocalizer(cfg.Locale)
	if err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Everything the auxiliary account sees goes through the moderation
	// trigger. The trigger is built once the sessions are up, so messages
	// wait here until then.
	observed := make(chan domain.Message, 256)
	aux, err := mtproto.New(ctx, mtproto.Options{
		Name:          "aux",
		APIID:         cfg.APIID,
		APIHash:       cfg.APIHash,
		SessionString: cfg.AuxSession,
		Logger:        log,
		OnMessage: func(ctx context.Context, msg domain.Message) {
			select {
			case observed <- msg:
			case <-ctx.Done():
			}
		},
	})
	if err != nil {
		return err
	}
	mainSession, err := mtproto.New(ctx, mtproto.Options{
		Name:          "main",
		APIID:         cfg.APIID,
		APIHash:       cfg.APIHash,
		SessionString: cfg.MainSession,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	var (
		wg         sync.WaitGroup
		sessionErr error
		errOnce    sync.Once
	)
	for _, s := range []*mtproto.Session{aux, mainSession} {
		wg.Add(1)
		go func(s *mtproto.Session) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mtproto session stopped", "session", s.Name(), "error", err)
				errOnce.Do(func() { sessionErr = err })
				cancel()
			}
		}(s)
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	for _, s := range []*mtproto.Session{aux, mainSession} {
		select {
		case <-s.Ready():
		case <-ctx.Done():
			wg.Wait()
			if sessionErr != nil {
				return sessionErr
			}
			return fmt.Errorf("%s session did not connect", s.Name())
		}
	}

	self, err := aux.Self(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auxiliary account: %w", err)
	}

	// Routed to once the bot is fully wired, before polling starts
	var router *bot.Router
	b, err := tgbot.New(cfg.BotToken, tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		router.Handle(ctx, b, update)
	}))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	log.Info("Telegram bot created")

	buffer := domain.NewEchoBuffer()
	invoker := domain.NewInvoker(logger.NewStatusLine(), nil, log)
	correlator := domain.NewCorrelator(buffer, cfg.EchoAttempts, cfg.EchoInterval, nil)
	publisher := domain.NewPublisher(
		templates,
		groups,
		aux,
		mainSession,
		b,
		correlator,
		invoker,
		cfg.IndexChatID,
		self.ID,
		log.With("component", "publisher"),
	)
	trigger := domain.NewModerationTrigger(buffer, cfg.SignalChatID, groups, publisher, log.With("component", "moderation"))

	// A publication waits for its echo on this same stream, so each message
	// is handled on its own goroutine
	go func() {
		for {
			select {
			case msg := <-observed:
				go trigger.HandleMessage(ctx, msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	handler := bot.NewHandler(b, publisher, groups, cfg.IndexChatID, localizer, log.With("component", "commands"))
	b.RegisterHandlerMatchFunc(bot.MatchCommand("new"), handler.HandleNew)
	b.RegisterHandlerMatchFunc(bot.MatchCommand("replace"), handler.HandleReplace)

	var relay *bot.Relay
	if cfg.TopicGroupID != 0 {
		relay = bot.NewRelay(b, topics, cfg.TopicGroupID, cfg.RelayPerMinute, localizer, log.With("component", "relay"))
		log.Info("Topic relay enabled", "topic_group_id", cfg.TopicGroupID)
	}
	router = bot.NewRouter(bot.NewSystemMessageCleaner(b, invoker, log), relay)
	log.Info("Command handlers registered")

	keepAlive, err := mtproto.NewKeepAlive(cfg.KeepAliveSchedule, log, aux, mainSession)
	if err != nil {
		return fmt.Errorf("invalid keep-alive schedule: %w", err)
	}
	if err := keepAlive.Start(ctx); err != nil {
		return err
	}
	defer keepAlive.Stop()

	go func() {
		log.Info("Starting bot polling")
		b.Start(ctx)
	}()

	log.Info("Bot is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping bot...")

	cancel()
	wg.Wait()
	return sessionErr
}
