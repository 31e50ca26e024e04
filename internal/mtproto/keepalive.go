package mtproto

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"github.com/robfig/cron/v3"
)

const pingTimeout = 30 * time.Second

// Pinger is a connection that can be checked for liveness
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// KeepAlive pings every registered session on a cron schedule so that idle
// connections are noticed before a publication needs them
type KeepAlive struct {
	cron     *cron.Cron
	schedule string
	sessions []Pinger
	running  sync.Mutex
	logger   domain.Logger
	cancel   context.CancelFunc
}

// NewKeepAlive validates schedule and creates a KeepAlive.
// Standard five-field expressions and descriptors such as "@every 5m" are accepted.
func NewKeepAlive(schedule string, logger domain.Logger, sessions ...Pinger) (*KeepAlive, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid keep-alive schedule %q: %w", schedule, err)
	}

	return &KeepAlive{
		cron:     cron.New(cron.WithParser(parser)),
		schedule: schedule,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// Start schedules the pings
func (k *KeepAlive) Start(ctx context.Context) error {
	ctx, k.cancel = context.WithCancel(ctx)

	_, err := k.cron.AddFunc(k.schedule, func() { k.Tick(ctx) })
	if err != nil {
		k.cancel()
		return fmt.Errorf("failed to schedule keep-alive: %w", err)
	}

	k.cron.Start()
	k.logger.Info("keep-alive scheduled", "schedule", k.schedule, "sessions", len(k.sessions))
	return nil
}

// Tick pings every session once. A tick that overlaps a running one is skipped.
func (k *KeepAlive) Tick(ctx context.Context) {
	if !k.running.TryLock() {
		k.logger.Warn("keep-alive still running, skipping tick")
		return
	}
	defer k.running.Unlock()

	for _, s := range k.sessions {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.Ping(pingCtx)
		cancel()

		if err != nil {
			k.logger.Error("keep-alive ping failed", "session", s.Name(), "error", err)
			continue
		}
		k.logger.Debug("keep-alive ping ok", "session", s.Name())
	}
}

// Stop cancels pending pings and waits for a running tick to finish
func (k *KeepAlive) Stop() {
	if k.cancel != nil {
		k.cancel()
	}
	<-k.cron.Stop().Done()
}
