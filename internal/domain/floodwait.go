package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/gotd/td/tgerr"
)

// FloodWaitError asks the caller to wait Seconds before retrying
type FloodWaitError struct {
	Seconds int
	Err     error
}

func (e *FloodWaitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flood wait %ds: %v", e.Seconds, e.Err)
	}
	return fmt.Sprintf("flood wait %ds", e.Seconds)
}

func (e *FloodWaitError) Unwrap() error {
	return e.Err
}

// RetryAfter extracts the wait hint from a rate limited failure.
// MTProto FLOOD_WAIT_N and Bot API 429 responses are both recognised.
func RetryAfter(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.Seconds, true
	}

	if d, ok := tgerr.AsFloodWait(err); ok {
		return int(d / time.Second), true
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return tooMany.RetryAfter, true
	}

	return 0, false
}

// StatusSink receives live flood wait progress
type StatusSink interface {
	Countdown(label string, remaining int)
	Waited(label string, seconds int)
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopStatus struct{}

func (nopStatus) Countdown(string, int) {}
func (nopStatus) Waited(string, int)    {}

// Invoker runs remote operations, sitting out flood waits for as long as
// the remote asks and retrying from scratch every time
type Invoker struct {
	status StatusSink
	sleep  Sleeper
	logger Logger
}

// NewInvoker creates an Invoker. A nil status discards progress and a nil
// sleep uses SleepContext.
func NewInvoker(status StatusSink, sleep Sleeper, logger Logger) *Invoker {
	if status == nil {
		status = nopStatus{}
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &Invoker{
		status: status,
		sleep:  sleep,
		logger: logger,
	}
}

// Do runs op until it succeeds or fails with something other than a flood wait
func (i *Invoker) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		seconds, ok := RetryAfter(err)
		if !ok {
			return err
		}

		i.logger.Warn("flood wait", "operation", label, "seconds", seconds)
		if err := i.wait(ctx, label, seconds); err != nil {
			return err
		}
	}
}

// wait sleeps one second at a time so the sink gets a tick per second
func (i *Invoker) wait(ctx context.Context, label string, seconds int) error {
	for remaining := seconds - 1; remaining >= 0; remaining-- {
		if err := i.sleep(ctx, time.Second); err != nil {
			return err
		}
		i.status.Countdown(label, remaining)
	}
	i.status.Waited(label, seconds)
	return nil
}

// Invoke is Do for operations that return a value
func Invoke[T any](ctx context.Context, inv *Invoker, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := inv.Do(ctx, label, func(ctx context.Context) error {
		r, err := op(ctx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}
