package domain

import (
	"context"
	"sync"
	"time"
)

// EchoBuffer keeps every message the auxiliary session has seen for the
// lifetime of the process. Entries are never evicted.
type EchoBuffer struct {
	mu       sync.RWMutex
	messages []Message
	byDate   map[int][]int
}

// NewEchoBuffer creates an empty EchoBuffer
func NewEchoBuffer() *EchoBuffer {
	return &EchoBuffer{
		byDate: make(map[int][]int),
	}
}

// Append records an observed message
func (b *EchoBuffer) Append(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.byDate[msg.Date] = append(b.byDate[msg.Date], len(b.messages))
	b.messages = append(b.messages, msg)
}

// Len returns the number of buffered messages
func (b *EchoBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// Find returns the earliest buffered message with the given date whose
// first line equals firstLine
func (b *EchoBuffer) Find(date int, firstLine string) (Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, idx := range b.byDate[date] {
		if FirstLine(b.messages[idx].Text) == firstLine {
			return b.messages[idx], true
		}
	}
	return Message{}, false
}

// Correlator finds the auxiliary session's copy of a message sent by the bot.
// Only the first line is compared since the relay path may alter the rest.
type Correlator struct {
	buffer   *EchoBuffer
	attempts int
	interval time.Duration
	sleep    Sleeper
}

// NewCorrelator creates a Correlator polling buffer attempts times, interval apart
func NewCorrelator(buffer *EchoBuffer, attempts int, interval time.Duration, sleep Sleeper) *Correlator {
	if sleep == nil {
		sleep = SleepContext
	}
	return &Correlator{
		buffer:   buffer,
		attempts: attempts,
		interval: interval,
		sleep:    sleep,
	}
}

// AwaitEcho returns the observed copy of sent, or nil once every attempt has
// missed. The only error is context cancellation.
func (c *Correlator) AwaitEcho(ctx context.Context, sent SentMessage) (*Message, error) {
	line := FirstLine(sent.Text)

	for attempt := 0; attempt < c.attempts; attempt++ {
		if msg, ok := c.buffer.Find(sent.Date, line); ok {
			return &msg, nil
		}
		if err := c.sleep(ctx, c.interval); err != nil {
			return nil, err
		}
	}

	return nil, nil
}
