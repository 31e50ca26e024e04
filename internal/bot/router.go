package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Router receives every update no command matched
type Router struct {
	cleaner *SystemMessageCleaner
	relay   *Relay
}

// NewRouter creates a new Router. A nil relay disables relaying.
func NewRouter(cleaner *SystemMessageCleaner, relay *Relay) *Router {
	return &Router{cleaner: cleaner, relay: relay}
}

// Handle is a bot.HandlerFunc
func (r *Router) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if r.cleaner.Handle(ctx, msg) {
		return
	}
	if r.relay != nil {
		r.relay.Handle(ctx, msg)
	}
}
