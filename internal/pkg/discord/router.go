package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router dispatches interactions by exact command name, or by custom ID
// prefix for message components.
type Router struct {
	middleware []MiddlewareFunc
	commands   map[string]HandlerFunc
	prefixes   []prefixRoute
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{commands: make(map[string]HandlerFunc)}
}

// Use appends middleware applied to every route. The first one added runs outermost.
func (r *Router) Use(mw ...MiddlewareFunc) {
	r.middleware = append(r.middleware, mw...)
}

// Handle registers a slash command handler with optional route middleware.
func (r *Router) Handle(command string, h HandlerFunc, mw ...MiddlewareFunc) {
	r.commands[command] = chain(h, mw)
}

// HandlePrefix registers a component handler for custom IDs starting with prefix.
func (r *Router) HandlePrefix(prefix string, h HandlerFunc, mw ...MiddlewareFunc) {
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, handler: chain(h, mw)})
}

// Match returns the handler registered for a route, without global middleware.
func (r *Router) Match(route string) (HandlerFunc, bool) {
	if h, ok := r.commands[route]; ok {
		return h, true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(route, p.prefix) {
			return p.handler, true
		}
	}
	return nil, false
}

// Dispatch runs the matching handler through the global middleware.
// Unknown routes are ignored.
func (r *Router) Dispatch(c Context) error {
	h, ok := r.Match(c.Route())
	if !ok {
		log.Debug().Str("route", c.Route()).Msg("No handler for interaction")
		return nil
	}
	return chain(h, r.middleware)(c)
}

// InteractionHandler returns a discordgo event handler bound to this router.
// Each interaction runs under its own deadline.
func (r *Router) InteractionHandler(timeout time.Duration) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c := NewContext(ctx, s, i)
		if err := r.Dispatch(c); err != nil {
			log.Error().Err(err).Str("route", c.Route()).Msg("Interaction handler failed")
		}
	}
}

func chain(h HandlerFunc, mw []MiddlewareFunc) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
