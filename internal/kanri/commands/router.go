// Package commands maps slash commands and confirmation buttons onto the
// pipeline and renders its reports as chat replies.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// ErrUnknownCommand is returned by Dispatch for unregistered names.
var ErrUnknownCommand = errors.New("commands: unknown command")

// Invocation is one slash command as received from the chat platform.
// Option values are strings; booleans are "true"/"false" and entity options
// carry the entity id.
type Invocation struct {
	Name      string
	Options   map[string]string
	GuildID   string
	ChannelID string
	Actor     platform.Actor
}

// Option returns the trimmed value of an option, or "".
func (inv *Invocation) Option(name string) string {
	return strings.TrimSpace(inv.Options[name])
}

// Bool returns an optional boolean option and whether it was set.
func (inv *Invocation) Bool(name string) (value, set bool) {
	v, ok := inv.Options[name]
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Int returns an integer option, or def when absent or malformed.
func (inv *Invocation) Int(name string, def int) int {
	n, err := strconv.Atoi(inv.Option(name))
	if err != nil {
		return def
	}
	return n
}

// Reply is what the platform layer sends back.
type Reply struct {
	Content   string
	Ephemeral bool
	// Pending, when set, asks for confirm and cancel buttons bound to it.
	Pending *approvals.Pending
	// PromptStatus, when set, replaces the text of the confirmation prompt a
	// button was pressed on and disables its buttons.
	PromptStatus string
}

// Handler handles one command.
type Handler func(ctx context.Context, inv *Invocation) (*Reply, error)

// Router routes invocations by command name.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds name to handler, replacing any previous binding.
func (r *Router) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// Dispatch runs the handler registered for inv.Name.
func (r *Router) Dispatch(ctx context.Context, inv *Invocation) (*Reply, error) {
	handler, ok := r.handlers[inv.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Name)
	}
	return handler(ctx, inv)
}
