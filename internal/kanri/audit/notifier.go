// Package audit posts short summaries of administrative activity to an
// operator room, so moderators can follow what Kanri did without querying
// the audit log.
//
// Every notice carries the trace ID; `/trace id:<trace>` shows the full
// audit rows for it.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/Kanri/common/trace"
)

// Kind is the event category.
type Kind string

const (
	KindInstructionExecuted   Kind = "instruction.executed"
	KindInstructionFailed     Kind = "instruction.failed"
	KindConfirmationRequested Kind = "confirmation.requested"
	KindConfirmationConfirmed Kind = "confirmation.confirmed"
	KindConfirmationCancelled Kind = "confirmation.cancelled"
	KindConfirmationExpired   Kind = "confirmation.expired"
	KindDirectCommand         Kind = "command.executed"
	KindError                 Kind = "error"
)

// Event is one notification.
type Event struct {
	Kind    Kind
	GuildID string
	Actor   string
	Message string
	// TraceID defaults to the one in the context.
	TraceID   string
	Timestamp time.Time
}

// Notifier delivers events. Implementations log delivery failures instead of
// returning them.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// Sender posts a plain notice to a room or channel. The Matrix client and the
// Discord session both implement it.
type Sender interface {
	SendNotice(roomID, message string) error
}

// RoomNotifier formats events and posts them through a Sender.
type RoomNotifier struct {
	name   string
	sender Sender
	roomID string
}

// NewRoomNotifier posts to roomID through sender. name labels log lines
// ("matrix", "discord").
func NewRoomNotifier(name string, sender Sender, roomID string) *RoomNotifier {
	return &RoomNotifier{name: name, sender: sender, roomID: roomID}
}

// Notify sends evt. It does nothing when no room is configured.
func (n *RoomNotifier) Notify(ctx context.Context, evt Event) {
	if n.roomID == "" || n.sender == nil {
		return
	}
	if err := n.sender.SendNotice(n.roomID, Format(ctx, evt)); err != nil {
		slog.WarnContext(ctx, "audit notice not delivered",
			"notifier", n.name, "room", n.roomID, "kind", evt.Kind, "err", err)
		return
	}
	slog.DebugContext(ctx, "audit notice sent", "notifier", n.name, "kind", evt.Kind)
}

// Format renders evt as a short multi-line notice.
func Format(ctx context.Context, evt Event) string {
	tid := evt.TraceID
	if tid == "" {
		tid = trace.FromContext(ctx)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", icon(evt.Kind), evt.Kind, evt.Message)
	if evt.GuildID != "" {
		fmt.Fprintf(&b, "\n  guild: %s", evt.GuildID)
	}
	if evt.Actor != "" {
		fmt.Fprintf(&b, "\n  actor: %s", evt.Actor)
	}
	if tid != "" {
		fmt.Fprintf(&b, "\n  trace: %s", tid)
	}
	return b.String()
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, evt Event) {
	for _, n := range m {
		n.Notify(ctx, evt)
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

func icon(k Kind) string {
	switch k {
	case KindInstructionExecuted, KindDirectCommand:
		return "🛠️"
	case KindInstructionFailed:
		return "⚠️"
	case KindConfirmationRequested:
		return "🔔"
	case KindConfirmationConfirmed:
		return "✅"
	case KindConfirmationCancelled:
		return "❌"
	case KindConfirmationExpired:
		return "⌛"
	case KindError:
		return "🚨"
	default:
		return "ℹ️"
	}
}
