package approvals

import (
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// Request describes a batch to hold for confirmation.
type Request struct {
	RequesterID string
	GuildID     string
	ChannelID   string
	TraceID     string
	Actions     actions.List
}

// Gate issues and resolves confirmations.
type Gate struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// NewGate returns a Gate over store. Zero ttl selects DefaultTTL; a nil
// clock uses time.Now and should match the store's.
func NewGate(store *Store, ttl time.Duration, now func() time.Time) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, ttl: ttl, now: now}
}

// Request stores a new pending confirmation for req.
func (g *Gate) Request(req Request) *Pending {
	now := g.now()
	p := &Pending{
		ID:          uuid.NewString(),
		RequesterID: req.RequesterID,
		GuildID:     req.GuildID,
		ChannelID:   req.ChannelID,
		TraceID:     req.TraceID,
		Actions:     req.Actions,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.ttl),
	}
	g.store.Put(p)
	return p
}

// authorize allows the requester, or an administrator of the same guild.
func authorize(actor platform.Actor) func(*Pending) error {
	return func(p *Pending) error {
		if actor.GuildID != p.GuildID {
			return ErrNotFound
		}
		if actor.ID == p.RequesterID || actor.IsAdministrator() {
			return nil
		}
		return ErrUnauthorized
	}
}

// Confirm consumes the confirmation and returns it for execution. The
// caller runs the actions; a second Confirm returns ErrAlreadyResolved.
func (g *Gate) Confirm(id string, actor platform.Actor) (*Pending, error) {
	return g.store.Resolve(id, StatusConfirmed, authorize(actor))
}

// Cancel discards the confirmation without running anything.
func (g *Gate) Cancel(id string, actor platform.Actor) (*Pending, error) {
	return g.store.Resolve(id, StatusCancelled, authorize(actor))
}

// Expire retires id once its deadline has passed. UI timers call it to
// disable the prompt.
func (g *Gate) Expire(id string) bool {
	return g.store.Expire(id)
}

// Outstanding sweeps expired entries and returns how many remain.
func (g *Gate) Outstanding() int {
	g.store.Sweep()
	return g.store.Len()
}
