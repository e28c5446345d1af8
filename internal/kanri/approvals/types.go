// Package approvals holds destructive action batches until the requester (or
// an administrator) confirms or cancels them.
//
// A pending confirmation lives for a fixed TTL. Expiry is checked whenever
// the entry is touched, so no sweeper is needed for correctness. Each entry
// is resolved at most once: confirming, cancelling and expiring all remove it.
package approvals

import (
	"errors"
	"time"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
)

// DefaultTTL is how long a confirmation prompt stays usable.
const DefaultTTL = 120 * time.Second

// Status is the terminal state of a resolved confirmation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var (
	ErrNotFound        = errors.New("approvals: no such confirmation")
	ErrExpired         = errors.New("approvals: confirmation expired")
	ErrAlreadyResolved = errors.New("approvals: confirmation already resolved")
	ErrUnauthorized    = errors.New("approvals: only the requester or an administrator may resolve this confirmation")
)

// Pending is a destructive batch awaiting a decision.
type Pending struct {
	ID          string
	RequesterID string
	GuildID     string
	ChannelID   string
	TraceID     string
	Actions     actions.List
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ExpiredAt reports whether the deadline has passed at now.
func (p *Pending) ExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// RequiresConfirmation reports whether list contains a destructive action.
// An empty list never does.
func RequiresConfirmation(list actions.List) bool {
	return list.Destructive()
}
