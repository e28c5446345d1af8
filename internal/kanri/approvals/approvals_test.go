package approvals_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const guild = "900"

var (
	requester = platform.Actor{ID: "1", GuildID: guild, Permissions: platform.PermManageGuild}
	stranger  = platform.Actor{ID: "2", GuildID: guild, Permissions: platform.PermManageGuild}
	admin     = platform.Actor{ID: "3", GuildID: guild, Permissions: platform.PermAdministrator}
)

func newGate() (*approvals.Gate, *clock) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := approvals.NewStore(0, approvals.DefaultTTL, c.Now)
	return approvals.NewGate(store, approvals.DefaultTTL, c.Now), c
}

func request(g *approvals.Gate) *approvals.Pending {
	return g.Request(approvals.Request{
		RequesterID: requester.ID,
		GuildID:     guild,
		ChannelID:   "10",
		Actions:     actions.List{actions.DeleteChannel{Target: "general"}},
	})
}

func TestRequiresConfirmation(t *testing.T) {
	tests := []struct {
		name string
		list actions.List
		want bool
	}{
		{"empty", actions.List{}, false},
		{"nil", nil, false},
		{"create only", actions.List{actions.CreateChannel{}, actions.CreateRole{}}, false},
		{"every safe kind", actions.List{
			actions.CreateChannel{}, actions.CreateRole{}, actions.AssignRole{}, actions.RemoveRole{},
			actions.LockChannel{}, actions.UnlockChannel{}, actions.CreateCategory{}, actions.SetChannelPermissions{},
			actions.Unknown{Type: "delete_everything"},
		}, false},
		{"delete channel", actions.List{actions.CreateChannel{}, actions.DeleteChannel{}}, true},
		{"delete role", actions.List{actions.DeleteRole{}}, true},
	}
	for _, tt := range tests {
		if got := approvals.RequiresConfirmation(tt.list); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGate_ConfirmOnce(t *testing.T) {
	g, _ := newGate()
	p := request(g)
	if p.ExpiresAt.Sub(p.CreatedAt) != approvals.DefaultTTL {
		t.Fatalf("unexpected lifetime %v", p.ExpiresAt.Sub(p.CreatedAt))
	}

	got, err := g.Confirm(p.ID, requester)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(got.Actions) != 1 {
		t.Fatalf("expected stored actions, got %v", got.Actions)
	}

	if _, err := g.Confirm(p.ID, requester); !errors.Is(err, approvals.ErrAlreadyResolved) {
		t.Fatalf("second confirm: %v", err)
	}
	if _, err := g.Cancel(p.ID, requester); !errors.Is(err, approvals.ErrAlreadyResolved) {
		t.Fatalf("cancel after confirm: %v", err)
	}
}

func TestGate_CancelThenConfirm(t *testing.T) {
	g, _ := newGate()
	p := request(g)

	if _, err := g.Cancel(p.ID, requester); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := g.Confirm(p.ID, requester); !errors.Is(err, approvals.ErrAlreadyResolved) {
		t.Fatalf("confirm after cancel: %v", err)
	}
}

func TestGate_Authorization(t *testing.T) {
	g, _ := newGate()
	p := request(g)

	if _, err := g.Confirm(p.ID, stranger); !errors.Is(err, approvals.ErrUnauthorized) {
		t.Fatalf("stranger confirm: %v", err)
	}
	if _, err := g.Cancel(p.ID, stranger); !errors.Is(err, approvals.ErrUnauthorized) {
		t.Fatalf("stranger cancel: %v", err)
	}

	otherGuildAdmin := admin
	otherGuildAdmin.GuildID = "901"
	if _, err := g.Confirm(p.ID, otherGuildAdmin); !errors.Is(err, approvals.ErrNotFound) {
		t.Fatalf("foreign admin confirm: %v", err)
	}

	if g.Outstanding() != 1 {
		t.Fatal("rejected attempts must leave the confirmation pending")
	}
	if _, err := g.Confirm(p.ID, admin); err != nil {
		t.Fatalf("admin confirm: %v", err)
	}
}

func TestGate_Expiry(t *testing.T) {
	g, c := newGate()
	p := request(g)

	c.Advance(approvals.DefaultTTL - time.Second)
	if g.Expire(p.ID) {
		t.Fatal("expired too early")
	}

	c.Advance(time.Second)
	if _, err := g.Confirm(p.ID, requester); !errors.Is(err, approvals.ErrExpired) {
		t.Fatalf("late confirm: %v", err)
	}
	if _, err := g.Cancel(p.ID, requester); !errors.Is(err, approvals.ErrExpired) {
		t.Fatalf("late cancel: %v", err)
	}
}

func TestGate_ExpireAndSweep(t *testing.T) {
	g, c := newGate()
	a := request(g)
	request(g)

	c.Advance(approvals.DefaultTTL)
	if !g.Expire(a.ID) {
		t.Fatal("Expire should retire a past-deadline entry")
	}
	if g.Expire(a.ID) {
		t.Fatal("Expire should report false the second time")
	}
	if n := g.Outstanding(); n != 0 {
		t.Fatalf("outstanding = %d after sweep", n)
	}
}

func TestGate_UnknownID(t *testing.T) {
	g, _ := newGate()
	if _, err := g.Confirm("nope", requester); !errors.Is(err, approvals.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestGate_ConcurrentConfirmRunsOnce(t *testing.T) {
	g, _ := newGate()
	p := request(g)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Confirm(p.ID, requester); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("confirmation consumed %d times", wins.Load())
	}
}

func TestParseDecision(t *testing.T) {
	d, err := approvals.ParseDecision(approvals.ConfirmCustomID("abc"))
	if err != nil || !d.Confirm || d.ID != "abc" {
		t.Fatalf("confirm: %+v, %v", d, err)
	}
	d, err = approvals.ParseDecision(approvals.CancelCustomID("abc"))
	if err != nil || d.Confirm || d.ID != "abc" {
		t.Fatalf("cancel: %+v, %v", d, err)
	}
	for _, id := range []string{"", "other:confirm:abc", "kanri:approve:abc", "kanri:confirm"} {
		if _, err := approvals.ParseDecision(id); !errors.Is(err, approvals.ErrNotADecision) {
			t.Errorf("%q: expected ErrNotADecision, got %v", id, err)
		}
	}
	if _, err := approvals.ParseDecision("kanri:confirm:"); err == nil || errors.Is(err, approvals.ErrNotADecision) {
		t.Errorf("empty id should be a malformed decision, got %v", err)
	}
}
