// Package platformtest provides an in-memory platform.Guild for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// Guild is an in-memory guild. Entities keep insertion order, which stands in
// for the platform's iteration order. IDs are numeric strings.
type Guild struct {
	mu       sync.Mutex
	id       string
	nextID   int
	channels []*platform.Channel
	roles    []*platform.Role
	members  []*platform.Member
	failures map[string]error
	calls    []string
}

var _ platform.Guild = (*Guild)(nil)

// NewGuild returns an empty guild whose everyone role shares its id.
func NewGuild(id string) *Guild {
	g := &Guild{id: id, nextID: 1000, failures: map[string]error{}}
	g.roles = append(g.roles, &platform.Role{ID: id, Name: "@everyone"})
	return g
}

func (g *Guild) newID() string {
	g.nextID++
	return strconv.Itoa(g.nextID)
}

// AddChannel inserts c, assigning an id when c.ID is empty.
func (g *Guild) AddChannel(c platform.Channel) *platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c.ID == "" {
		c.ID = g.newID()
	}
	g.channels = append(g.channels, &c)
	return cloneChannel(&c)
}

// AddRole inserts r, assigning an id when r.ID is empty.
func (g *Guild) AddRole(r platform.Role) *platform.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r.ID == "" {
		r.ID = g.newID()
	}
	g.roles = append(g.roles, &r)
	cp := r
	return &cp
}

// AddMember inserts m, assigning an id when m.ID is empty.
func (g *Guild) AddMember(m platform.Member) *platform.Member {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m.ID == "" {
		m.ID = g.newID()
	}
	g.members = append(g.members, &m)
	return cloneMember(&m)
}

// Fail makes every later call of op (a Guild method name) return err.
// A nil err clears the failure.
func (g *Guild) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// Calls lists the mutating calls made so far, formatted as "Op(args)".
func (g *Guild) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// ChannelByName is a test helper returning the first channel named name.
func (g *Guild) ChannelByName(name string) *platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.channels {
		if c.Name == name {
			return cloneChannel(c)
		}
	}
	return nil
}

// RoleByName is a test helper returning the first role named name.
func (g *Guild) RoleByName(name string) *platform.Role {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.roles {
		if r.Name == name {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (g *Guild) fail(op string) error {
	return g.failures[op]
}

func (g *Guild) record(format string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *Guild) ID() string             { return g.id }
func (g *Guild) EveryoneRoleID() string { return g.id }

func (g *Guild) Channel(_ context.Context, id string) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Channel"); err != nil {
		return nil, err
	}
	for _, c := range g.channels {
		if c.ID == id {
			return cloneChannel(c), nil
		}
	}
	return nil, platform.ErrNotFound
}

func (g *Guild) Channels(context.Context) ([]*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Channels"); err != nil {
		return nil, err
	}
	out := make([]*platform.Channel, 0, len(g.channels))
	for _, c := range g.channels {
		out = append(out, cloneChannel(c))
	}
	return out, nil
}

func (g *Guild) Role(_ context.Context, id string) (*platform.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Role"); err != nil {
		return nil, err
	}
	for _, r := range g.roles {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (g *Guild) Roles(context.Context) ([]*platform.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Roles"); err != nil {
		return nil, err
	}
	out := make([]*platform.Role, 0, len(g.roles))
	for _, r := range g.roles {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (g *Guild) Member(_ context.Context, id string) (*platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Member"); err != nil {
		return nil, err
	}
	for _, m := range g.members {
		if m.ID == id {
			return cloneMember(m), nil
		}
	}
	return nil, platform.ErrNotFound
}

func (g *Guild) Members(context.Context) ([]*platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("Members"); err != nil {
		return nil, err
	}
	out := make([]*platform.Member, 0, len(g.members))
	for _, m := range g.members {
		out = append(out, cloneMember(m))
	}
	return out, nil
}

func (g *Guild) CreateChannel(_ context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("CreateChannel"); err != nil {
		return nil, err
	}
	c := &platform.Channel{
		ID:         g.newID(),
		Name:       spec.Name,
		Kind:       spec.Kind,
		ParentID:   spec.ParentID,
		Overwrites: append([]platform.Overwrite(nil), spec.Overwrites...),
	}
	g.channels = append(g.channels, c)
	g.record("CreateChannel(%s,%s)", spec.Kind, spec.Name)
	return cloneChannel(c), nil
}

func (g *Guild) DeleteChannel(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("DeleteChannel"); err != nil {
		return err
	}
	for i, c := range g.channels {
		if c.ID == id {
			g.channels = append(g.channels[:i], g.channels[i+1:]...)
			g.record("DeleteChannel(%s)", id)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (g *Guild) CreateRole(_ context.Context, spec platform.RoleSpec) (*platform.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("CreateRole"); err != nil {
		return nil, err
	}
	r := &platform.Role{ID: g.newID(), Name: spec.Name, Color: spec.Color, Permissions: spec.Permissions}
	g.roles = append(g.roles, r)
	g.record("CreateRole(%s)", spec.Name)
	cp := *r
	return &cp, nil
}

func (g *Guild) DeleteRole(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("DeleteRole"); err != nil {
		return err
	}
	for i, r := range g.roles {
		if r.ID == id {
			g.roles = append(g.roles[:i], g.roles[i+1:]...)
			g.record("DeleteRole(%s)", id)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (g *Guild) AddMemberRole(_ context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("AddMemberRole"); err != nil {
		return err
	}
	for _, m := range g.members {
		if m.ID == memberID {
			for _, r := range m.Roles {
				if r == roleID {
					return nil
				}
			}
			m.Roles = append(m.Roles, roleID)
			g.record("AddMemberRole(%s,%s)", memberID, roleID)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (g *Guild) RemoveMemberRole(_ context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("RemoveMemberRole"); err != nil {
		return err
	}
	for _, m := range g.members {
		if m.ID == memberID {
			kept := m.Roles[:0]
			for _, r := range m.Roles {
				if r != roleID {
					kept = append(kept, r)
				}
			}
			m.Roles = kept
			g.record("RemoveMemberRole(%s,%s)", memberID, roleID)
			return nil
		}
	}
	return platform.ErrNotFound
}

func (g *Guild) SetOverwrite(_ context.Context, channelID string, ow platform.Overwrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail("SetOverwrite"); err != nil {
		return err
	}
	for _, c := range g.channels {
		if c.ID != channelID {
			continue
		}
		for i := range c.Overwrites {
			if c.Overwrites[i].TargetID == ow.TargetID {
				c.Overwrites[i] = ow
				g.record("SetOverwrite(%s,%s)", channelID, ow.TargetID)
				return nil
			}
		}
		c.Overwrites = append(c.Overwrites, ow)
		g.record("SetOverwrite(%s,%s)", channelID, ow.TargetID)
		return nil
	}
	return platform.ErrNotFound
}

func cloneChannel(c *platform.Channel) *platform.Channel {
	cp := *c
	cp.Overwrites = append([]platform.Overwrite(nil), c.Overwrites...)
	return &cp
}

func cloneMember(m *platform.Member) *platform.Member {
	cp := *m
	cp.Roles = append([]string(nil), m.Roles...)
	return &cp
}

// Directory serves a fixed set of guilds.
type Directory map[string]*Guild

func (d Directory) Guild(_ context.Context, id string) (platform.Guild, error) {
	g, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", id, platform.ErrNotFound)
	}
	return g, nil
}
