// Package platform describes the guild operations Kanri needs from a chat
// platform. The resolver and executor depend only on these types; the
// discord package implements them over the Discord API and platformtest
// implements them in memory.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by id lookups when the entity does not exist.
var ErrNotFound = errors.New("platform: not found")

// ChannelKind classifies a guild channel.
type ChannelKind int

const (
	ChannelOther ChannelKind = iota
	ChannelText
	ChannelVoice
	ChannelCategory
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelText:
		return "text"
	case ChannelVoice:
		return "voice"
	case ChannelCategory:
		return "category"
	default:
		return "other"
	}
}

// TextCapable reports whether members can post messages in the channel.
func (k ChannelKind) TextCapable() bool { return k == ChannelText }

// AcceptsOverwrites reports whether per-target permission overwrites can be
// edited through set_channel_permissions.
func (k ChannelKind) AcceptsOverwrites() bool { return k == ChannelText || k == ChannelVoice }

// Channel is a guild channel or category.
type Channel struct {
	ID         string
	Name       string
	Kind       ChannelKind
	ParentID   string
	Overwrites []Overwrite
}

// OverwriteFor returns a copy of the overwrite for target, or an empty one
// of the given type when the channel has none.
func (c *Channel) OverwriteFor(targetID string, typ TargetType) Overwrite {
	for _, ow := range c.Overwrites {
		if ow.TargetID == targetID {
			return ow
		}
	}
	return Overwrite{TargetID: targetID, TargetType: typ}
}

// Role is a guild role.
type Role struct {
	ID          string
	Name        string
	Color       int
	Permissions Permissions
}

// Member is a guild member.
type Member struct {
	ID            string
	Username      string
	Discriminator string
	DisplayName   string
	Roles         []string
}

// Tag returns username#discriminator, or the bare username for accounts
// without a legacy discriminator.
func (m *Member) Tag() string {
	if m.Discriminator == "" || m.Discriminator == "0" {
		return m.Username
	}
	return m.Username + "#" + m.Discriminator
}

// Name is the label used in result messages.
func (m *Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string
	Kind       ChannelKind
	ParentID   string
	Overwrites []Overwrite
}

// RoleSpec describes a role to create.
type RoleSpec struct {
	Name        string
	Color       int
	Permissions Permissions
}

// Actor is whoever issued a command, with their effective permissions in
// the guild the command came from.
type Actor struct {
	ID          string
	Name        string
	GuildID     string
	Permissions Permissions
}

// IsAdministrator reports whether the actor holds the Administrator bit.
func (a Actor) IsAdministrator() bool { return a.Permissions.Has(PermAdministrator) }

// CanManageGuild reports whether the actor may invoke administrative
// commands.
func (a Actor) CanManageGuild() bool {
	return a.IsAdministrator() || a.Permissions.Has(PermManageGuild)
}

func (a Actor) String() string {
	if a.Name == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// Guild is one administrative scope. Every method is a remote call that may
// fail independently.
type Guild interface {
	ID() string
	// EveryoneRoleID is the id of the role every member implicitly holds.
	EveryoneRoleID() string

	Channel(ctx context.Context, id string) (*Channel, error)
	Channels(ctx context.Context) ([]*Channel, error)
	Role(ctx context.Context, id string) (*Role, error)
	Roles(ctx context.Context) ([]*Role, error)
	Member(ctx context.Context, id string) (*Member, error)
	Members(ctx context.Context) ([]*Member, error)

	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, id string) error
	CreateRole(ctx context.Context, spec RoleSpec) (*Role, error)
	DeleteRole(ctx context.Context, id string) error
	AddMemberRole(ctx context.Context, memberID, roleID string) error
	RemoveMemberRole(ctx context.Context, memberID, roleID string) error
	// SetOverwrite replaces the overwrite for ow.TargetID on the channel.
	SetOverwrite(ctx context.Context, channelID string, ow Overwrite) error
}

// Directory looks up guilds by id.
type Directory interface {
	Guild(ctx context.Context, id string) (Guild, error)
}
