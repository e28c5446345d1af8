package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

// membersPage is the largest page GuildMembers accepts.
const membersPage = 1000

// directory serves guilds the bot has joined. Listings always go to the REST
// API so an action sees what the actions before it created.
type directory struct {
	s *discordgo.Session
}

func (d directory) Guild(ctx context.Context, id string) (platform.Guild, error) {
	if id == "" {
		return nil, fmt.Errorf("discord: guild: %w", platform.ErrNotFound)
	}
	if _, err := d.s.State.Guild(id); err != nil {
		if _, err := d.s.Guild(id, discordgo.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("discord: guild %s: %w", id, wrap(err))
		}
	}
	return &guild{s: d.s, id: id}, nil
}

type guild struct {
	s  *discordgo.Session
	id string
}

var _ platform.Guild = (*guild)(nil)

// wrap maps a 404 to platform.ErrNotFound and keeps the REST error in the
// chain.
func wrap(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", platform.ErrNotFound, err)
	}
	return err
}

func (g *guild) ID() string             { return g.id }
func (g *guild) EveryoneRoleID() string { return g.id }

func (g *guild) Channel(ctx context.Context, id string) (*platform.Channel, error) {
	ch, err := g.s.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err)
	}
	if ch.GuildID != g.id {
		return nil, platform.ErrNotFound
	}
	return toChannel(ch), nil
}

func (g *guild) Channels(ctx context.Context) ([]*platform.Channel, error) {
	chs, err := g.s.GuildChannels(g.id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]*platform.Channel, 0, len(chs))
	for _, c := range chs {
		out = append(out, toChannel(c))
	}
	return out, nil
}

func (g *guild) Role(ctx context.Context, id string) (*platform.Role, error) {
	roles, err := g.Roles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (g *guild) Roles(ctx context.Context) ([]*platform.Role, error) {
	roles, err := g.s.GuildRoles(g.id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]*platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRole(r))
	}
	return out, nil
}

// Member prefers the state cache, which the members intent keeps current.
func (g *guild) Member(ctx context.Context, id string) (*platform.Member, error) {
	if m, err := g.s.State.Member(g.id, id); err == nil {
		return toMember(m), nil
	}
	m, err := g.s.GuildMember(g.id, id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err)
	}
	return toMember(m), nil
}

func (g *guild) Members(ctx context.Context) ([]*platform.Member, error) {
	var (
		out   []*platform.Member
		after string
	)
	for {
		page, err := g.s.GuildMembers(g.id, after, membersPage, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap(err)
		}
		for _, m := range page {
			out = append(out, toMember(m))
		}
		if len(page) < membersPage {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (g *guild) CreateChannel(ctx context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:     spec.Name,
		Type:     channelType(spec.Kind),
		ParentID: spec.ParentID,
	}
	for _, ow := range spec.Overwrites {
		data.PermissionOverwrites = append(data.PermissionOverwrites, fromOverwrite(ow))
	}
	ch, err := g.s.GuildChannelCreateComplex(g.id, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return toChannel(ch), nil
}

func (g *guild) DeleteChannel(ctx context.Context, id string) error {
	_, err := g.s.ChannelDelete(id, discordgo.WithContext(ctx))
	return err
}

func (g *guild) CreateRole(ctx context.Context, spec platform.RoleSpec) (*platform.Role, error) {
	color := spec.Color
	perms := int64(spec.Permissions)
	r, err := g.s.GuildRoleCreate(g.id, &discordgo.RoleParams{
		Name:        spec.Name,
		Color:       &color,
		Permissions: &perms,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return toRole(r), nil
}

func (g *guild) DeleteRole(ctx context.Context, id string) error {
	return g.s.GuildRoleDelete(g.id, id, discordgo.WithContext(ctx))
}

func (g *guild) AddMemberRole(ctx context.Context, memberID, roleID string) error {
	return g.s.GuildMemberRoleAdd(g.id, memberID, roleID, discordgo.WithContext(ctx))
}

func (g *guild) RemoveMemberRole(ctx context.Context, memberID, roleID string) error {
	return g.s.GuildMemberRoleRemove(g.id, memberID, roleID, discordgo.WithContext(ctx))
}

func (g *guild) SetOverwrite(ctx context.Context, channelID string, ow platform.Overwrite) error {
	return g.s.ChannelPermissionSet(channelID, ow.TargetID, overwriteType(ow.TargetType),
		int64(ow.Allow), int64(ow.Deny), discordgo.WithContext(ctx))
}
