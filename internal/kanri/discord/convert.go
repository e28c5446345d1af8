package discord

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/bdobrica/Kanri/internal/kanri/commands"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

func channelKind(t discordgo.ChannelType) platform.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return platform.ChannelText
	case discordgo.ChannelTypeGuildVoice:
		return platform.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		return platform.ChannelCategory
	default:
		return platform.ChannelOther
	}
}

func channelType(k platform.ChannelKind) discordgo.ChannelType {
	switch k {
	case platform.ChannelVoice:
		return discordgo.ChannelTypeGuildVoice
	case platform.ChannelCategory:
		return discordgo.ChannelTypeGuildCategory
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func toChannel(c *discordgo.Channel) *platform.Channel {
	ch := &platform.Channel{
		ID:       c.ID,
		Name:     c.Name,
		Kind:     channelKind(c.Type),
		ParentID: c.ParentID,
	}
	for _, ow := range c.PermissionOverwrites {
		ch.Overwrites = append(ch.Overwrites, toOverwrite(ow))
	}
	return ch
}

func toOverwrite(ow *discordgo.PermissionOverwrite) platform.Overwrite {
	typ := platform.TargetRole
	if ow.Type == discordgo.PermissionOverwriteTypeMember {
		typ = platform.TargetMember
	}
	return platform.Overwrite{
		TargetID:   ow.ID,
		TargetType: typ,
		Allow:      platform.Permissions(ow.Allow),
		Deny:       platform.Permissions(ow.Deny),
	}
}

func overwriteType(t platform.TargetType) discordgo.PermissionOverwriteType {
	if t == platform.TargetMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func fromOverwrite(ow platform.Overwrite) *discordgo.PermissionOverwrite {
	return &discordgo.PermissionOverwrite{
		ID:    ow.TargetID,
		Type:  overwriteType(ow.TargetType),
		Allow: int64(ow.Allow),
		Deny:  int64(ow.Deny),
	}
}

func toRole(r *discordgo.Role) *platform.Role {
	return &platform.Role{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Permissions: platform.Permissions(r.Permissions),
	}
}

func toMember(m *discordgo.Member) *platform.Member {
	out := &platform.Member{Roles: append([]string(nil), m.Roles...)}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.Discriminator = m.User.Discriminator
		out.DisplayName = m.User.GlobalName
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	return out
}

// actor builds the command issuer from an interaction. Outside a guild the
// actor has no permissions.
func actor(i *discordgo.Interaction) platform.Actor {
	if i.Member != nil && i.Member.User != nil {
		name := i.Member.User.GlobalName
		if name == "" {
			name = i.Member.User.Username
		}
		return platform.Actor{
			ID:          i.Member.User.ID,
			Name:        name,
			GuildID:     i.GuildID,
			Permissions: platform.Permissions(i.Member.Permissions),
		}
	}
	if i.User != nil {
		return platform.Actor{ID: i.User.ID, Name: i.User.Username}
	}
	return platform.Actor{}
}

// invocation translates a slash command interaction.
func invocation(i *discordgo.Interaction) *commands.Invocation {
	data := i.ApplicationCommandData()
	inv := &commands.Invocation{
		Name:      data.Name,
		Options:   make(map[string]string, len(data.Options)),
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Actor:     actor(i),
	}
	for _, opt := range data.Options {
		inv.Options[opt.Name] = optionValue(opt)
	}
	return inv
}

func optionValue(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionBoolean:
		return strconv.FormatBool(opt.BoolValue())
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(opt.IntValue(), 10)
	default:
		// Strings, and channel/role/user options, which carry an id.
		s, _ := opt.Value.(string)
		return s
	}
}

var optionTypes = map[commands.OptionType]discordgo.ApplicationCommandOptionType{
	commands.OptionString:  discordgo.ApplicationCommandOptionString,
	commands.OptionBool:    discordgo.ApplicationCommandOptionBoolean,
	commands.OptionInt:     discordgo.ApplicationCommandOptionInteger,
	commands.OptionChannel: discordgo.ApplicationCommandOptionChannel,
	commands.OptionRole:    discordgo.ApplicationCommandOptionRole,
	commands.OptionUser:    discordgo.ApplicationCommandOptionUser,
}

// applicationCommands converts command definitions for bulk registration.
// Required options come first, as Discord demands.
func applicationCommands(defs []commands.Definition) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, d := range defs {
		cmd := &discordgo.ApplicationCommand{
			Name:        d.Name,
			Description: d.Description,
		}
		if p := d.Permissions(); p != 0 {
			perms := int64(p)
			cmd.DefaultMemberPermissions = &perms
		}
		var optional []*discordgo.ApplicationCommandOption
		for _, o := range d.Options {
			opt := &discordgo.ApplicationCommandOption{
				Type:        optionTypes[o.Type],
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			}
			for _, c := range o.Choices {
				opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
			}
			if o.Required {
				cmd.Options = append(cmd.Options, opt)
			} else {
				optional = append(optional, opt)
			}
		}
		cmd.Options = append(cmd.Options, optional...)
		out = append(out, cmd)
	}
	return out
}
