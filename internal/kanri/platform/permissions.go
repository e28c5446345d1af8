package platform

import "strings"

// Permissions is a Discord permission bit set.
type Permissions int64

// Bit values as documented by Discord.
const (
	PermCreateInstantInvite Permissions = 1 << 0
	PermKickMembers         Permissions = 1 << 1
	PermBanMembers          Permissions = 1 << 2
	PermAdministrator       Permissions = 1 << 3
	PermManageChannels      Permissions = 1 << 4
	PermManageGuild         Permissions = 1 << 5
	PermAddReactions        Permissions = 1 << 6
	PermViewAuditLog        Permissions = 1 << 7
	PermPrioritySpeaker     Permissions = 1 << 8
	PermStream              Permissions = 1 << 9
	PermViewChannel         Permissions = 1 << 10
	PermSendMessages        Permissions = 1 << 11
	PermSendTTSMessages     Permissions = 1 << 12
	PermManageMessages      Permissions = 1 << 13
	PermEmbedLinks          Permissions = 1 << 14
	PermAttachFiles         Permissions = 1 << 15
	PermReadMessageHistory  Permissions = 1 << 16
	PermMentionEveryone     Permissions = 1 << 17
	PermUseExternalEmojis   Permissions = 1 << 18
	PermConnect             Permissions = 1 << 20
	PermSpeak               Permissions = 1 << 21
	PermMuteMembers         Permissions = 1 << 22
	PermDeafenMembers       Permissions = 1 << 23
	PermMoveMembers         Permissions = 1 << 24
	PermUseVAD              Permissions = 1 << 25
	PermManageRoles         Permissions = 1 << 28
	PermManageWebhooks      Permissions = 1 << 29
)

// Has reports whether every bit of p is set.
func (s Permissions) Has(p Permissions) bool { return s&p == p }

var byName = map[string]Permissions{
	"create_instant_invite": PermCreateInstantInvite,
	"kick_members":          PermKickMembers,
	"ban_members":           PermBanMembers,
	"administrator":         PermAdministrator,
	"manage_channels":       PermManageChannels,
	"manage_guild":          PermManageGuild,
	"add_reactions":         PermAddReactions,
	"view_audit_log":        PermViewAuditLog,
	"priority_speaker":      PermPrioritySpeaker,
	"stream":                PermStream,
	"view_channel":          PermViewChannel,
	"read_messages":         PermViewChannel,
	"send_messages":         PermSendMessages,
	"send_tts_messages":     PermSendTTSMessages,
	"manage_messages":       PermManageMessages,
	"embed_links":           PermEmbedLinks,
	"attach_files":          PermAttachFiles,
	"read_message_history":  PermReadMessageHistory,
	"mention_everyone":      PermMentionEveryone,
	"use_external_emojis":   PermUseExternalEmojis,
	"connect":               PermConnect,
	"speak":                 PermSpeak,
	"mute_members":          PermMuteMembers,
	"deafen_members":        PermDeafenMembers,
	"move_members":          PermMoveMembers,
	"use_voice_activation":  PermUseVAD,
	"manage_roles":          PermManageRoles,
	"manage_permissions":    PermManageRoles,
	"manage_webhooks":       PermManageWebhooks,
}

// PermissionByName maps a snake_case permission key to its bit.
func PermissionByName(name string) (Permissions, bool) {
	p, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// TargetType says whether an overwrite applies to a role or a member.
type TargetType int

const (
	TargetRole TargetType = iota
	TargetMember
)

func (t TargetType) String() string {
	if t == TargetMember {
		return "user"
	}
	return "role"
}

// Overwrite is a per-target permission exception on a channel. A bit is
// allowed, denied, or neutral when set in neither mask.
type Overwrite struct {
	TargetID   string
	TargetType TargetType
	Allow      Permissions
	Deny       Permissions
}

// Set changes a single permission: true allows, false denies, nil makes it
// neutral. Other bits are left as they were.
func (o *Overwrite) Set(p Permissions, v *bool) {
	o.Allow &^= p
	o.Deny &^= p
	if v == nil {
		return
	}
	if *v {
		o.Allow |= p
	} else {
		o.Deny |= p
	}
}
