package commands

import "github.com/bdobrica/Kanri/internal/kanri/platform"

// OptionType is the kind of value a command option takes.
type OptionType int

const (
	OptionString OptionType = iota
	OptionBool
	OptionInt
	OptionChannel
	OptionRole
	OptionUser
)

// Option describes one command option.
type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []string
}

// Definition describes one slash command for registration.
type Definition struct {
	Name        string
	Description string
	Options     []Option
	// Admin commands are hidden from members without Manage Server.
	Admin bool
}

// Permissions is the default member permission set for the definition, or
// zero for everyone.
func (d Definition) Permissions() platform.Permissions {
	if d.Admin {
		return platform.PermManageGuild
	}
	return 0
}

var permissionOptions = []Option{
	{Name: "send_messages", Description: "Allow/deny sending messages (text channels)", Type: OptionBool},
	{Name: "view_channel", Description: "Allow/deny viewing the channel", Type: OptionBool},
	{Name: "manage_messages", Description: "Allow/deny managing messages (delete, pin, etc.)", Type: OptionBool},
	{Name: "connect", Description: "Allow/deny connecting to voice channel", Type: OptionBool},
	{Name: "speak", Description: "Allow/deny speaking in voice channel", Type: OptionBool},
}

// Definitions lists every command Kanri registers.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        "server_ai",
			Description: "Give the bot a natural-language server instruction (Admins only).",
			Admin:       true,
			Options: []Option{
				{Name: "instruction", Description: "What you want the bot to do, in plain language", Type: OptionString, Required: true},
				{Name: "auto_confirm", Description: "Skip the confirmation step for deletions (not recommended)", Type: OptionBool},
			},
		},
		{
			Name:        "create_channel",
			Description: "Create a text or voice channel (optional category)",
			Admin:       true,
			Options: []Option{
				{Name: "name", Description: "Channel name", Type: OptionString, Required: true},
				{Name: "channel_type", Description: "text or voice", Type: OptionString, Choices: []string{"text", "voice"}},
				{Name: "category", Description: "Category to place the channel in; created when missing", Type: OptionString},
			},
		},
		{
			Name:        "delete_channel",
			Description: "Delete a channel",
			Admin:       true,
			Options:     []Option{{Name: "channel", Description: "Channel to delete", Type: OptionChannel, Required: true}},
		},
		{
			Name:        "create_role",
			Description: "Create a role with optional hex color",
			Admin:       true,
			Options: []Option{
				{Name: "name", Description: "Role name", Type: OptionString, Required: true},
				{Name: "color", Description: "Hex color, e.g. #ff0000", Type: OptionString},
				{Name: "permissions", Description: "Comma-separated: manage_messages, kick_members, ban_members, administrator, manage_channels, manage_guild", Type: OptionString},
			},
		},
		{
			Name:        "delete_role",
			Description: "Delete a role",
			Admin:       true,
			Options:     []Option{{Name: "role", Description: "Role to delete", Type: OptionRole, Required: true}},
		},
		{
			Name:        "assign_role",
			Description: "Assign a role to a member",
			Admin:       true,
			Options: []Option{
				{Name: "user", Description: "Member", Type: OptionUser, Required: true},
				{Name: "role", Description: "Role", Type: OptionRole, Required: true},
			},
		},
		{
			Name:        "remove_role",
			Description: "Remove a role from a member",
			Admin:       true,
			Options: []Option{
				{Name: "user", Description: "Member", Type: OptionUser, Required: true},
				{Name: "role", Description: "Role", Type: OptionRole, Required: true},
			},
		},
		{
			Name:        "lock_channel",
			Description: "Lock a text channel for @everyone",
			Admin:       true,
			Options:     []Option{{Name: "channel", Description: "Text channel", Type: OptionChannel, Required: true}},
		},
		{
			Name:        "unlock_channel",
			Description: "Unlock a text channel for @everyone",
			Admin:       true,
			Options:     []Option{{Name: "channel", Description: "Text channel", Type: OptionChannel, Required: true}},
		},
		{
			Name:        "create_category",
			Description: "Create a new category",
			Admin:       true,
			Options:     []Option{{Name: "name", Description: "Category name", Type: OptionString, Required: true}},
		},
		{
			Name:        "channel_permissions",
			Description: "Set specific permissions for a role or user in a channel",
			Admin:       true,
			Options: append([]Option{
				{Name: "channel", Description: "The channel to modify permissions for", Type: OptionChannel, Required: true},
				{Name: "role", Description: "The role to set permissions for (use either role OR user, not both)", Type: OptionRole},
				{Name: "user", Description: "The user to set permissions for (use either role OR user, not both)", Type: OptionUser},
			}, permissionOptions...),
		},
		{
			Name:        "confirm",
			Description: "Confirm a pending batch of actions",
			Admin:       true,
			Options:     []Option{{Name: "id", Description: "Confirmation id", Type: OptionString, Required: true}},
		},
		{
			Name:        "cancel",
			Description: "Cancel a pending batch of actions",
			Admin:       true,
			Options:     []Option{{Name: "id", Description: "Confirmation id", Type: OptionString, Required: true}},
		},
		{
			Name:        "audit",
			Description: "Show recent audit entries for this server",
			Admin:       true,
			Options:     []Option{{Name: "limit", Description: "Number of entries (1-50)", Type: OptionInt}},
		},
		{
			Name:        "trace",
			Description: "Show every audit entry for a trace id",
			Admin:       true,
			Options:     []Option{{Name: "id", Description: "Trace id (t_...)", Type: OptionString, Required: true}},
		},
		{Name: "ping", Description: "Check that the bot is alive"},
		{Name: "version", Description: "Show version information"},
		{Name: "help", Description: "List commands"},
	}
}
