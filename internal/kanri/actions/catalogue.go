package actions

// Spec documents one action kind for the model prompt and the help command.
type Spec struct {
	Kind        Kind
	Example     string
	Description string
}

// Catalogue lists every kind with an example object.
var Catalogue = []Spec{
	{KindCreateChannel, `{"type":"create_channel","channel_type":"text|voice","name":"string","category":"optional string","overwrites":{"RoleName":{"send_messages":false}}}`,
		"Create a text or voice channel, optionally inside a category (created if missing)."},
	{KindDeleteChannel, `{"type":"delete_channel","name_or_id":"string"}`,
		"Delete a channel."},
	{KindCreateRole, `{"type":"create_role","name":"string","color":"#hexcolor","permissions":["manage_messages","kick_members"]}`,
		"Create a role. Permissions may include manage_messages, kick_members, ban_members, administrator, manage_channels, manage_guild."},
	{KindDeleteRole, `{"type":"delete_role","name_or_id":"string"}`,
		"Delete a role."},
	{KindAssignRole, `{"type":"assign_role","user":"mention|id|name","role":"string"}`,
		"Give a role to a member."},
	{KindRemoveRole, `{"type":"remove_role","user":"mention|id|name","role":"string"}`,
		"Take a role away from a member."},
	{KindLockChannel, `{"type":"lock_channel","name_or_id":"string"}`,
		"Stop @everyone from sending messages in a text channel."},
	{KindUnlockChannel, `{"type":"unlock_channel","name_or_id":"string"}`,
		"Let @everyone send messages in a text channel again."},
	{KindCreateCategory, `{"type":"create_category","name":"string"}`,
		"Create a channel category."},
	{KindSetChannelPermissions, `{"type":"set_channel_permissions","channel":"string","role_or_user":"string","permissions":{"send_messages":true,"view_channel":false}}`,
		"Change permissions for a role or member in one channel."},
}
