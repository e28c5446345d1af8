package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/commands"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

func TestToChannel(t *testing.T) {
	got := toChannel(&discordgo.Channel{
		ID:       "10",
		Name:     "general",
		Type:     discordgo.ChannelTypeGuildNews,
		ParentID: "5",
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: "900", Type: discordgo.PermissionOverwriteTypeRole, Deny: int64(platform.PermSendMessages)},
			{ID: "42", Type: discordgo.PermissionOverwriteTypeMember, Allow: int64(platform.PermViewChannel)},
		},
	})
	want := &platform.Channel{
		ID: "10", Name: "general", Kind: platform.ChannelText, ParentID: "5",
		Overwrites: []platform.Overwrite{
			{TargetID: "900", TargetType: platform.TargetRole, Deny: platform.PermSendMessages},
			{TargetID: "42", TargetType: platform.TargetMember, Allow: platform.PermViewChannel},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toChannel (-want +got):\n%s", diff)
	}
}

func TestChannelKindRoundTrip(t *testing.T) {
	for _, k := range []platform.ChannelKind{platform.ChannelText, platform.ChannelVoice, platform.ChannelCategory} {
		if got := channelKind(channelType(k)); got != k {
			t.Errorf("%v -> %v", k, got)
		}
	}
	if channelKind(discordgo.ChannelTypeGuildStageVoice) != platform.ChannelOther {
		t.Error("stage channels should map to other")
	}
}

func TestToMember_DisplayName(t *testing.T) {
	m := toMember(&discordgo.Member{
		User:  &discordgo.User{ID: "7", Username: "erin", Discriminator: "0", GlobalName: "Erin"},
		Nick:  "E",
		Roles: []string{"1"},
	})
	if m.ID != "7" || m.Username != "erin" || m.DisplayName != "E" || len(m.Roles) != 1 {
		t.Errorf("member = %+v", m)
	}
}

func TestActor(t *testing.T) {
	i := &discordgo.Interaction{
		GuildID: "900",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "1", Username: "alice"},
			Permissions: int64(platform.PermManageGuild),
		},
	}
	a := actor(i)
	if a.ID != "1" || a.Name != "alice" || a.GuildID != "900" || !a.CanManageGuild() {
		t.Errorf("actor = %+v", a)
	}

	dm := actor(&discordgo.Interaction{User: &discordgo.User{ID: "2", Username: "bob"}})
	if dm.GuildID != "" || dm.CanManageGuild() {
		t.Errorf("DM actor = %+v", dm)
	}
}

func TestInvocation(t *testing.T) {
	i := &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "900",
		ChannelID: "10",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "channel_permissions",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "10"},
				{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: "20"},
				{Name: "send_messages", Type: discordgo.ApplicationCommandOptionBoolean, Value: false},
				{Name: "limit", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(5)},
			},
		},
	}
	inv := invocation(i)
	want := map[string]string{"channel": "10", "role": "20", "send_messages": "false", "limit": "5"}
	if inv.Name != "channel_permissions" || inv.GuildID != "900" || inv.Actor.ID != "1" {
		t.Errorf("invocation = %+v", inv)
	}
	if diff := cmp.Diff(want, inv.Options); diff != "" {
		t.Errorf("options (-want +got):\n%s", diff)
	}
}

func TestApplicationCommands(t *testing.T) {
	cmds := applicationCommands(commands.Definitions())
	if len(cmds) != len(commands.Definitions()) {
		t.Fatalf("got %d commands", len(cmds))
	}
	for _, c := range cmds {
		seenOptional := false
		for _, o := range c.Options {
			if !o.Required {
				seenOptional = true
			} else if seenOptional {
				t.Errorf("%s: required option %s after an optional one", c.Name, o.Name)
			}
		}
		if c.Name == "server_ai" && (c.DefaultMemberPermissions == nil || *c.DefaultMemberPermissions != int64(platform.PermManageGuild)) {
			t.Error("server_ai should default to Manage Server")
		}
		if c.Name == "ping" && c.DefaultMemberPermissions != nil {
			t.Error("ping should be open to everyone")
		}
	}
}

func TestButtons(t *testing.T) {
	rows := buttons("abc", true)
	row := rows[0].(discordgo.ActionsRow)
	confirm := row.Components[0].(discordgo.Button)
	cancel := row.Components[1].(discordgo.Button)
	if confirm.CustomID != approvals.ConfirmCustomID("abc") || cancel.CustomID != approvals.CancelCustomID("abc") {
		t.Errorf("custom ids = %q, %q", confirm.CustomID, cancel.CustomID)
	}
	if !confirm.Disabled || !cancel.Disabled {
		t.Error("buttons should be disabled")
	}
	if id, err := parseDecisionID(cancel.CustomID); err != nil || id != "abc" {
		t.Errorf("parseDecisionID = %q, %v", id, err)
	}
}

func TestClosedPrompt(t *testing.T) {
	m := &discordgo.Message{Content: "**Confirm AI Actions**"}
	if got := closedPrompt(m, commands.CancelledStatus); got != "**Confirm AI Actions**\n\n**"+commands.CancelledStatus+"**" {
		t.Errorf("closedPrompt = %q", got)
	}
	if got := closedPrompt(nil, "x"); got != "x" {
		t.Errorf("closedPrompt(nil) = %q", got)
	}
}
