package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/commands"
	"github.com/bdobrica/Kanri/internal/kanri/nlp"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
	"github.com/bdobrica/Kanri/internal/kanri/platform/platformtest"
	"github.com/bdobrica/Kanri/internal/kanri/store"
)

const guildID = "900"

var (
	owner  = platform.Actor{ID: "1", Name: "alice", GuildID: guildID, Permissions: platform.PermManageGuild}
	other  = platform.Actor{ID: "2", Name: "bob", GuildID: guildID, Permissions: platform.PermManageGuild}
	member = platform.Actor{ID: "4", Name: "dave", GuildID: guildID}
)

type staticProvider struct{ text string }

func (p staticProvider) Complete(context.Context, nlp.Prompt) (*nlp.Completion, error) {
	return &nlp.Completion{Text: p.text}, nil
}

type fakeAuditReader struct {
	entries []*store.AuditEntry
	err     error
}

func (f *fakeAuditReader) ListAudit(_ context.Context, guildID string, limit int) ([]*store.AuditEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*store.AuditEntry
	for _, e := range f.entries {
		if e.GuildID == guildID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditReader) AuditByTrace(_ context.Context, traceID string) ([]*store.AuditEntry, error) {
	var out []*store.AuditEntry
	for _, e := range f.entries {
		if e.TraceID == traceID {
			out = append(out, e)
		}
	}
	return out, f.err
}

type fixture struct {
	guild  *platformtest.Guild
	router *commands.Router
	h      *commands.Handlers
	audit  *fakeAuditReader
}

func newFixture(t *testing.T, modelText string) *fixture {
	t.Helper()
	g := platformtest.NewGuild(guildID)
	g.AddChannel(platform.Channel{Name: "general", Kind: platform.ChannelText})
	g.AddChannel(platform.Channel{Name: "Lounge", Kind: platform.ChannelVoice})
	g.AddRole(platform.Role{Name: "Mods"})
	g.AddMember(platform.Member{Username: "erin", Discriminator: "0"})

	orch, err := pipeline.New(pipeline.Config{
		Provider: staticProvider{text: modelText},
		Gate:     approvals.NewGate(approvals.NewStore(0, 0, nil), 0, nil),
		Guilds:   platformtest.Directory{guildID: g},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{guild: g, router: commands.NewRouter(), audit: &fakeAuditReader{}}
	f.h = commands.NewHandlers(orch, f.audit, func() time.Duration { return 42 * time.Millisecond })
	f.h.Register(f.router)
	return f
}

func (f *fixture) run(t *testing.T, actor platform.Actor, name string, opts map[string]string) *commands.Reply {
	t.Helper()
	reply, err := f.router.Dispatch(context.Background(), &commands.Invocation{
		Name: name, Options: opts, GuildID: guildID, ChannelID: "10", Actor: actor,
	})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return reply
}

func TestRouter_UnknownCommand(t *testing.T) {
	_, err := commands.NewRouter().Dispatch(context.Background(), &commands.Invocation{Name: "nope"})
	if !errors.Is(err, commands.ErrUnknownCommand) {
		t.Fatalf("err = %v", err)
	}
}

func TestEveryDefinitionIsRegistered(t *testing.T) {
	f := newFixture(t, "")
	for _, d := range commands.Definitions() {
		_, err := f.router.Dispatch(context.Background(), &commands.Invocation{Name: d.Name, Actor: member})
		if errors.Is(err, commands.ErrUnknownCommand) {
			t.Errorf("%s is defined but not registered", d.Name)
		}
	}
}

func TestAdminCommandsRequireManageServer(t *testing.T) {
	f := newFixture(t, "")
	reply := f.run(t, member, "create_category", map[string]string{"name": "Info"})
	if !reply.Ephemeral || reply.Content != pipeline.UnauthorizedMessage {
		t.Fatalf("reply = %+v", reply)
	}
	if f.guild.ChannelByName("Info") != nil {
		t.Error("category must not be created")
	}
}

func TestCommandsOutsideGuild(t *testing.T) {
	f := newFixture(t, "")
	reply, err := f.router.Dispatch(context.Background(), &commands.Invocation{Name: "server_ai", Actor: owner})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Content, "only be used in a server") {
		t.Errorf("reply = %q", reply.Content)
	}
}

func TestServerAI_ExecutedReport(t *testing.T) {
	f := newFixture(t, `{"actions":[{"type":"create_channel","name":"announcements","channel_type":"text"}]}`)

	reply := f.run(t, owner, "server_ai", map[string]string{"instruction": "create a channel named announcements"})

	if !strings.HasPrefix(reply.Content, "**Executed 1 action(s): 1 succeeded, 0 failed**\n✅ Created channel announcements") {
		t.Errorf("reply = %q", reply.Content)
	}
	if reply.Pending != nil {
		t.Error("no confirmation expected")
	}
}

func TestServerAI_ConfirmationFlow(t *testing.T) {
	f := newFixture(t, "Sure!\n```json\n{\"actions\":[{\"type\":\"delete_channel\",\"name_or_id\":\"general\"}]}\n```")

	reply := f.run(t, owner, "server_ai", map[string]string{"instruction": "delete general"})
	if reply.Pending == nil {
		t.Fatalf("expected a confirmation prompt, got %q", reply.Content)
	}
	if !strings.Contains(reply.Content, "Confirm AI Actions") || !strings.Contains(reply.Content, `"delete_channel"`) {
		t.Errorf("prompt = %q", reply.Content)
	}
	id := reply.Pending.ID

	denied, err := f.h.HandleDecision(context.Background(), approvals.ConfirmCustomID(id), other)
	if err != nil {
		t.Fatal(err)
	}
	if !denied.Ephemeral || denied.Content != "You are not allowed to confirm this action." {
		t.Fatalf("other actor reply = %+v", denied)
	}

	done, err := f.h.HandleDecision(context.Background(), approvals.ConfirmCustomID(id), owner)
	if err != nil {
		t.Fatal(err)
	}
	if done.PromptStatus != commands.ConfirmedStatus || !strings.Contains(done.Content, "Deleted channel general") {
		t.Fatalf("confirm reply = %+v", done)
	}

	again, _ := f.h.HandleDecision(context.Background(), approvals.CancelCustomID(id), owner)
	if again.PromptStatus != "" || !strings.Contains(again.Content, "already been handled") {
		t.Errorf("second decision = %+v", again)
	}
}

func TestCancelCommand(t *testing.T) {
	f := newFixture(t, `{"actions":[{"type":"delete_role","name_or_id":"Mods"}]}`)
	id := f.run(t, owner, "server_ai", map[string]string{"instruction": "delete Mods"}).Pending.ID

	reply := f.run(t, owner, "cancel", map[string]string{"id": id})

	if reply.PromptStatus != commands.CancelledStatus {
		t.Fatalf("reply = %+v", reply)
	}
	if f.guild.RoleByName("Mods") == nil {
		t.Error("cancel must not delete anything")
	}
}

func TestHandleDecision_NotADecision(t *testing.T) {
	f := newFixture(t, "")
	if _, err := f.h.HandleDecision(context.Background(), "other:button", owner); !errors.Is(err, approvals.ErrNotADecision) {
		t.Fatalf("err = %v", err)
	}
}

func TestServerAI_ParseFailureShowsRaw(t *testing.T) {
	f := newFixture(t, "I am not sure what you mean.")

	reply := f.run(t, owner, "server_ai", map[string]string{"instruction": "??"})

	want := "Failed to parse the model response as JSON.\n\nRaw response:\n```\nI am not sure what you mean.\n```"
	if reply.Content != want {
		t.Errorf("reply mismatch (-want +got):\n%s", cmp.Diff(want, reply.Content))
	}
}

func TestDirectCommands(t *testing.T) {
	f := newFixture(t, "")
	general := f.guild.ChannelByName("general")
	mods := f.guild.RoleByName("Mods")

	tests := []struct {
		name string
		opts map[string]string
		want string
	}{
		{"create_category", map[string]string{"name": "Info"}, "✅ Created category Info"},
		{"create_channel", map[string]string{"name": "rules", "category": "Info"}, "✅ Created channel rules"},
		{"create_role", map[string]string{"name": "Helpers", "color": "#00ff00", "permissions": "kick_members, fly"}, "✅ Created role Helpers"},
		{"lock_channel", map[string]string{"channel": general.ID}, "✅ Locked channel general"},
		{"unlock_channel", map[string]string{"channel": general.ID}, "✅ Unlocked channel general"},
		{"lock_channel", map[string]string{"channel": f.guild.ChannelByName("Lounge").ID}, "❌ Cannot lock non-text channel"},
		{"assign_role", map[string]string{"user": "erin", "role": mods.ID}, "✅ Assigned role Mods to erin"},
		{"remove_role", map[string]string{"user": "erin", "role": mods.ID}, "✅ Removed role Mods from erin"},
		{"channel_permissions", map[string]string{"channel": general.ID, "role": mods.ID, "send_messages": "false"}, "✅ Set permissions for role Mods in channel general"},
		{"delete_role", map[string]string{"role": mods.ID}, "✅ Deleted role " + mods.ID},
		{"delete_channel", map[string]string{"channel": "missing"}, "❌ Channel not found: missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := f.run(t, owner, tt.name, tt.opts)
			if !strings.HasPrefix(reply.Content, tt.want) {
				t.Errorf("reply = %q, want prefix %q", reply.Content, tt.want)
			}
		})
	}

	helpers := f.guild.RoleByName("Helpers")
	if helpers == nil || helpers.Color != 0x00ff00 || helpers.Permissions != platform.PermKickMembers {
		t.Errorf("Helpers role = %+v", helpers)
	}
}

func TestCreateRole_InvalidColorRejected(t *testing.T) {
	f := newFixture(t, "")
	reply := f.run(t, owner, "create_role", map[string]string{"name": "X", "color": "#zzz"})
	if reply.Content != "Invalid color hex. Example: #ff0000" || !reply.Ephemeral {
		t.Fatalf("reply = %+v", reply)
	}
	if f.guild.RoleByName("X") != nil {
		t.Error("role must not be created")
	}
}

func TestChannelPermissions_Validation(t *testing.T) {
	f := newFixture(t, "")
	general := f.guild.ChannelByName("general").ID

	tests := []struct {
		opts map[string]string
		want string
	}{
		{map[string]string{"channel": general, "send_messages": "true"}, "❌ You must specify either a role or a user."},
		{map[string]string{"channel": general, "role": "Mods", "user": "erin", "send_messages": "true"}, "❌ Please specify either a role OR a user, not both."},
		{map[string]string{"channel": general, "role": "Mods"}, "❌ No permission changes specified."},
	}
	for _, tt := range tests {
		if got := f.run(t, owner, "channel_permissions", tt.opts).Content; got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
	if len(f.guild.Calls()) != 0 {
		t.Errorf("validation failures must not touch the guild: %v", f.guild.Calls())
	}
}

func TestAuditAndTrace(t *testing.T) {
	f := newFixture(t, "")
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.audit.entries = []*store.AuditEntry{
		{Timestamp: ts, TraceID: "t_1", GuildID: guildID, ActorID: "1", Action: "create_channel", Target: `create text channel "x"`, Result: store.ResultSuccess},
		{Timestamp: ts, TraceID: "t_1", GuildID: guildID, ActorID: "1", Action: "delete_role", Result: store.ResultError, Error: "Role not found: y"},
		{Timestamp: ts, TraceID: "t_2", GuildID: "other", Action: "create_role", Result: store.ResultSuccess},
	}

	reply := f.run(t, owner, "audit", map[string]string{"limit": "5"})
	if !strings.Contains(reply.Content, "last 2") || strings.Contains(reply.Content, "t_2") {
		t.Errorf("audit = %q", reply.Content)
	}

	reply = f.run(t, owner, "trace", map[string]string{"id": "t_1"})
	if !strings.Contains(reply.Content, "(2 entries)") || !strings.Contains(reply.Content, "❌") {
		t.Errorf("trace = %q", reply.Content)
	}

	reply = f.run(t, owner, "trace", map[string]string{"id": "t_2"})
	if !strings.HasPrefix(reply.Content, "No entries found") {
		t.Errorf("other guild's trace leaked: %q", reply.Content)
	}

	f.audit.err = errors.New("disk full")
	if _, err := f.router.Dispatch(context.Background(), &commands.Invocation{Name: "audit", GuildID: guildID, Actor: owner}); err == nil {
		t.Error("expected a store error")
	}
}

func TestPingVersionHelp(t *testing.T) {
	f := newFixture(t, "")
	if got := f.run(t, member, "ping", nil).Content; got != "🏓 Pong! Gateway latency: 42ms" {
		t.Errorf("ping = %q", got)
	}
	if got := f.run(t, member, "version", nil).Content; !strings.HasPrefix(got, "kanri ") {
		t.Errorf("version = %q", got)
	}
	help := f.run(t, member, "help", nil).Content
	for _, d := range commands.Definitions() {
		if !strings.Contains(help, "/"+d.Name) {
			t.Errorf("help is missing %s", d.Name)
		}
	}
}
