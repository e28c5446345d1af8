package actions_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
)

func obj(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return m
}

func TestDecode_Variants(t *testing.T) {
	f := false
	tests := []struct {
		in   string
		want actions.Action
	}{
		{
			`{"type":"create_channel","name":"news","channel_type":"voice","category":"Info","overwrites":{"Mods":{"send_messages":false}}}`,
			actions.CreateChannel{Name: "news", ChannelType: "voice", Category: "Info",
				Overwrites: map[string]actions.PermissionMap{"Mods": {"send_messages": &f}}},
		},
		{`{"type":"delete_channel","name_or_id":123456789012345678}`, actions.DeleteChannel{Target: "123456789012345678"}},
		{`{"type":"create_role","name":"Mods","color":"#00ff00","permissions":["kick_members"]}`,
			actions.CreateRole{Name: "Mods", Color: "#00ff00", Permissions: []string{"kick_members"}}},
		{`{"type":"delete_role","name_or_id":"Mods"}`, actions.DeleteRole{Target: "Mods"}},
		{`{"type":"assign_role","user":"<@42>","role":"Mods"}`, actions.AssignRole{User: "<@42>", Role: "Mods"}},
		{`{"type":"remove_role","user":"alice","role":"Mods"}`, actions.RemoveRole{User: "alice", Role: "Mods"}},
		{`{"type":"lock_channel","name_or_id":"general"}`, actions.LockChannel{Target: "general"}},
		{`{"type":"unlock_channel","name_or_id":"general"}`, actions.UnlockChannel{Target: "general"}},
		{`{"type":"create_category","name":"Info"}`, actions.CreateCategory{Name: "Info"}},
		{`{"type":"set_channel_permissions","channel":"general","role_or_user":"Mods","permissions":{"send_messages":false,"bogus":"x"}}`,
			actions.SetChannelPermissions{Channel: "general", Target: "Mods", Permissions: actions.PermissionMap{"send_messages": &f}}},
		{`{"type":"launch_rockets"}`, actions.Unknown{Type: "launch_rockets"}},
	}
	ignoreSource := cmp.FilterPath(func(p cmp.Path) bool { return p.Last().String() == ".Source" }, cmp.Ignore())

	for _, tt := range tests {
		got := actions.Decode(obj(t, tt.in))
		if diff := cmp.Diff(tt.want, got, ignoreSource); diff != "" {
			t.Errorf("Decode(%s) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestDecode_KeepsUnknownKeys(t *testing.T) {
	a := actions.Decode(obj(t, `{"type":"create_category","name":"Info","reason":"tidy up"}`))
	if a.Raw()["reason"] != "tidy up" {
		t.Fatalf("unknown key dropped: %v", a.Raw())
	}
}

func TestDecode_MissingFieldsAreZero(t *testing.T) {
	a := actions.Decode(obj(t, `{"type":"create_role","name":42.5,"permissions":"kick_members, ban_members"}`))
	role, ok := a.(actions.CreateRole)
	if !ok {
		t.Fatalf("expected CreateRole, got %T", a)
	}
	if role.Name != "42.5" || role.Color != "" {
		t.Errorf("unexpected fields: %+v", role)
	}
	if diff := cmp.Diff([]string{"kick_members", "ban_members"}, role.Permissions); diff != "" {
		t.Errorf("permissions (-want +got):\n%s", diff)
	}
}

func TestDecodeList_NonObjectsBecomeUnknown(t *testing.T) {
	list := actions.DecodeList([]any{"delete everything", map[string]any{"type": "create_category"}})
	if len(list) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(list))
	}
	if _, ok := list[0].(actions.Unknown); !ok {
		t.Errorf("expected Unknown, got %T", list[0])
	}
	if list[1].Kind() != actions.KindCreateCategory {
		t.Errorf("expected create_category, got %s", list[1].Kind())
	}
}

func TestListDestructive(t *testing.T) {
	tests := []struct {
		name string
		list actions.List
		want bool
	}{
		{"empty", nil, false},
		{"safe", actions.List{actions.CreateCategory{}, actions.LockChannel{}}, false},
		{"channel delete", actions.List{actions.CreateCategory{}, actions.DeleteChannel{}}, true},
		{"role delete", actions.List{actions.DeleteRole{}}, true},
		{"unknown delete-ish", actions.List{actions.Unknown{Type: "delete_guild"}}, false},
	}
	for _, tt := range tests {
		if got := tt.list.Destructive(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestListJSON(t *testing.T) {
	list := actions.List{
		actions.Decode(map[string]any{"type": "delete_channel", "name_or_id": "general"}),
		actions.LockChannel{Target: "x"},
	}
	out := list.JSON()
	for _, want := range []string{`"delete_channel"`, `"general"`, `"lock_channel"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s:\n%s", want, out)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"#ff0000", 0xff0000, true},
		{"00FF00", 0x00ff00, true},
		{"#fff", 0, false},
		{"#gg0000", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := actions.ParseColor(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseColor(%q) = %x, %v; want %x, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
