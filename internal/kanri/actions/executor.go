package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bdobrica/Kanri/internal/kanri/platform"
	"github.com/bdobrica/Kanri/internal/kanri/resolve"
)

// RolePermissionAllowList is the set of permission names create_role grants.
// Any other name is ignored.
var RolePermissionAllowList = map[string]platform.Permissions{
	"manage_messages": platform.PermManageMessages,
	"kick_members":    platform.PermKickMembers,
	"ban_members":     platform.PermBanMembers,
	"administrator":   platform.PermAdministrator,
	"manage_channels": platform.PermManageChannels,
	"manage_guild":    platform.PermManageGuild,
}

// Result is the outcome of one action.
type Result struct {
	Kind    Kind
	Success bool
	Message string
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Executor applies actions to a guild.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor returns an Executor. A nil logger uses slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Execute applies a to g. It never panics and never returns an error: every
// problem becomes a failed Result.
func (e *Executor) Execute(ctx context.Context, g platform.Guild, a Action) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "action panicked", "kind", a.Kind(), "panic", r)
			res = Result{Kind: a.Kind(), Message: fmt.Sprintf("Internal error: %v", r)}
		}
	}()

	res = a.apply(ctx, &guildRun{g: g})
	res.Kind = a.Kind()
	e.logger.DebugContext(ctx, "action applied",
		"guild", g.ID(), "kind", res.Kind, "success", res.Success, "message", res.Message)
	return res
}

// ExecuteAll applies each action in order and returns one Result per action.
// A failure never stops the actions after it.
func (e *Executor) ExecuteAll(ctx context.Context, g platform.Guild, list List) []Result {
	results := make([]Result, 0, len(list))
	for _, a := range list {
		results = append(results, e.Execute(ctx, g, a))
	}
	return results
}

// ParseColor parses "#RRGGBB" (the leading # is optional).
func ParseColor(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// guildRun implements handler against one guild.
type guildRun struct {
	g platform.Guild
}

func (r *guildRun) createChannel(ctx context.Context, a CreateChannel) Result {
	name := orDefault(a.Name, DefaultChannelName)
	kind := platform.ChannelText
	if strings.EqualFold(a.ChannelType, "voice") {
		kind = platform.ChannelVoice
	}

	spec := platform.ChannelSpec{Name: name, Kind: kind}
	if a.Category != "" {
		cat, err := resolve.Category(ctx, r.g, a.Category)
		if err != nil {
			return fail("Failed to look up category %s: %v", a.Category, err)
		}
		if cat == nil {
			cat, err = r.g.CreateChannel(ctx, platform.ChannelSpec{Name: a.Category, Kind: platform.ChannelCategory})
			if err != nil {
				return fail("Failed to create category %s: %v", a.Category, err)
			}
		}
		spec.ParentID = cat.ID
	}

	for _, ref := range sortedKeys(a.Overwrites) {
		role, err := resolve.Role(ctx, r.g, ref)
		if err != nil {
			return fail("Failed to look up role %s: %v", ref, err)
		}
		if role == nil {
			continue
		}
		ow := platform.Overwrite{TargetID: role.ID, TargetType: platform.TargetRole}
		if applyPermissions(&ow, a.Overwrites[ref]) > 0 {
			spec.Overwrites = append(spec.Overwrites, ow)
		}
	}

	ch, err := r.g.CreateChannel(ctx, spec)
	if err != nil {
		return fail("Failed to create channel %s: %v", name, err)
	}
	return ok("Created channel %s (%s)", ch.Name, ch.ID)
}

func (r *guildRun) deleteChannel(ctx context.Context, a DeleteChannel) Result {
	ch, err := resolve.Channel(ctx, r.g, a.Target)
	if err != nil {
		return fail("Failed to look up channel %s: %v", a.Target, err)
	}
	if ch == nil {
		return fail("Channel not found: %s", a.Target)
	}
	if err := r.g.DeleteChannel(ctx, ch.ID); err != nil {
		return fail("Failed to delete channel %s: %v", a.Target, err)
	}
	return ok("Deleted channel %s", a.Target)
}

func (r *guildRun) createRole(ctx context.Context, a CreateRole) Result {
	name := orDefault(a.Name, DefaultRoleName)
	color, _ := ParseColor(a.Color)

	var perms platform.Permissions
	for _, p := range a.Permissions {
		perms |= RolePermissionAllowList[strings.ToLower(strings.TrimSpace(p))]
	}

	role, err := r.g.CreateRole(ctx, platform.RoleSpec{Name: name, Color: color, Permissions: perms})
	if err != nil {
		return fail("Failed to create role %s: %v", name, err)
	}
	return ok("Created role %s (%s)", role.Name, role.ID)
}

func (r *guildRun) deleteRole(ctx context.Context, a DeleteRole) Result {
	role, err := resolve.Role(ctx, r.g, a.Target)
	if err != nil {
		return fail("Failed to look up role %s: %v", a.Target, err)
	}
	if role == nil {
		return fail("Role not found: %s", a.Target)
	}
	if err := r.g.DeleteRole(ctx, role.ID); err != nil {
		return fail("Failed to delete role %s: %v", a.Target, err)
	}
	return ok("Deleted role %s", a.Target)
}

func (r *guildRun) memberAndRole(ctx context.Context, user, roleRef string) (*platform.Member, *platform.Role, *Result) {
	m, err := resolve.Member(ctx, r.g, user)
	if err != nil {
		res := fail("Failed to look up member %s: %v", user, err)
		return nil, nil, &res
	}
	if m == nil {
		res := fail("Member not found: %s", user)
		return nil, nil, &res
	}
	role, err := resolve.Role(ctx, r.g, roleRef)
	if err != nil {
		res := fail("Failed to look up role %s: %v", roleRef, err)
		return nil, nil, &res
	}
	if role == nil {
		res := fail("Role not found: %s", roleRef)
		return nil, nil, &res
	}
	return m, role, nil
}

func (r *guildRun) assignRole(ctx context.Context, a AssignRole) Result {
	m, role, failed := r.memberAndRole(ctx, a.User, a.Role)
	if failed != nil {
		return *failed
	}
	if err := r.g.AddMemberRole(ctx, m.ID, role.ID); err != nil {
		return fail("Failed to assign role %s to %s: %v", role.Name, m.Name(), err)
	}
	return ok("Assigned role %s to %s", role.Name, m.Name())
}

func (r *guildRun) removeRole(ctx context.Context, a RemoveRole) Result {
	m, role, failed := r.memberAndRole(ctx, a.User, a.Role)
	if failed != nil {
		return *failed
	}
	if err := r.g.RemoveMemberRole(ctx, m.ID, role.ID); err != nil {
		return fail("Failed to remove role %s from %s: %v", role.Name, m.Name(), err)
	}
	return ok("Removed role %s from %s", role.Name, m.Name())
}

// setSend flips send_messages for the everyone role, keeping the rest of
// its overwrite.
func (r *guildRun) setSend(ctx context.Context, target string, allow bool) Result {
	verb := "lock"
	if allow {
		verb = "unlock"
	}
	ch, err := resolve.Channel(ctx, r.g, target)
	if err != nil {
		return fail("Failed to look up channel %s: %v", target, err)
	}
	if ch == nil {
		return fail("Channel not found: %s", target)
	}
	if !ch.Kind.TextCapable() {
		return fail("Cannot %s non-text channel: %s", verb, target)
	}

	ow := ch.OverwriteFor(r.g.EveryoneRoleID(), platform.TargetRole)
	ow.Set(platform.PermSendMessages, &allow)
	if err := r.g.SetOverwrite(ctx, ch.ID, ow); err != nil {
		return fail("Failed to %s channel %s: %v", verb, ch.Name, err)
	}
	if allow {
		return ok("Unlocked channel %s", ch.Name)
	}
	return ok("Locked channel %s", ch.Name)
}

func (r *guildRun) lockChannel(ctx context.Context, a LockChannel) Result {
	return r.setSend(ctx, a.Target, false)
}

func (r *guildRun) unlockChannel(ctx context.Context, a UnlockChannel) Result {
	return r.setSend(ctx, a.Target, true)
}

func (r *guildRun) createCategory(ctx context.Context, a CreateCategory) Result {
	name := orDefault(a.Name, DefaultCategoryName)
	cat, err := r.g.CreateChannel(ctx, platform.ChannelSpec{Name: name, Kind: platform.ChannelCategory})
	if err != nil {
		return fail("Failed to create category %s: %v", name, err)
	}
	return ok("Created category %s", cat.Name)
}

func (r *guildRun) setChannelPermissions(ctx context.Context, a SetChannelPermissions) Result {
	ch, err := resolve.Channel(ctx, r.g, a.Channel)
	if err != nil {
		return fail("Failed to look up channel %s: %v", a.Channel, err)
	}
	if ch == nil {
		return fail("Channel not found: %s", a.Channel)
	}
	if !ch.Kind.AcceptsOverwrites() {
		return fail("Cannot set permissions on this channel type: %s", a.Channel)
	}

	var (
		targetID   string
		targetName string
		targetType platform.TargetType
	)
	role, err := resolve.Role(ctx, r.g, a.Target)
	if err != nil {
		return fail("Failed to look up role %s: %v", a.Target, err)
	}
	if role != nil {
		targetID, targetName, targetType = role.ID, role.Name, platform.TargetRole
	} else {
		m, err := resolve.Member(ctx, r.g, a.Target)
		if err != nil {
			return fail("Failed to look up member %s: %v", a.Target, err)
		}
		if m == nil {
			return fail("Role or user not found: %s", a.Target)
		}
		targetID, targetName, targetType = m.ID, m.Name(), platform.TargetMember
	}

	ow := ch.OverwriteFor(targetID, targetType)
	if applyPermissions(&ow, a.Permissions) == 0 {
		return fail("No permission changes specified")
	}
	if err := r.g.SetOverwrite(ctx, ch.ID, ow); err != nil {
		return fail("Failed to set permissions in channel %s: %v", ch.Name, err)
	}
	return ok("Set permissions for %s %s in channel %s", targetType, targetName, ch.Name)
}

func (r *guildRun) unknown(_ context.Context, a Unknown) Result {
	if a.Type == "" {
		return fail("unknown action type")
	}
	return fail("unknown action type: %s", a.Type)
}

// applyPermissions merges recognised keys of pm into ow and returns how many
// were applied.
func applyPermissions(ow *platform.Overwrite, pm PermissionMap) int {
	n := 0
	for _, key := range sortedKeys(pm) {
		bit, known := platform.PermissionByName(key)
		if !known {
			continue
		}
		ow.Set(bit, pm[key])
		n++
	}
	return n
}
