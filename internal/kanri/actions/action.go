// Package actions defines the administrative actions Kanri can perform and
// the executor that applies them to a guild.
//
// Action is a closed set: every variant implements the unexported apply
// method by calling its own method on handler, so a variant without a
// handler method does not compile.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the "type" tag of an action object.
type Kind string

const (
	KindCreateChannel         Kind = "create_channel"
	KindDeleteChannel         Kind = "delete_channel"
	KindCreateRole            Kind = "create_role"
	KindDeleteRole            Kind = "delete_role"
	KindAssignRole            Kind = "assign_role"
	KindRemoveRole            Kind = "remove_role"
	KindLockChannel           Kind = "lock_channel"
	KindUnlockChannel         Kind = "unlock_channel"
	KindCreateCategory        Kind = "create_category"
	KindSetChannelPermissions Kind = "set_channel_permissions"
)

// Kinds lists every known kind in catalogue order.
var Kinds = []Kind{
	KindCreateChannel, KindDeleteChannel, KindCreateRole, KindDeleteRole,
	KindAssignRole, KindRemoveRole, KindLockChannel, KindUnlockChannel,
	KindCreateCategory, KindSetChannelPermissions,
}

// Destructive reports whether actions of this kind cannot be undone.
func (k Kind) Destructive() bool {
	return k == KindDeleteChannel || k == KindDeleteRole
}

// Action is one parsed administrative action.
type Action interface {
	Kind() Kind
	// Describe is a one-line summary for confirmation previews.
	Describe() string
	// Raw is the object the action was decoded from, unknown keys included.
	Raw() Source
	apply(ctx context.Context, h handler) Result
}

type handler interface {
	createChannel(ctx context.Context, a CreateChannel) Result
	deleteChannel(ctx context.Context, a DeleteChannel) Result
	createRole(ctx context.Context, a CreateRole) Result
	deleteRole(ctx context.Context, a DeleteRole) Result
	assignRole(ctx context.Context, a AssignRole) Result
	removeRole(ctx context.Context, a RemoveRole) Result
	lockChannel(ctx context.Context, a LockChannel) Result
	unlockChannel(ctx context.Context, a UnlockChannel) Result
	createCategory(ctx context.Context, a CreateCategory) Result
	setChannelPermissions(ctx context.Context, a SetChannelPermissions) Result
	unknown(ctx context.Context, a Unknown) Result
}

// Source is the JSON object an action was decoded from.
type Source map[string]any

// PermissionMap holds tri-state permission changes keyed by permission name.
// A nil value resets the permission to neutral.
type PermissionMap map[string]*bool

// CreateChannel creates a text or voice channel, optionally under a
// category that is created when missing.
type CreateChannel struct {
	Name        string
	ChannelType string
	Category    string
	// Overwrites maps role references to permission changes applied to the
	// new channel.
	Overwrites map[string]PermissionMap
	Source     Source
}

type DeleteChannel struct {
	Target string
	Source Source
}

// CreateRole creates a role. Color is "#RRGGBB"; Permissions are names
// filtered through RolePermissionAllowList.
type CreateRole struct {
	Name        string
	Color       string
	Permissions []string
	Source      Source
}

type DeleteRole struct {
	Target string
	Source Source
}

type AssignRole struct {
	User   string
	Role   string
	Source Source
}

type RemoveRole struct {
	User   string
	Role   string
	Source Source
}

// LockChannel denies send_messages to the everyone role on a text channel.
type LockChannel struct {
	Target string
	Source Source
}

// UnlockChannel allows send_messages to the everyone role on a text channel.
type UnlockChannel struct {
	Target string
	Source Source
}

type CreateCategory struct {
	Name   string
	Source Source
}

// SetChannelPermissions merges Permissions into the overwrite of a role or
// member on a channel. Target is tried as a role first.
type SetChannelPermissions struct {
	Channel     string
	Target      string
	Permissions PermissionMap
	Source      Source
}

// Unknown carries an object whose type tag is not a known kind.
type Unknown struct {
	Type   string
	Source Source
}

func (a CreateChannel) Kind() Kind         { return KindCreateChannel }
func (a DeleteChannel) Kind() Kind         { return KindDeleteChannel }
func (a CreateRole) Kind() Kind            { return KindCreateRole }
func (a DeleteRole) Kind() Kind            { return KindDeleteRole }
func (a AssignRole) Kind() Kind            { return KindAssignRole }
func (a RemoveRole) Kind() Kind            { return KindRemoveRole }
func (a LockChannel) Kind() Kind           { return KindLockChannel }
func (a UnlockChannel) Kind() Kind         { return KindUnlockChannel }
func (a CreateCategory) Kind() Kind        { return KindCreateCategory }
func (a SetChannelPermissions) Kind() Kind { return KindSetChannelPermissions }
func (a Unknown) Kind() Kind               { return Kind(a.Type) }

func (a CreateChannel) Raw() Source         { return a.Source }
func (a DeleteChannel) Raw() Source         { return a.Source }
func (a CreateRole) Raw() Source            { return a.Source }
func (a DeleteRole) Raw() Source            { return a.Source }
func (a AssignRole) Raw() Source            { return a.Source }
func (a RemoveRole) Raw() Source            { return a.Source }
func (a LockChannel) Raw() Source           { return a.Source }
func (a UnlockChannel) Raw() Source         { return a.Source }
func (a CreateCategory) Raw() Source        { return a.Source }
func (a SetChannelPermissions) Raw() Source { return a.Source }
func (a Unknown) Raw() Source               { return a.Source }

func (a CreateChannel) apply(ctx context.Context, h handler) Result { return h.createChannel(ctx, a) }
func (a DeleteChannel) apply(ctx context.Context, h handler) Result { return h.deleteChannel(ctx, a) }
func (a CreateRole) apply(ctx context.Context, h handler) Result    { return h.createRole(ctx, a) }
func (a DeleteRole) apply(ctx context.Context, h handler) Result    { return h.deleteRole(ctx, a) }
func (a AssignRole) apply(ctx context.Context, h handler) Result    { return h.assignRole(ctx, a) }
func (a RemoveRole) apply(ctx context.Context, h handler) Result    { return h.removeRole(ctx, a) }
func (a LockChannel) apply(ctx context.Context, h handler) Result   { return h.lockChannel(ctx, a) }
func (a UnlockChannel) apply(ctx context.Context, h handler) Result { return h.unlockChannel(ctx, a) }
func (a CreateCategory) apply(ctx context.Context, h handler) Result {
	return h.createCategory(ctx, a)
}
func (a SetChannelPermissions) apply(ctx context.Context, h handler) Result {
	return h.setChannelPermissions(ctx, a)
}
func (a Unknown) apply(ctx context.Context, h handler) Result { return h.unknown(ctx, a) }

func (a CreateChannel) Describe() string {
	s := fmt.Sprintf("create %s channel %q", orDefault(a.ChannelType, "text"), orDefault(a.Name, DefaultChannelName))
	if a.Category != "" {
		s += fmt.Sprintf(" in category %q", a.Category)
	}
	return s
}
func (a DeleteChannel) Describe() string { return fmt.Sprintf("delete channel %q", a.Target) }
func (a CreateRole) Describe() string {
	s := fmt.Sprintf("create role %q", orDefault(a.Name, DefaultRoleName))
	if len(a.Permissions) > 0 {
		s += " with " + strings.Join(a.Permissions, ", ")
	}
	return s
}
func (a DeleteRole) Describe() string { return fmt.Sprintf("delete role %q", a.Target) }
func (a AssignRole) Describe() string {
	return fmt.Sprintf("give role %q to %q", a.Role, a.User)
}
func (a RemoveRole) Describe() string {
	return fmt.Sprintf("take role %q from %q", a.Role, a.User)
}
func (a LockChannel) Describe() string   { return fmt.Sprintf("lock channel %q", a.Target) }
func (a UnlockChannel) Describe() string { return fmt.Sprintf("unlock channel %q", a.Target) }
func (a CreateCategory) Describe() string {
	return fmt.Sprintf("create category %q", orDefault(a.Name, DefaultCategoryName))
}
func (a SetChannelPermissions) Describe() string {
	return fmt.Sprintf("set %d permission(s) for %q in channel %q", len(a.Permissions), a.Target, a.Channel)
}
func (a Unknown) Describe() string { return fmt.Sprintf("unknown action %q", a.Type) }

// List is an ordered batch of actions. Order is execution order.
type List []Action

// Destructive reports whether any action in l is destructive.
func (l List) Destructive() bool {
	for _, a := range l {
		if a.Kind().Destructive() {
			return true
		}
	}
	return false
}

// JSON renders the source objects of l as an indented envelope.
func (l List) JSON() string {
	objs := make([]Source, 0, len(l))
	for _, a := range l {
		src := a.Raw()
		if src == nil {
			src = Source{"type": string(a.Kind())}
		}
		objs = append(objs, src)
	}
	b, err := json.MarshalIndent(map[string]any{"actions": objs}, "", "  ")
	if err != nil {
		return fmt.Sprintf("%d action(s)", len(l))
	}
	return string(b)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
