package actions

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Defaults applied when the corresponding field is absent.
const (
	DefaultChannelName  = "new-channel"
	DefaultRoleName     = "NewRole"
	DefaultCategoryName = "Category"
)

// Decode converts one action object into its variant. Decoding never fails:
// absent or mistyped fields decode to zero values and are reported when the
// action runs, and an unrecognised type decodes to Unknown.
func Decode(obj map[string]any) Action {
	src := Source(obj)
	switch Kind(str(obj, "type")) {
	case KindCreateChannel:
		return CreateChannel{
			Name:        str(obj, "name"),
			ChannelType: str(obj, "channel_type"),
			Category:    str(obj, "category"),
			Overwrites:  overwrites(obj["overwrites"]),
			Source:      src,
		}
	case KindDeleteChannel:
		return DeleteChannel{Target: str(obj, "name_or_id"), Source: src}
	case KindCreateRole:
		return CreateRole{
			Name:        str(obj, "name"),
			Color:       str(obj, "color"),
			Permissions: strList(obj["permissions"]),
			Source:      src,
		}
	case KindDeleteRole:
		return DeleteRole{Target: str(obj, "name_or_id"), Source: src}
	case KindAssignRole:
		return AssignRole{User: str(obj, "user"), Role: str(obj, "role"), Source: src}
	case KindRemoveRole:
		return RemoveRole{User: str(obj, "user"), Role: str(obj, "role"), Source: src}
	case KindLockChannel:
		return LockChannel{Target: str(obj, "name_or_id"), Source: src}
	case KindUnlockChannel:
		return UnlockChannel{Target: str(obj, "name_or_id"), Source: src}
	case KindCreateCategory:
		return CreateCategory{Name: str(obj, "name"), Source: src}
	case KindSetChannelPermissions:
		return SetChannelPermissions{
			Channel:     str(obj, "channel"),
			Target:      str(obj, "role_or_user"),
			Permissions: permissionMap(obj["permissions"]),
			Source:      src,
		}
	default:
		return Unknown{Type: str(obj, "type"), Source: src}
	}
}

// DecodeList decodes each element of items. Elements that are not objects
// become Unknown actions so the result has one entry per element.
func DecodeList(items []any) List {
	out := make(List, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, Unknown{Source: Source{"value": item}})
			continue
		}
		out = append(out, Decode(obj))
	}
	return out
}

// str reads a scalar field as a string. Numbers keep their literal form so
// snowflake ids survive when decoded with json.Number.
func str(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func strList(v any) []string {
	switch items := v.(type) {
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(items, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func permissionMap(v any) PermissionMap {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(PermissionMap, len(obj))
	for k, val := range obj {
		switch b := val.(type) {
		case bool:
			out[k] = &b
		case nil:
			out[k] = nil
		}
	}
	return out
}

func overwrites(v any) map[string]PermissionMap {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]PermissionMap, len(obj))
	for role, perms := range obj {
		if pm := permissionMap(perms); pm != nil {
			out[role] = pm
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
