// Package resolve turns the loose entity references found in model output
// and command options into guild channels, roles and members.
//
// Every lookup tries, in order: the reference as a numeric id, then (members
// only) mention syntax, then an exact, case-sensitive name match. The first
// name match in platform order wins; duplicate names are not disambiguated.
// A nil result with a nil error means nothing matched.
package resolve

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/bdobrica/Kanri/internal/kanri/platform"
)

var mentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)

func isID(ref string) bool {
	_, err := strconv.ParseUint(ref, 10, 64)
	return err == nil
}

// lookup maps platform.ErrNotFound to a miss.
func lookup[T any](v *T, err error) (*T, error) {
	if errors.Is(err, platform.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Channel resolves ref to a channel or category.
func Channel(ctx context.Context, g platform.Guild, ref string) (*platform.Channel, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if isID(ref) {
		c, err := lookup(g.Channel(ctx, ref))
		if err != nil || c != nil {
			return c, err
		}
	}
	all, err := g.Channels(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Name == ref {
			return c, nil
		}
	}
	return nil, nil
}

// Category resolves name to a channel of kind category.
func Category(ctx context.Context, g platform.Guild, name string) (*platform.Channel, error) {
	all, err := g.Channels(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Kind == platform.ChannelCategory && c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

// Role resolves ref to a role.
func Role(ctx context.Context, g platform.Guild, ref string) (*platform.Role, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if isID(ref) {
		r, err := lookup(g.Role(ctx, ref))
		if err != nil || r != nil {
			return r, err
		}
	}
	all, err := g.Roles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Name == ref {
			return r, nil
		}
	}
	return nil, nil
}

// Member resolves ref to a member. Besides ids and mentions it matches the
// username or username#discriminator. Nicknames are set by members
// themselves and never match.
func Member(ctx context.Context, g platform.Guild, ref string) (*platform.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if isID(ref) {
		m, err := lookup(g.Member(ctx, ref))
		if err != nil || m != nil {
			return m, err
		}
	}
	if sub := mentionRe.FindStringSubmatch(ref); sub != nil {
		m, err := lookup(g.Member(ctx, sub[1]))
		if err != nil || m != nil {
			return m, err
		}
	}
	all, err := g.Members(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if m.Username == ref || m.Tag() == ref {
			return m, nil
		}
	}
	return nil, nil
}
