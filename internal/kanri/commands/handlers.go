package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bdobrica/Kanri/common/version"
	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
	"github.com/bdobrica/Kanri/internal/kanri/store"
)

const (
	defaultAuditLimit = 10
	maxAuditLimit     = 50
)

// AuditReader queries the audit log. *store.Store implements it.
type AuditReader interface {
	ListAudit(ctx context.Context, guildID string, limit int) ([]*store.AuditEntry, error)
	AuditByTrace(ctx context.Context, traceID string) ([]*store.AuditEntry, error)
}

// Handlers holds the command handlers and their dependencies.
type Handlers struct {
	pipeline *pipeline.Orchestrator
	audit    AuditReader
	latency  func() time.Duration
}

// NewHandlers creates the handlers. audit and latency may be nil.
func NewHandlers(p *pipeline.Orchestrator, audit AuditReader, latency func() time.Duration) *Handlers {
	return &Handlers{pipeline: p, audit: audit, latency: latency}
}

// Register binds every command in Definitions to r.
func (h *Handlers) Register(r *Router) {
	admin := map[string]Handler{
		"server_ai":           h.HandleServerAI,
		"create_channel":      h.HandleCreateChannel,
		"delete_channel":      h.HandleDeleteChannel,
		"create_role":         h.HandleCreateRole,
		"delete_role":         h.HandleDeleteRole,
		"assign_role":         h.HandleAssignRole,
		"remove_role":         h.HandleRemoveRole,
		"lock_channel":        h.HandleLockChannel,
		"unlock_channel":      h.HandleUnlockChannel,
		"create_category":     h.HandleCreateCategory,
		"channel_permissions": h.HandleChannelPermissions,
		"confirm":             h.HandleConfirm,
		"cancel":              h.HandleCancel,
		"audit":               h.HandleAudit,
		"trace":               h.HandleTrace,
	}
	for name, fn := range admin {
		r.Register(name, inGuild(requireManageGuild(fn)))
	}
	r.Register("ping", h.HandlePing)
	r.Register("version", h.HandleVersion)
	r.Register("help", h.HandleHelp)
}

func ephemeral(msg string) *Reply { return &Reply{Content: msg, Ephemeral: true} }

func inGuild(next Handler) Handler {
	return func(ctx context.Context, inv *Invocation) (*Reply, error) {
		if inv.GuildID == "" {
			return ephemeral("❌ This command can only be used in a server."), nil
		}
		return next(ctx, inv)
	}
}

func requireManageGuild(next Handler) Handler {
	return func(ctx context.Context, inv *Invocation) (*Reply, error) {
		if !inv.Actor.CanManageGuild() {
			return ephemeral(pipeline.UnauthorizedMessage), nil
		}
		return next(ctx, inv)
	}
}

// HandleServerAI runs a natural-language instruction.
func (h *Handlers) HandleServerAI(ctx context.Context, inv *Invocation) (*Reply, error) {
	instruction := inv.Option("instruction")
	if instruction == "" {
		return ephemeral("❌ Please describe what you want done."), nil
	}
	autoConfirm, _ := inv.Bool("auto_confirm")

	rep := h.pipeline.HandleInstruction(ctx, pipeline.Request{
		GuildID:     inv.GuildID,
		ChannelID:   inv.ChannelID,
		Actor:       inv.Actor,
		Instruction: instruction,
		AutoConfirm: autoConfirm,
	})
	reply := &Reply{Content: FormatReport(rep)}
	switch rep.Status {
	case pipeline.StatusPending:
		reply.Pending = rep.Pending
	case pipeline.StatusUnauthorized, pipeline.StatusRejected:
		reply.Ephemeral = true
	}
	return reply, nil
}

// source records the options of a direct command as the action's payload.
func source(kind actions.Kind, inv *Invocation) actions.Source {
	src := actions.Source{"type": string(kind)}
	for k, v := range inv.Options {
		src[k] = v
	}
	return src
}

// direct runs a single action and renders its one result.
func (h *Handlers) direct(ctx context.Context, inv *Invocation, a actions.Action) (*Reply, error) {
	rep := h.pipeline.Execute(ctx, inv.GuildID, inv.Actor, a)
	if rep.Status != pipeline.StatusExecuted {
		return ephemeral(rep.Detail), nil
	}
	res := rep.Results[0]
	if !res.Success {
		return ephemeral("❌ " + res.Message), nil
	}
	return &Reply{Content: "✅ " + res.Message}, nil
}

func (h *Handlers) HandleCreateChannel(ctx context.Context, inv *Invocation) (*Reply, error) {
	typ := strings.ToLower(inv.Option("channel_type"))
	if typ != "" && typ != "text" && typ != "voice" {
		return ephemeral("❌ channel_type must be text or voice."), nil
	}
	return h.direct(ctx, inv, actions.CreateChannel{
		Name:        inv.Option("name"),
		ChannelType: typ,
		Category:    inv.Option("category"),
		Source:      source(actions.KindCreateChannel, inv),
	})
}

func (h *Handlers) HandleDeleteChannel(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.DeleteChannel{Target: inv.Option("channel"), Source: source(actions.KindDeleteChannel, inv)})
}

// HandleCreateRole rejects a malformed color up front instead of falling
// back to the default the way model-issued actions do.
func (h *Handlers) HandleCreateRole(ctx context.Context, inv *Invocation) (*Reply, error) {
	color := inv.Option("color")
	if color != "" {
		if _, ok := actions.ParseColor(color); !ok {
			return ephemeral("Invalid color hex. Example: #ff0000"), nil
		}
	}
	var perms []string
	for _, p := range strings.Split(inv.Option("permissions"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return h.direct(ctx, inv, actions.CreateRole{
		Name:        inv.Option("name"),
		Color:       color,
		Permissions: perms,
		Source:      source(actions.KindCreateRole, inv),
	})
}

func (h *Handlers) HandleDeleteRole(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.DeleteRole{Target: inv.Option("role"), Source: source(actions.KindDeleteRole, inv)})
}

func (h *Handlers) HandleAssignRole(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.AssignRole{User: inv.Option("user"), Role: inv.Option("role"), Source: source(actions.KindAssignRole, inv)})
}

func (h *Handlers) HandleRemoveRole(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.RemoveRole{User: inv.Option("user"), Role: inv.Option("role"), Source: source(actions.KindRemoveRole, inv)})
}

func (h *Handlers) HandleLockChannel(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.LockChannel{Target: inv.Option("channel"), Source: source(actions.KindLockChannel, inv)})
}

func (h *Handlers) HandleUnlockChannel(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.UnlockChannel{Target: inv.Option("channel"), Source: source(actions.KindUnlockChannel, inv)})
}

func (h *Handlers) HandleCreateCategory(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.direct(ctx, inv, actions.CreateCategory{Name: inv.Option("name"), Source: source(actions.KindCreateCategory, inv)})
}

// HandleChannelPermissions sets overwrite keys for exactly one role or user.
func (h *Handlers) HandleChannelPermissions(ctx context.Context, inv *Invocation) (*Reply, error) {
	role, user := inv.Option("role"), inv.Option("user")
	switch {
	case role == "" && user == "":
		return ephemeral("❌ You must specify either a role or a user."), nil
	case role != "" && user != "":
		return ephemeral("❌ Please specify either a role OR a user, not both."), nil
	}
	target := role
	if target == "" {
		target = user
	}

	perms := actions.PermissionMap{}
	for _, opt := range permissionOptions {
		if v, ok := inv.Bool(opt.Name); ok {
			perms[opt.Name] = &v
		}
	}
	if len(perms) == 0 {
		return ephemeral("❌ No permission changes specified."), nil
	}

	return h.direct(ctx, inv, actions.SetChannelPermissions{
		Channel:     inv.Option("channel"),
		Target:      target,
		Permissions: perms,
		Source:      source(actions.KindSetChannelPermissions, inv),
	})
}

// HandleConfirm resolves a confirmation by id.
func (h *Handlers) HandleConfirm(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.decide(ctx, inv.Option("id"), true, inv.Actor), nil
}

// HandleCancel discards a confirmation by id.
func (h *Handlers) HandleCancel(ctx context.Context, inv *Invocation) (*Reply, error) {
	return h.decide(ctx, inv.Option("id"), false, inv.Actor), nil
}

// HandleDecision handles a confirm or cancel button press.
func (h *Handlers) HandleDecision(ctx context.Context, customID string, actor platform.Actor) (*Reply, error) {
	d, err := approvals.ParseDecision(customID)
	if err != nil {
		return nil, err
	}
	return h.decide(ctx, d.ID, d.Confirm, actor), nil
}

func (h *Handlers) decide(ctx context.Context, id string, confirm bool, actor platform.Actor) *Reply {
	if id == "" {
		return ephemeral("❌ A confirmation id is required.")
	}
	if !confirm {
		if _, err := h.pipeline.Cancel(ctx, id, actor); err != nil {
			return DecisionError(err)
		}
		return &Reply{Content: CancelledStatus, PromptStatus: CancelledStatus}
	}
	rep, err := h.pipeline.Confirm(ctx, id, actor)
	if err != nil {
		return DecisionError(err)
	}
	return &Reply{Content: FormatReport(rep), PromptStatus: ConfirmedStatus}
}

// HandleAudit lists recent audit entries for the guild.
func (h *Handlers) HandleAudit(ctx context.Context, inv *Invocation) (*Reply, error) {
	if h.audit == nil {
		return ephemeral("Audit log is not configured."), nil
	}
	limit := inv.Int("limit", defaultAuditLimit)
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	entries, err := h.audit.ListAudit(ctx, inv.GuildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	if len(entries) == 0 {
		return ephemeral("No audit entries yet."), nil
	}
	return &Reply{Content: formatAudit(fmt.Sprintf("**Recent audit entries (last %d)**", len(entries)), entries), Ephemeral: true}, nil
}

// HandleTrace shows every audit entry for a trace id in this guild.
func (h *Handlers) HandleTrace(ctx context.Context, inv *Invocation) (*Reply, error) {
	if h.audit == nil {
		return ephemeral("Audit log is not configured."), nil
	}
	id := inv.Option("id")
	if id == "" {
		return ephemeral("❌ A trace id is required."), nil
	}
	all, err := h.audit.AuditByTrace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", id, err)
	}
	var entries []*store.AuditEntry
	for _, e := range all {
		if e.GuildID == inv.GuildID {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return ephemeral(fmt.Sprintf("No entries found for trace: %s", id)), nil
	}
	return &Reply{Content: formatAudit(fmt.Sprintf("**Trace %s** (%d entries)", id, len(entries)), entries), Ephemeral: true}, nil
}

func (h *Handlers) HandlePing(context.Context, *Invocation) (*Reply, error) {
	if h.latency == nil {
		return &Reply{Content: "🏓 Pong!"}, nil
	}
	return &Reply{Content: fmt.Sprintf("🏓 Pong! Gateway latency: %dms", h.latency().Milliseconds())}, nil
}

func (h *Handlers) HandleVersion(context.Context, *Invocation) (*Reply, error) {
	return &Reply{Content: version.Info(), Ephemeral: true}, nil
}

// HandleHelp lists every command with its options.
func (h *Handlers) HandleHelp(context.Context, *Invocation) (*Reply, error) {
	var b strings.Builder
	b.WriteString("**Kanri commands**")
	for _, d := range Definitions() {
		fmt.Fprintf(&b, "\n• `/%s", d.Name)
		for _, o := range d.Options {
			if o.Required {
				fmt.Fprintf(&b, " %s:", o.Name)
			} else {
				fmt.Fprintf(&b, " [%s]", o.Name)
			}
		}
		fmt.Fprintf(&b, "` %s", d.Description)
	}
	return &Reply{Content: clip(b.String()), Ephemeral: true}, nil
}
