// Package pipeline turns a natural-language instruction into executed guild
// actions: prompt, model call, parse, confirmation gate, then sequential
// execution with one result per action.
//
// The orchestrator is total. Every failure, from a missing permission to a
// model timeout, ends up in the returned Report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bdobrica/Kanri/common/redact"
	"github.com/bdobrica/Kanri/common/trace"
	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/audit"
	"github.com/bdobrica/Kanri/internal/kanri/metrics"
	"github.com/bdobrica/Kanri/internal/kanri/nlp"
	"github.com/bdobrica/Kanri/internal/kanri/platform"
	"github.com/bdobrica/Kanri/internal/kanri/store"
)

// DefaultTimeout bounds one model call.
const DefaultTimeout = 20 * time.Second

// UnauthorizedMessage is shown to members without Manage Server.
const UnauthorizedMessage = "❌ You need the Manage Server permission to use this command."

// AuditWriter persists audit rows. *store.Store implements it.
type AuditWriter interface {
	WriteAudit(ctx context.Context, rec store.AuditRecord) error
}

// Config wires an Orchestrator. Provider, Gate and Guilds are required.
type Config struct {
	Provider nlp.Provider
	Parser   nlp.Parser
	Gate     *approvals.Gate
	Executor *actions.Executor
	Guilds   platform.Directory

	// Optional collaborators.
	Limiter  *nlp.RateLimiter
	Audit    AuditWriter
	Notifier audit.Notifier
	Metrics  *metrics.Metrics
	Redactor *redact.Redactor
	Logger   *slog.Logger

	// Timeout bounds the model call; zero selects DefaultTimeout.
	Timeout time.Duration
}

// Orchestrator runs instructions. It is safe for concurrent use; the only
// state shared between instructions is the confirmation gate.
type Orchestrator struct {
	provider nlp.Provider
	parser   nlp.Parser
	gate     *approvals.Gate
	executor *actions.Executor
	guilds   platform.Directory
	limiter  *nlp.RateLimiter
	audit    AuditWriter
	notifier audit.Notifier
	metrics  *metrics.Metrics
	redactor *redact.Redactor
	logger   *slog.Logger
	timeout  time.Duration
}

// New validates cfg and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Provider == nil:
		return nil, errors.New("pipeline: provider is required")
	case cfg.Gate == nil:
		return nil, errors.New("pipeline: gate is required")
	case cfg.Guilds == nil:
		return nil, errors.New("pipeline: guild directory is required")
	}
	o := &Orchestrator{
		provider: cfg.Provider,
		parser:   cfg.Parser,
		gate:     cfg.Gate,
		executor: cfg.Executor,
		guilds:   cfg.Guilds,
		limiter:  cfg.Limiter,
		audit:    cfg.Audit,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		redactor: cfg.Redactor,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.executor == nil {
		o.executor = actions.NewExecutor(o.logger)
	}
	if o.notifier == nil {
		o.notifier = audit.Noop{}
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	return o, nil
}

// Request is one natural-language instruction.
type Request struct {
	GuildID     string
	ChannelID   string
	Actor       platform.Actor
	Instruction string
	// AutoConfirm runs destructive batches without asking.
	AutoConfirm bool
}

// HandleInstruction runs req to completion or to a pending confirmation.
func (o *Orchestrator) HandleInstruction(ctx context.Context, req Request) *Report {
	ctx, traceID := trace.Ensure(ctx)
	rep := &Report{TraceID: traceID}
	defer func() { o.metrics.ObserveInstruction(string(rep.Status)) }()

	log := o.logger.With(trace.Attr(ctx), "guild", req.GuildID, "actor", req.Actor.ID)
	instruction := o.redactor.String(req.Instruction)

	if !req.Actor.CanManageGuild() {
		rep.Status, rep.Detail = StatusUnauthorized, UnauthorizedMessage
		o.record(ctx, req.GuildID, req.Actor, "instruction", instruction, store.ResultDenied, nil, "missing Manage Server")
		return rep
	}
	if nlp.ContainsSecret(req.Instruction) {
		rep.Status, rep.Detail = StatusRejected, nlp.GuardrailMessage
		log.Warn("instruction rejected: looks like it contains a credential")
		o.record(ctx, req.GuildID, req.Actor, "instruction", "", store.ResultDenied, nil, "credential guardrail")
		return rep
	}
	if o.limiter != nil && !o.limiter.Allow(req.Actor.ID) {
		rep.Status, rep.Detail = StatusRejected, nlp.RateLimitMessage
		log.Info("instruction rate limited")
		return rep
	}

	guild, err := o.guilds.Guild(ctx, req.GuildID)
	if err != nil {
		rep.Status, rep.Detail = StatusFailed, fmt.Sprintf("Cannot access this server: %v", err)
		log.Error("guild lookup failed", "err", err)
		return rep
	}

	attrs := []any{"instruction", instruction, "auto_confirm", req.AutoConfirm}
	if o.limiter != nil {
		attrs = append(attrs, "quota_remaining", o.limiter.Remaining(req.Actor.ID))
	}
	log.Info("instruction received", attrs...)

	comp, err := o.complete(ctx, nlp.BuildPrompt(req.Instruction))
	if err != nil {
		rep.Status, rep.Detail = StatusInferenceFailed, o.redactor.String(err.Error())
		log.Warn("model call failed", "err", err)
		o.record(ctx, req.GuildID, req.Actor, "instruction", instruction, store.ResultError, nil, rep.Detail)
		o.notify(ctx, audit.KindInstructionFailed, req.GuildID, req.Actor, "model call failed: "+rep.Detail)
		return rep
	}
	rep.Raw = o.redactor.String(comp.Text)

	list, err := o.parser.Parse(comp.Text)
	switch {
	case errors.Is(err, nlp.ErrNoActions):
		rep.Status, rep.Detail = StatusNoActions, "No actions to perform."
		log.Info("model returned no actions")
		return rep
	case err != nil:
		rep.Status, rep.Detail = StatusParseFailed, err.Error()
		log.Warn("model output not parseable", "err", err, "raw_len", len(comp.Text))
		o.record(ctx, req.GuildID, req.Actor, "instruction", instruction, store.ResultError,
			store.AuditPayload{"raw": rep.Raw}, err.Error())
		return rep
	}
	rep.Actions = list

	if approvals.RequiresConfirmation(list) && !req.AutoConfirm {
		p := o.gate.Request(approvals.Request{
			RequesterID: req.Actor.ID,
			GuildID:     req.GuildID,
			ChannelID:   req.ChannelID,
			TraceID:     traceID,
			Actions:     list,
		})
		rep.Status, rep.Pending = StatusPending, p
		o.metrics.SetPending(o.gate.Outstanding())
		log.Info("confirmation requested", "confirmation", p.ID, "actions", len(list))
		o.record(ctx, req.GuildID, req.Actor, "instruction", instruction, store.ResultPending,
			store.AuditPayload{"confirmation_id": p.ID, "actions": len(list)}, "")
		o.notify(ctx, audit.KindConfirmationRequested, req.GuildID, req.Actor,
			fmt.Sprintf("%d action(s) await confirmation (%s)", len(list), p.ID))
		return rep
	}

	rep.Results = o.run(ctx, guild, req.Actor, list)
	rep.Status = StatusExecuted
	log.Info("instruction executed", "succeeded", rep.Succeeded(), "failed", rep.Failed())
	o.notify(ctx, audit.KindInstructionExecuted, req.GuildID, req.Actor,
		fmt.Sprintf("%s for %q", rep.Summary(), instruction))
	return rep
}

// complete calls the provider under the orchestrator timeout. It returns as
// soon as the deadline passes even if the provider ignores its context.
func (o *Orchestrator) complete(ctx context.Context, prompt nlp.Prompt) (*nlp.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		comp *nlp.Completion
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		comp, err := o.provider.Complete(ctx, prompt)
		done <- outcome{comp, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = &nlp.InferenceError{Provider: "model", Err: ctx.Err()}
	}
	o.metrics.ObserveInference(time.Since(start), out.err)

	if out.err != nil {
		return nil, out.err
	}
	if out.comp == nil {
		return nil, &nlp.InferenceError{Provider: "model", Err: errors.New("empty completion")}
	}
	return out.comp, nil
}

// run executes list in order against g, auditing each result.
func (o *Orchestrator) run(ctx context.Context, g platform.Guild, actor platform.Actor, list actions.List) []actions.Result {
	results := make([]actions.Result, 0, len(list))
	for _, a := range list {
		res := o.executor.Execute(ctx, g, a)
		results = append(results, res)

		o.metrics.ObserveAction(string(res.Kind), res.Success)
		outcome, errMsg := store.ResultSuccess, ""
		if !res.Success {
			outcome, errMsg = store.ResultError, res.Message
		}
		var payload store.AuditPayload
		if src := a.Raw(); src != nil {
			payload = redact.Map(src)
		}
		o.record(ctx, g.ID(), actor, string(res.Kind), a.Describe(), outcome, payload, errMsg)
	}
	return results
}

// Confirm resolves a pending confirmation and runs its actions. Gate errors
// (not found, expired, already resolved, unauthorized) are returned as is
// and nothing runs.
func (o *Orchestrator) Confirm(ctx context.Context, id string, actor platform.Actor) (*Report, error) {
	p, err := o.gate.Confirm(id, actor)
	o.metrics.SetPending(o.gate.Outstanding())
	if err != nil {
		o.denied(ctx, "confirm", id, actor, err)
		return nil, err
	}
	ctx = trace.WithTraceID(ctx, p.TraceID)
	rep := &Report{TraceID: p.TraceID, Actions: p.Actions, Pending: p}
	defer func() { o.metrics.ObserveInstruction(string(rep.Status)) }()

	o.logger.InfoContext(ctx, "confirmation accepted", trace.Attr(ctx), "confirmation", id, "actor", actor.ID)
	o.notify(ctx, audit.KindConfirmationConfirmed, p.GuildID, actor, fmt.Sprintf("confirmation %s accepted", id))

	guild, err := o.guilds.Guild(ctx, p.GuildID)
	if err != nil {
		rep.Status, rep.Detail = StatusFailed, fmt.Sprintf("Cannot access this server: %v", err)
		o.logger.ErrorContext(ctx, "guild lookup failed", trace.Attr(ctx), "guild", p.GuildID, "err", err)
		return rep, nil
	}
	rep.Results = o.run(ctx, guild, actor, p.Actions)
	rep.Status = StatusExecuted
	o.notify(ctx, audit.KindInstructionExecuted, p.GuildID, actor, rep.Summary())
	return rep, nil
}

// Cancel discards a pending confirmation without running anything.
func (o *Orchestrator) Cancel(ctx context.Context, id string, actor platform.Actor) (*Report, error) {
	p, err := o.gate.Cancel(id, actor)
	o.metrics.SetPending(o.gate.Outstanding())
	if err != nil {
		o.denied(ctx, "cancel", id, actor, err)
		return nil, err
	}
	ctx = trace.WithTraceID(ctx, p.TraceID)
	o.logger.InfoContext(ctx, "confirmation cancelled", trace.Attr(ctx), "confirmation", id, "actor", actor.ID)
	o.record(ctx, p.GuildID, actor, "cancel", id, store.ResultSuccess, nil, "")
	o.notify(ctx, audit.KindConfirmationCancelled, p.GuildID, actor, fmt.Sprintf("confirmation %s cancelled", id))
	o.metrics.ObserveInstruction(string(StatusCancelled))
	return &Report{TraceID: p.TraceID, Status: StatusCancelled, Actions: p.Actions, Pending: p}, nil
}

// Expire retires a confirmation whose deadline has passed. It reports
// whether anything was retired.
func (o *Orchestrator) Expire(ctx context.Context, id string) bool {
	if !o.gate.Expire(id) {
		return false
	}
	o.metrics.SetPending(o.gate.Outstanding())
	o.logger.InfoContext(ctx, "confirmation expired", "confirmation", id)
	o.notify(ctx, audit.KindConfirmationExpired, "", platform.Actor{}, fmt.Sprintf("confirmation %s expired", id))
	return true
}

// Execute runs one action from a direct command. It skips the model and the
// confirmation gate but applies the same permission check, audit and metrics.
func (o *Orchestrator) Execute(ctx context.Context, guildID string, actor platform.Actor, a actions.Action) *Report {
	ctx, traceID := trace.Ensure(ctx)
	rep := &Report{TraceID: traceID, Actions: actions.List{a}}

	if !actor.CanManageGuild() {
		rep.Status, rep.Detail = StatusUnauthorized, UnauthorizedMessage
		o.record(ctx, guildID, actor, string(a.Kind()), a.Describe(), store.ResultDenied, nil, "missing Manage Server")
		return rep
	}
	guild, err := o.guilds.Guild(ctx, guildID)
	if err != nil {
		rep.Status, rep.Detail = StatusFailed, fmt.Sprintf("Cannot access this server: %v", err)
		return rep
	}
	rep.Results = o.run(ctx, guild, actor, rep.Actions)
	rep.Status = StatusExecuted
	o.notify(ctx, audit.KindDirectCommand, guildID, actor, fmt.Sprintf("%s: %s", a.Describe(), rep.Results[0].Message))
	return rep
}

func (o *Orchestrator) denied(ctx context.Context, op, id string, actor platform.Actor, err error) {
	o.logger.InfoContext(ctx, "confirmation not resolved", "op", op, "confirmation", id, "actor", actor.ID, "err", err)
	if errors.Is(err, approvals.ErrUnauthorized) {
		o.record(ctx, actor.GuildID, actor, op, id, store.ResultDenied, nil, err.Error())
	}
}

func (o *Orchestrator) record(ctx context.Context, guildID string, actor platform.Actor, action, target, result string, payload store.AuditPayload, errMsg string) {
	if o.audit == nil {
		return
	}
	err := o.audit.WriteAudit(ctx, store.AuditRecord{
		TraceID: trace.FromContext(ctx),
		GuildID: guildID,
		ActorID: actor.ID,
		Action:  action,
		Target:  target,
		Result:  result,
		Payload: payload,
		Error:   o.redactor.String(errMsg),
	})
	if err != nil {
		o.logger.WarnContext(ctx, "audit write failed", "op", action, "err", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, kind audit.Kind, guildID string, actor platform.Actor, msg string) {
	o.notifier.Notify(ctx, audit.Event{
		Kind:      kind,
		GuildID:   guildID,
		Actor:     actor.String(),
		Message:   msg,
		Timestamp: time.Now(),
	})
}
