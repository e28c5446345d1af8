package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
	"github.com/bdobrica/Kanri/internal/kanri/store"
)

// maxMessageLen keeps replies under Discord's 2000 character limit.
const maxMessageLen = 1900

// Prompt status lines shown once a confirmation is resolved.
const (
	ConfirmedStatus = "Confirmed. Actions executed."
	CancelledStatus = "Cancelled. No actions were taken."
	ExpiredStatus   = "Expired. No actions were taken."
)

// FormatReport renders rep for the requester.
func FormatReport(rep *pipeline.Report) string {
	switch rep.Status {
	case pipeline.StatusExecuted:
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**", rep.Summary())
		for _, res := range rep.Results {
			mark := "✅"
			if !res.Success {
				mark = "❌"
			}
			fmt.Fprintf(&b, "\n%s %s", mark, res.Message)
		}
		return clip(b.String())
	case pipeline.StatusParseFailed:
		return fmt.Sprintf("Failed to parse the model response as JSON.\n\nRaw response:\n```\n%s\n```",
			clip(strings.ReplaceAll(rep.Raw, "```", "'''")))
	case pipeline.StatusNoActions:
		return "AI returned no actions to perform."
	case pipeline.StatusInferenceFailed:
		return clip("⚠️ The language model could not be reached: " + rep.Detail)
	case pipeline.StatusPending:
		return FormatConfirmation(rep.Pending)
	case pipeline.StatusCancelled:
		return CancelledStatus
	default:
		return rep.Detail
	}
}

// FormatConfirmation renders the review prompt for p.
func FormatConfirmation(p *approvals.Pending) string {
	if p == nil {
		return ""
	}
	return clip(fmt.Sprintf("**Confirm AI Actions**\nThe AI parsed the following actions from your instruction. Confirm to execute.\n```json\n%s\n```\nExpires <t:%d:R>. Id: `%s`",
		p.Actions.JSON(), p.ExpiresAt.Unix(), p.ID))
}

// DecisionError turns a gate error into a reply for the actor.
func DecisionError(err error) *Reply {
	msg := "❌ " + err.Error()
	switch {
	case errors.Is(err, approvals.ErrUnauthorized):
		msg = "You are not allowed to confirm this action."
	case errors.Is(err, approvals.ErrExpired):
		msg = "⌛ This confirmation has expired. Run the instruction again."
	case errors.Is(err, approvals.ErrAlreadyResolved):
		msg = "This confirmation has already been handled."
	case errors.Is(err, approvals.ErrNotFound):
		msg = "❌ No such confirmation."
	}
	return &Reply{Content: msg, Ephemeral: true}
}

func formatAudit(title string, entries []*store.AuditEntry) string {
	var b strings.Builder
	b.WriteString(title)
	for _, e := range entries {
		mark := "✅"
		switch e.Result {
		case store.ResultError:
			mark = "❌"
		case store.ResultDenied:
			mark = "🚫"
		case store.ResultPending:
			mark = "⏳"
		}
		fmt.Fprintf(&b, "\n%s `%s` **%s**", mark, e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Action)
		if e.Target != "" {
			fmt.Fprintf(&b, " %s", e.Target)
		}
		if e.ActorID != "" {
			fmt.Fprintf(&b, " by <@%s>", e.ActorID)
		}
		if e.Error != "" {
			fmt.Fprintf(&b, ": %s", e.Error)
		}
		fmt.Fprintf(&b, " (%s)", e.TraceID)
	}
	return clip(b.String())
}

func clip(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
