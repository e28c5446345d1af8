package pipeline

import (
	"fmt"

	"github.com/bdobrica/Kanri/internal/kanri/actions"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
)

// Status is how far an instruction got.
type Status string

const (
	// StatusUnauthorized: the actor lacks Manage Server. Nothing ran.
	StatusUnauthorized Status = "unauthorized"
	// StatusRejected: rate limited or the instruction carried a credential.
	StatusRejected Status = "rejected"
	// StatusFailed: the guild could not be loaded.
	StatusFailed          Status = "failed"
	StatusInferenceFailed Status = "inference_failed"
	StatusParseFailed     Status = "parse_failed"
	StatusNoActions       Status = "no_actions"
	// StatusPending: a destructive batch awaits confirmation.
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Report is the outcome of one instruction, confirmation or direct command.
type Report struct {
	TraceID string
	Status  Status
	Actions actions.List
	// Results has one entry per action, in order, when Status is
	// StatusExecuted.
	Results []actions.Result
	Pending *approvals.Pending
	// Raw is the redacted model text.
	Raw string
	// Detail explains a non-executed status.
	Detail string
}

// Succeeded counts successful results.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Failed counts failed results.
func (r *Report) Failed() int { return len(r.Results) - r.Succeeded() }

// Summary is the one-line headline of an executed report.
func (r *Report) Summary() string {
	return fmt.Sprintf("Executed %d action(s): %d succeeded, %d failed", len(r.Results), r.Succeeded(), r.Failed())
}
