package approvals

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotADecision is returned for component ids that are not confirmation
// buttons.
var ErrNotADecision = errors.New("approvals: not a confirmation decision")

const customIDPrefix = "kanri"

// Decision is a parsed confirm or cancel button press.
type Decision struct {
	Confirm bool
	ID      string
}

// ConfirmCustomID is the component id of the confirm button for id.
func ConfirmCustomID(id string) string { return customIDPrefix + ":confirm:" + id }

// CancelCustomID is the component id of the cancel button for id.
func CancelCustomID(id string) string { return customIDPrefix + ":cancel:" + id }

// ParseDecision parses a component id of the form kanri:<confirm|cancel>:<id>.
func ParseDecision(customID string) (*Decision, error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix {
		return nil, ErrNotADecision
	}
	var d Decision
	switch parts[1] {
	case "confirm":
		d.Confirm = true
	case "cancel":
	default:
		return nil, ErrNotADecision
	}
	d.ID = strings.TrimSpace(parts[2])
	if d.ID == "" {
		return nil, fmt.Errorf("approvals: %s decision without id", parts[1])
	}
	return &d, nil
}
