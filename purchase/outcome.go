package purchase

import (
	"fmt"
	"strings"
)

// Status codes exchanged with the scripting layer
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusPurchased = "purchased"
	StatusRestored  = "restored"
	StatusCancelled = "cancelled"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// Result is the tag of a purchase outcome
type Result string

const (
	ResultPurchased Result = "purchased"
	ResultCancelled Result = "cancelled"
	ResultPending   Result = "pending"
	ResultFailed    Result = "failed"
)

const unexpectedError = "Unexpected error."

// Outcome is the result of a purchase; Reason is set for failures only.
type Outcome struct {
	Result Result `json:"result"`
	Reason string `json:"reason,omitempty"`
}

func Purchased() Outcome { return Outcome{Result: ResultPurchased} }

func Cancelled() Outcome { return Outcome{Result: ResultCancelled} }

func Deferred() Outcome { return Outcome{Result: ResultPending} }

// Failed returns a failed outcome, an empty reason is replaced with a generic one
func Failed(reason string) Outcome {
	if reason == "" {
		reason = unexpectedError
	}
	return Outcome{Result: ResultFailed, Reason: reason}
}

// IsZero returns true for an unset outcome
func (o Outcome) IsZero() bool {
	return o.Result == ""
}

func (o Outcome) String() string {
	if o.Reason != "" {
		return string(o.Result) + ": " + o.Reason
	}
	return string(o.Result)
}

// ParseOutcome maps a scripting layer status to an outcome.
// restored maps to purchased: the SDK contract has no distinct restored outcome.
func ParseOutcome(status, errorMessage string) Outcome {
	switch strings.ToLower(status) {
	case StatusCompleted, StatusPurchased, StatusRestored:
		return Purchased()
	case StatusCancelled:
		return Cancelled()
	case StatusPending:
		return Deferred()
	case StatusFailed:
		return Failed(errorMessage)
	}
	return Failed(fmt.Sprintf("Unknown status: %s", status))
}

// ParseRestored maps a restore status, only restored is a success
func ParseRestored(status string) bool {
	return strings.EqualFold(status, StatusRestored)
}

// StatusOf renders an outcome back into a wire status
func StatusOf(o Outcome) string {
	switch o.Result {
	case ResultPurchased:
		return StatusPurchased
	case ResultCancelled:
		return StatusCancelled
	case ResultPending:
		return StatusPending
	}
	return StatusFailed
}
