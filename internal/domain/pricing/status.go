package pricing

import (
	"strings"

	"golang.org/x/text/cases"
)

// Status is the label of one status track of a pricing request. The value is the
// canonical display label, which is also what the server emits on the wire.
type Status string

const (
	// StatusNone means the track carries no label yet (analyst track of a draft)
	StatusNone           Status = ""
	StatusDraft          Status = "Draft"
	StatusUnderReview    Status = "Under Review"
	StatusActionRequired Status = "Action Required"
	StatusActive         Status = "Active Status"
	StatusApproved       Status = "Approved"
	StatusRejected       Status = "Rejected"
	StatusClosed         Status = "Closed"
	// StatusUnknown is the bucket for labels this client does not recognize.
	// It enables no actions.
	StatusUnknown Status = "Unknown"
)

// knownStatuses maps the folded, separator-normalized form of each label to its status
var knownStatuses = func() map[string]Status {
	m := make(map[string]Status)
	for _, s := range []Status{
		StatusDraft, StatusUnderReview, StatusActionRequired, StatusActive,
		StatusApproved, StatusRejected, StatusClosed,
	} {
		m[foldLabel(string(s))] = s
	}
	return m
}()

// ParseStatus canonicalizes a status label. Matching ignores case and treats
// underscores, hyphens and runs of whitespace as a single separator, so
// "ACTIVE_STATUS", "Active Status" and "active status" are the same status.
// An empty label yields StatusNone; anything unrecognized yields StatusUnknown.
func ParseStatus(label string) Status {
	if strings.TrimSpace(label) == "" {
		return StatusNone
	}
	if s, ok := knownStatuses[foldLabel(label)]; ok {
		return s
	}
	return StatusUnknown
}

func foldLabel(label string) string {
	label = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, label)
	// Casers hold state and are not shared between goroutines
	return strings.Join(strings.Fields(cases.Fold().String(label)), " ")
}

// IsKnown reports whether the status is one of the lifecycle states
func (s Status) IsKnown() bool {
	switch s {
	case StatusDraft, StatusUnderReview, StatusActionRequired, StatusActive,
		StatusApproved, StatusRejected, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition leaves this status
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// String returns the canonical label
func (s Status) String() string {
	return string(s)
}

// Outcome is the sticky decision recorded when a request is approved or rejected
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeApproved Outcome = "Approved"
	OutcomeRejected Outcome = "Rejected"
)

// ParseOutcome canonicalizes an outcome label with the same rules as ParseStatus
func ParseOutcome(label string) Outcome {
	switch ParseStatus(label) {
	case StatusApproved:
		return OutcomeApproved
	case StatusRejected:
		return OutcomeRejected
	}
	return OutcomeNone
}

// String returns the canonical label
func (o Outcome) String() string {
	return string(o)
}
