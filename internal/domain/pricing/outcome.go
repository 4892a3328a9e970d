package pricing

import "strings"

// OutcomeOptions tunes ResolveOutcome
type OutcomeOptions struct {
	// ScanComments enables the legacy fallback that looks for "approved" or
	// "rejected" in the most recent comment. Records written by this server
	// always carry FinalApprovalStatus, so this only matters for imported data.
	ScanComments bool
}

// ResolveOutcome returns the decision a closed request should be displayed
// with. The explicit marker wins over the analyst track, which wins over the
// optional comment scan. Requests that are not closed resolve to OutcomeNone.
func ResolveOutcome(pr *PricingRequest, opts OutcomeOptions) Outcome {
	if pr == nil || pr.State() != StatusClosed {
		return OutcomeNone
	}
	if pr.FinalApprovalStatus != OutcomeNone {
		return pr.FinalApprovalStatus
	}
	switch pr.AnalystStatus {
	case StatusApproved:
		return OutcomeApproved
	case StatusRejected:
		return OutcomeRejected
	}
	if opts.ScanComments {
		if c, ok := pr.LastComment(); ok {
			text := strings.ToLower(c.Text)
			switch {
			case strings.Contains(text, "approved"):
				return OutcomeApproved
			case strings.Contains(text, "rejected"):
				return OutcomeRejected
			}
		}
	}
	return OutcomeNone
}
