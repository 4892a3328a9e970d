package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func closedRequest(final Outcome, analyst Status, comments ...string) *PricingRequest {
	pr := &PricingRequest{
		SalesStatus:         StatusClosed,
		AnalystStatus:       analyst,
		FinalApprovalStatus: final,
	}
	for _, c := range comments {
		pr.Comments = append(pr.Comments, Comment{Text: c})
	}
	return pr
}

func TestResolveOutcome(t *testing.T) {
	scan := OutcomeOptions{ScanComments: true}

	tests := []struct {
		name string
		pr   *PricingRequest
		opts OutcomeOptions
		want Outcome
	}{
		{"explicit marker wins", closedRequest(OutcomeRejected, StatusApproved, "approved by finance"), scan, OutcomeRejected},
		{"explicit approved", closedRequest(OutcomeApproved, StatusRejected), OutcomeOptions{}, OutcomeApproved},
		{"analyst track", closedRequest(OutcomeNone, StatusApproved), OutcomeOptions{}, OutcomeApproved},
		{"analyst track rejected", closedRequest(OutcomeNone, StatusRejected), OutcomeOptions{}, OutcomeRejected},
		{"comment scan disabled", closedRequest(OutcomeNone, StatusNone, "Rejected: missing data"), OutcomeOptions{}, OutcomeNone},
		{"comment scan approved", closedRequest(OutcomeNone, StatusNone, "rejected earlier", "Now APPROVED"), scan, OutcomeApproved},
		{"comment scan rejected", closedRequest(OutcomeNone, StatusNone, "Rejected: missing data"), scan, OutcomeRejected},
		{"nothing to go on", closedRequest(OutcomeNone, StatusNone, "thanks"), scan, OutcomeNone},
		{"not closed", &PricingRequest{SalesStatus: StatusApproved, AnalystStatus: StatusApproved, FinalApprovalStatus: OutcomeApproved}, scan, OutcomeNone},
		{"nil", nil, scan, OutcomeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveOutcome(tt.pr, tt.opts))
		})
	}
}

func TestResolveOutcome_AfterWorkflow(t *testing.T) {
	pr := newActive(t)
	if err := pr.Reject(analystA, "approved pricing not possible"); err != nil {
		t.Fatal(err)
	}
	if err := pr.Close(); err != nil {
		t.Fatal(err)
	}

	// the comment mentions "approved" but the recorded outcome decides
	assert.Equal(t, OutcomeRejected, ResolveOutcome(pr, OutcomeOptions{ScanComments: true}))
}
