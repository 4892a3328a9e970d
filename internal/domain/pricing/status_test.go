package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		label string
		want  Status
	}{
		{"Draft", StatusDraft},
		{"DRAFT", StatusDraft},
		{"Under Review", StatusUnderReview},
		{"UNDER_REVIEW", StatusUnderReview},
		{"under-review", StatusUnderReview},
		{"ACTIVE_STATUS", StatusActive},
		{"Active Status", StatusActive},
		{"active status", StatusActive},
		{"  Active   Status ", StatusActive},
		{"Action Required", StatusActionRequired},
		{"action_required", StatusActionRequired},
		{"Approved", StatusApproved},
		{"rejected", StatusRejected},
		{"CLOSED", StatusClosed},
		{"", StatusNone},
		{"   ", StatusNone},
		{"Escalated", StatusUnknown},
		{"Active", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.label))
		})
	}
}

func TestStatus_IsKnown(t *testing.T) {
	assert.True(t, StatusActive.IsKnown())
	assert.True(t, StatusClosed.IsKnown())
	assert.False(t, StatusUnknown.IsKnown())
	assert.False(t, StatusNone.IsKnown())
	assert.True(t, StatusClosed.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
}

func TestParseOutcome(t *testing.T) {
	assert.Equal(t, OutcomeApproved, ParseOutcome("APPROVED"))
	assert.Equal(t, OutcomeRejected, ParseOutcome("Rejected"))
	assert.Equal(t, OutcomeNone, ParseOutcome(""))
	assert.Equal(t, OutcomeNone, ParseOutcome("Closed"))
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in   string
		want Decision
		ok   bool
	}{
		{"approve", DecisionApprove, true},
		{"REJECT", DecisionReject, true},
		{"action_required", DecisionActionRequired, true},
		{"action-required", DecisionActionRequired, true},
		{"close", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecision(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPricingRequest_State(t *testing.T) {
	tests := []struct {
		name     string
		sales    Status
		analyst  Status
		expected Status
	}{
		{"draft", StatusDraft, StatusNone, StatusDraft},
		{"under review", StatusUnderReview, StatusUnderReview, StatusUnderReview},
		{"active", StatusUnderReview, StatusActive, StatusActive},
		{"action required", StatusActionRequired, StatusActionRequired, StatusActionRequired},
		{"approved", StatusApproved, StatusApproved, StatusApproved},
		{"rejected", StatusRejected, StatusRejected, StatusRejected},
		{"closed approved", StatusClosed, StatusApproved, StatusClosed},
		{"closed rejected", StatusClosed, StatusRejected, StatusClosed},
		{"nothing known", StatusUnknown, StatusNone, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := &PricingRequest{SalesStatus: tt.sales, AnalystStatus: tt.analyst}
			assert.Equal(t, tt.expected, pr.State())
		})
	}
}

func TestPricingRequest_StateFor(t *testing.T) {
	t.Run("analyst view without sales track", func(t *testing.T) {
		pr := &PricingRequest{AnalystStatus: StatusActive}
		assert.Equal(t, StatusActive, pr.StateFor(analystA.Role))
	})

	t.Run("analyst sees closed once sales track closes", func(t *testing.T) {
		pr := &PricingRequest{SalesStatus: StatusClosed, AnalystStatus: StatusApproved}
		assert.Equal(t, StatusClosed, pr.StateFor(analystA.Role))
	})

	t.Run("sales uses derived state", func(t *testing.T) {
		pr := &PricingRequest{SalesStatus: StatusUnderReview, AnalystStatus: StatusActive}
		assert.Equal(t, StatusActive, pr.StateFor(salesOwner.Role))
	})
}
