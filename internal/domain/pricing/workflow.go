package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/google/uuid"
)

// Action is a workflow operation on a pricing request
type Action string

const (
	ActionEdit          Action = "edit"
	ActionSubmit        Action = "submit"
	ActionDelete        Action = "delete"
	ActionResubmit      Action = "resubmit"
	ActionAssign        Action = "assign"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionRequestAction Action = "action_required"
	ActionClose         Action = "close"
)

// String returns the string representation of Action
func (a Action) String() string {
	return string(a)
}

// Decision is what an analyst decides on an active request. The values are
// the "action" field of the approve-reject endpoint.
type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionReject         Decision = "reject"
	DecisionActionRequired Decision = "action_required"
)

// ParseDecision accepts the approve-reject action values, case-insensitively
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, true
	case DecisionReject:
		return DecisionReject, true
	case DecisionActionRequired, "action-required", "action required":
		return DecisionActionRequired, true
	}
	return "", false
}

// Action returns the workflow action the decision performs
func (d Decision) Action() Action {
	switch d {
	case DecisionApprove:
		return ActionApprove
	case DecisionReject:
		return ActionReject
	case DecisionActionRequired:
		return ActionRequestAction
	}
	return ""
}

type guard int

const (
	guardOwner guard = iota
	guardUnassigned
	guardAssignee
	guardNone
)

type transition struct {
	from            Status
	action          Action
	role            identity.Role
	to              Status
	guard           guard
	commentRequired bool
}

// transitions is the complete set of legal moves. Delete has no target state.
var transitions = []transition{
	{from: StatusDraft, action: ActionEdit, role: identity.RoleSalesExecutive, to: StatusDraft, guard: guardOwner},
	{from: StatusDraft, action: ActionSubmit, role: identity.RoleSalesExecutive, to: StatusUnderReview, guard: guardOwner},
	{from: StatusDraft, action: ActionDelete, role: identity.RoleSalesExecutive, guard: guardOwner},
	{from: StatusUnderReview, action: ActionAssign, role: identity.RolePricingAnalyst, to: StatusActive, guard: guardUnassigned},
	{from: StatusActive, action: ActionApprove, role: identity.RolePricingAnalyst, to: StatusApproved, guard: guardAssignee},
	{from: StatusActive, action: ActionReject, role: identity.RolePricingAnalyst, to: StatusRejected, guard: guardAssignee, commentRequired: true},
	{from: StatusActive, action: ActionRequestAction, role: identity.RolePricingAnalyst, to: StatusActionRequired, guard: guardAssignee, commentRequired: true},
	{from: StatusActionRequired, action: ActionEdit, role: identity.RoleSalesExecutive, to: StatusActionRequired, guard: guardOwner},
	{from: StatusActionRequired, action: ActionResubmit, role: identity.RoleSalesExecutive, to: StatusUnderReview, guard: guardOwner},
	{from: StatusApproved, action: ActionClose, to: StatusClosed, guard: guardNone},
	{from: StatusRejected, action: ActionClose, to: StatusClosed, guard: guardNone},
}

// actionOrder is the display order of AllowedActions
var actionOrder = []Action{
	ActionEdit, ActionSubmit, ActionResubmit, ActionDelete,
	ActionAssign, ActionApprove, ActionReject, ActionRequestAction,
}

func findTransition(from Status, action Action) (transition, bool) {
	for _, t := range transitions {
		if t.from == from && t.action == action {
			return t, true
		}
	}
	return transition{}, false
}

// ActionsFrom lists every action leaving a state regardless of actor
func ActionsFrom(from Status) []Action {
	actions := make([]Action, 0)
	for _, t := range transitions {
		if t.from == from {
			actions = append(actions, t.action)
		}
	}
	return actions
}

// Can checks whether the actor may perform the action now. It returns an
// INVALID_STATE error when the state does not allow the action and a FORBIDDEN
// error when the state does but the actor does not qualify.
func (pr *PricingRequest) Can(actor identity.Actor, action Action) error {
	state := pr.StateFor(actor.Role)
	t, ok := findTransition(state, action)
	if !ok {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot %s a pricing request in %s status", action, state))
	}
	if t.guard == guardNone {
		return nil
	}
	if t.role != actor.Role {
		return shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Only a %s can %s this pricing request", t.role.DisplayName(), action))
	}
	switch t.guard {
	case guardOwner:
		if !pr.IsOwnedBy(actor.UserID) {
			return shared.NewDomainError(shared.CodeForbidden, "Only the creator can modify this pricing request")
		}
	case guardUnassigned:
		if pr.IsAssigned() {
			return shared.NewDomainError(shared.CodeInvalidState, "Pricing request is already assigned")
		}
	case guardAssignee:
		if !pr.IsAssignedTo(actor.UserID) {
			return shared.NewDomainError(shared.CodeForbidden, "Only the assigned analyst can act on this pricing request")
		}
	}
	return nil
}

// AllowedActions lists, in display order, the actions the actor may perform.
// Presentation uses it to enable controls; the server enforces the same rules.
func AllowedActions(pr *PricingRequest, actor identity.Actor) []Action {
	allowed := make([]Action, 0)
	for _, a := range actionOrder {
		if pr.Can(actor, a) == nil {
			allowed = append(allowed, a)
		}
	}
	return allowed
}

// Edit replaces the details of a draft or action-required request
func (pr *PricingRequest) Edit(actor identity.Actor, details Details) error {
	if err := pr.Can(actor, ActionEdit); err != nil {
		return err
	}
	details = details.Clone()
	details.normalize()
	if err := ValidateDetails(details); err != nil {
		return err
	}
	pr.Details = details
	pr.Touch()
	return nil
}

// Submit sends a draft to the analysts' pool
func (pr *PricingRequest) Submit(actor identity.Actor) error {
	if err := pr.Can(actor, ActionSubmit); err != nil {
		return err
	}
	if err := ValidateDetails(pr.Details); err != nil {
		return err
	}
	pr.stampSubmission()
	pr.setState(StatusUnderReview)
	return nil
}

// CheckDelete verifies the request may be removed by the actor
func (pr *PricingRequest) CheckDelete(actor identity.Actor) error {
	return pr.Can(actor, ActionDelete)
}

// Assign claims an unassigned request for the acting analyst
func (pr *PricingRequest) Assign(actor identity.Actor) error {
	if err := pr.Can(actor, ActionAssign); err != nil {
		return err
	}
	pr.AssignedTo = actor.UserID
	pr.setState(StatusActive)
	return nil
}

// Approve records an approval. The comment is optional.
func (pr *PricingRequest) Approve(actor identity.Actor, comment string) error {
	return pr.decide(actor, ActionApprove, comment)
}

// Reject records a rejection. A comment is required.
func (pr *PricingRequest) Reject(actor identity.Actor, comment string) error {
	return pr.decide(actor, ActionReject, comment)
}

// RequestAction sends the request back to its creator with a comment
func (pr *PricingRequest) RequestAction(actor identity.Actor, comment string) error {
	return pr.decide(actor, ActionRequestAction, comment)
}

// Decide dispatches an approve-reject decision
func (pr *PricingRequest) Decide(actor identity.Actor, decision Decision, comment string) error {
	action := decision.Action()
	if action == "" {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Unknown decision %q", decision))
	}
	return pr.decide(actor, action, comment)
}

func (pr *PricingRequest) decide(actor identity.Actor, action Action, comment string) error {
	if err := pr.Can(actor, action); err != nil {
		return err
	}
	t, _ := findTransition(pr.StateFor(actor.Role), action)
	comment = strings.TrimSpace(comment)
	if t.commentRequired && comment == "" {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("A comment is required to %s", strings.ReplaceAll(string(action), "_", " ")))
	}
	if comment != "" {
		pr.AddComment(actor, comment)
	}

	switch t.to {
	case StatusApproved:
		pr.recordOutcome(OutcomeApproved)
	case StatusRejected:
		pr.recordOutcome(OutcomeRejected)
	}
	pr.setState(t.to)
	return nil
}

// Resubmit replaces the details of an action-required request and returns it
// to the unassigned pool
func (pr *PricingRequest) Resubmit(actor identity.Actor, details Details) error {
	if err := pr.Can(actor, ActionResubmit); err != nil {
		return err
	}
	details = details.Clone()
	details.normalize()
	if err := ValidateDetails(details); err != nil {
		return err
	}
	pr.Details = details
	pr.AssignedTo = ""
	pr.stampSubmission()
	pr.setState(StatusUnderReview)
	return nil
}

// Close freezes an approved or rejected request
func (pr *PricingRequest) Close() error {
	state := pr.State()
	if _, ok := findTransition(state, ActionClose); !ok {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot close a pricing request in %s status", state))
	}
	pr.setState(StatusClosed)
	return nil
}

// AddComment appends a comment authored by the actor
func (pr *PricingRequest) AddComment(actor identity.Actor, text string) Comment {
	c := Comment{
		ID:         uuid.New().String(),
		Text:       text,
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		CreatedAt:  time.Now().UTC(),
	}
	pr.Comments = append(pr.Comments, c)
	pr.Touch()
	return c
}

// recordOutcome sets the sticky outcome marker; the first recorded value wins
func (pr *PricingRequest) recordOutcome(o Outcome) {
	if pr.FinalApprovalStatus == OutcomeNone {
		pr.FinalApprovalStatus = o
	}
}

func (pr *PricingRequest) stampSubmission() {
	if pr.SubmissionDate == nil {
		now := time.Now().UTC()
		pr.SubmissionDate = &now
	}
}

// setState writes both track labels for a lifecycle state
func (pr *PricingRequest) setState(state Status) {
	switch state {
	case StatusDraft:
		pr.SalesStatus, pr.AnalystStatus = StatusDraft, StatusNone
	case StatusUnderReview:
		pr.SalesStatus, pr.AnalystStatus = StatusUnderReview, StatusUnderReview
	case StatusActive:
		pr.SalesStatus, pr.AnalystStatus = StatusUnderReview, StatusActive
	case StatusActionRequired:
		pr.SalesStatus, pr.AnalystStatus = StatusActionRequired, StatusActionRequired
	case StatusApproved:
		pr.SalesStatus, pr.AnalystStatus = StatusApproved, StatusApproved
	case StatusRejected:
		pr.SalesStatus, pr.AnalystStatus = StatusRejected, StatusRejected
	case StatusClosed:
		pr.SalesStatus = StatusClosed
		if pr.FinalApprovalStatus != OutcomeNone {
			pr.AnalystStatus = Status(pr.FinalApprovalStatus)
		}
	}
	pr.Touch()
}
