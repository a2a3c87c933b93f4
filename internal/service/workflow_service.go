package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/workflow"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

const maxNoteLength = 1000

// Actor is the authenticated caller as supplied by the auth collaborator.
type Actor struct {
	ID   string
	Role domain.Role
}

// WorkflowService applies status transitions and reads their history.
type WorkflowService struct {
	store        repository.Store
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	managerScope config.ManagerScope
	now          func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	Store        repository.Store
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	ManagerScope config.ManagerScope
	Clock        func() time.Time
}

// ChangeStatusInput describes a requested status change. ExpectedStatus, when
// set, is the status the caller last saw; a mismatch fails with CONFLICT.
type ChangeStatusInput struct {
	RequestID      string
	NewStatus      domain.ServiceRequestStatus
	UserID         string
	UserRole       domain.Role
	ExpectedStatus *domain.ServiceRequestStatus
	Reason         *string
	Notes          *string
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	scope := deps.ManagerScope
	if scope == "" {
		scope = config.ManagerScopeGlobal
	}
	return &WorkflowService{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		managerScope: scope,
		now:          clock,
	}
}

// ChangeStatus moves a service request to input.NewStatus and records the
// history entry in the same transaction.
func (s *WorkflowService) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*domain.ServiceRequest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	actor := Actor{ID: input.UserID, Role: input.UserRole}

	var (
		updated *domain.ServiceRequest
		from    domain.ServiceRequestStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		request, err := loadRequest(ctx, repos, input.RequestID)
		if err != nil {
			return err
		}
		if input.ExpectedStatus != nil && *input.ExpectedStatus != request.Status {
			return apperrors.NewConflict("service request status has changed; reload and retry", map[string]any{
				"expected_status": *input.ExpectedStatus,
				"current_status":  request.Status,
			})
		}
		from = request.Status
		updated, err = s.transition(ctx, repos, request, actor, transitionStep{
			to:     input.NewStatus,
			reason: input.Reason,
			notes:  input.Notes,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("service request status changed",
		zap.String("request_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventStatusChanged, updated.ID,
		events.Actor{ID: actor.ID, Role: actor.Role},
		events.StatusChangedPayload{FromStatus: from, ToStatus: updated.Status, Reason: input.Reason}))
	return updated, nil
}

// GetStatusHistory returns the transitions of a request, oldest first.
func (s *WorkflowService) GetStatusHistory(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	if err := validateID("request_id", requestID); err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if _, err := loadRequest(ctx, repos, requestID); err != nil {
		return nil, apperrors.MapError(err)
	}
	entries, err := repos.History.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(fmt.Errorf("list status history: %w", err))
	}
	if len(entries) == 0 {
		s.logger.Warn("service request has no status history", zap.String("request_id", requestID))
	}
	return entries, nil
}

// TransitionsForRole lists the edges leaving current annotated with whether
// role, in the abstract, may take them.
func (s *WorkflowService) TransitionsForRole(current domain.ServiceRequestStatus, role domain.Role) ([]workflow.TransitionOption, error) {
	if !workflow.IsKnown(current) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": current})
	}
	if !role.IsKnown() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	return workflow.Annotate(current, role), nil
}

// AvailableTransitions lists the edges leaving the request's current status,
// with HasPermission also reflecting the actor's standing over the request.
func (s *WorkflowService) AvailableTransitions(ctx context.Context, requestID string, actor Actor) ([]workflow.TransitionOption, error) {
	if err := validateID("request_id", requestID); err != nil {
		return nil, err
	}
	if !actor.Role.IsKnown() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": actor.Role})
	}
	repos := s.store.Repositories()
	request, err := loadRequest(ctx, repos, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	options := workflow.Annotate(request.Status, actor.Role)
	standing := s.checkStanding(ctx, repos, request, actor)
	if standing == nil {
		return options, nil
	}
	if !apperrors.HasCode(standing, apperrors.CodeInsufficientPerms) {
		return nil, apperrors.MapError(standing)
	}
	for i := range options {
		if options[i].HasPermission {
			options[i].HasPermission = false
			options[i].Reason = apperrors.ToDomainError(standing).Message
		}
	}
	return options, nil
}

type transitionStep struct {
	to     domain.ServiceRequestStatus
	reason *string
	notes  *string
}

// transition is the single write path for a request's status. It must run
// inside a unit of work; repos are the transaction's repositories.
func (s *WorkflowService) transition(ctx context.Context, repos repository.Repositories, request *domain.ServiceRequest, actor Actor, step transitionStep) (*domain.ServiceRequest, error) {
	from := request.Status
	if decision := workflow.Validate(from, step.to, actor.Role); !decision.Allowed {
		return nil, decisionError(decision, from, step.to)
	}
	if err := s.checkStanding(ctx, repos, request, actor); err != nil {
		return nil, err
	}
	current, err := currentAssignment(ctx, repos, request.ID)
	if err != nil {
		return nil, err
	}
	if err := checkBusinessRules(step.to, current); err != nil {
		return nil, err
	}

	updatedAt, err := repos.ServiceRequests.UpdateStatus(ctx, request.ID, from, step.to)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConflict("service request was modified concurrently; reload and retry", map[string]any{
				"expected_status": from,
			})
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	fromStatus := from
	entry := &domain.StatusHistoryEntry{
		ServiceRequestID: request.ID,
		FromStatus:       &fromStatus,
		ToStatus:         step.to,
		ChangedBy:        actor.ID,
		Reason:           step.reason,
		Notes:            step.notes,
	}
	if err := repos.History.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("record status history: %w", err)
	}

	if err := s.applyAssignmentEffects(ctx, repos, from, step.to, current); err != nil {
		return nil, err
	}

	updated := *request
	updated.Status = step.to
	updated.UpdatedAt = updatedAt
	return &updated, nil
}

// checkStanding decides whether this actor may act on this particular
// request. Role-class permission is the validator's job.
func (s *WorkflowService) checkStanding(ctx context.Context, repos repository.Repositories, request *domain.ServiceRequest, actor Actor) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleUser:
		if request.UserID != actor.ID {
			return apperrors.NewInsufficientPermissions("only the requester may change this service request")
		}
		return nil
	case domain.RoleOperator:
		current, err := currentAssignment(ctx, repos, request.ID)
		if err != nil {
			return err
		}
		if current == nil || current.OperatorID != actor.ID {
			return apperrors.NewInsufficientPermissions("operator is not assigned to this service request")
		}
		return nil
	case domain.RoleManager:
		if s.managerScope == config.ManagerScopeAssigned &&
			request.AssignedManagerID != nil && *request.AssignedManagerID != actor.ID {
			return apperrors.NewInsufficientPermissions("service request is managed by another manager")
		}
		return nil
	}
	return apperrors.NewInsufficientPermissions("unknown role")
}

func checkBusinessRules(to domain.ServiceRequestStatus, current *domain.Assignment) error {
	switch to {
	case domain.StatusOperatorAssigned:
		if current == nil {
			return apperrors.NewBusinessRuleViolation("an operator must be assigned before the request can move to OPERATOR_ASSIGNED", nil)
		}
	case domain.StatusJobInProgress:
		if current == nil {
			return apperrors.NewBusinessRuleViolation("a job cannot start without an assigned operator", nil)
		}
	}
	return nil
}

// applyAssignmentEffects keeps the current assignment in step with the
// request's status.
func (s *WorkflowService) applyAssignmentEffects(ctx context.Context, repos repository.Repositories, from, to domain.ServiceRequestStatus, current *domain.Assignment) error {
	if current == nil {
		return nil
	}
	now := s.now()
	switch {
	case to == domain.StatusJobInProgress:
		current.Status = domain.AssignmentActive
		current.AcceptedAt = &now
	case to == domain.StatusJobCompleted:
		current.Status = domain.AssignmentCompleted
		current.CompletedAt = &now
	case to == domain.StatusCancelled,
		to == domain.StatusOperatorMatching && (from == domain.StatusOperatorAssigned || from == domain.StatusEquipmentChecking):
		current.Status = domain.AssignmentCancelled
		current.CancelledAt = &now
	default:
		return nil
	}
	if err := repos.Assignments.Update(ctx, current); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

func decisionError(decision workflow.Decision, from, to domain.ServiceRequestStatus) error {
	if decision.Reason == workflow.ReasonInsufficientPermissions {
		return apperrors.NewInsufficientPermissions(decision.Message)
	}
	return apperrors.NewInvalidTransition(decision.Message, map[string]any{
		"from_status":   from,
		"to_status":     to,
		"valid_targets": workflow.ValidNextStatuses(from),
	})
}

func loadRequest(ctx context.Context, repos repository.Repositories, requestID string) (*domain.ServiceRequest, error) {
	request, err := repos.ServiceRequests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service request", map[string]any{"request_id": requestID})
		}
		return nil, fmt.Errorf("load service request: %w", err)
	}
	return request, nil
}

// currentAssignment returns nil, nil when the request has no current
// assignment.
func currentAssignment(ctx context.Context, repos repository.Repositories, requestID string) (*domain.Assignment, error) {
	current, err := repos.Assignments.GetCurrentByRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load current assignment: %w", err)
	}
	return current, nil
}

func (in ChangeStatusInput) validate() error {
	if err := validateID("request_id", in.RequestID); err != nil {
		return err
	}
	if err := validateActor(in.UserID, in.UserRole); err != nil {
		return err
	}
	if !workflow.IsKnown(in.NewStatus) {
		return apperrors.NewValidationError("unknown status", map[string]any{"new_status": in.NewStatus})
	}
	if in.ExpectedStatus != nil && !workflow.IsKnown(*in.ExpectedStatus) {
		return apperrors.NewValidationError("unknown status", map[string]any{"expected_status": *in.ExpectedStatus})
	}
	return validateNotes(in.Reason, in.Notes)
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError(field+" must be a valid id", map[string]any{"field": field})
	}
	return nil
}

func validateActor(userID string, role domain.Role) error {
	if userID == "" {
		return apperrors.NewValidationError("user id required", nil)
	}
	if !role.IsKnown() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	return nil
}

func validateNotes(reason, notes *string) error {
	if reason != nil && len(*reason) > maxNoteLength {
		return apperrors.NewValidationError("reason too long", map[string]any{"max_length": maxNoteLength})
	}
	if notes != nil && len(*notes) > maxNoteLength {
		return apperrors.NewValidationError("notes too long", map[string]any{"max_length": maxNoteLength})
	}
	return nil
}
