package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/workflow"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

const assignmentReason = "operator assignment"

// AssignmentService handles operator assignment. Status changes it causes go
// through the workflow service's transactional step.
type AssignmentService struct {
	store      repository.Store
	workflow   *WorkflowService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Workflow   *WorkflowService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AssignOperatorInput describes an operator assignment.
type AssignOperatorInput struct {
	RequestID      string
	OperatorID     string
	UserID         string
	UserRole       domain.Role
	Rate           *float64
	EstimatedHours *float64
}

// CancelAssignmentInput describes the cancellation of the current assignment.
type CancelAssignmentInput struct {
	RequestID    string
	AssignmentID string
	UserID       string
	UserRole     domain.Role
	Reason       *string
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		store:      deps.Store,
		workflow:   deps.Workflow,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// AssignOperator creates a PENDING assignment and moves the request to
// OPERATOR_ASSIGNED. Either every write lands or none does.
func (s *AssignmentService) AssignOperator(ctx context.Context, input AssignOperatorInput) (*domain.Assignment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	actor := Actor{ID: input.UserID, Role: input.UserRole}

	var (
		created *domain.Assignment
		request *domain.ServiceRequest
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		request, err = loadRequest(ctx, repos, input.RequestID)
		if err != nil {
			return err
		}
		if err := requireManagement(actor, "assign operators"); err != nil {
			return err
		}
		if err := checkOperator(ctx, repos, input.OperatorID); err != nil {
			return err
		}

		reason := assignmentReason
		for _, next := range assignmentPath(request.Status) {
			request, err = s.workflow.transition(ctx, repos, request, actor, transitionStep{to: next, reason: &reason})
			if err != nil {
				return err
			}
		}
		if err := cancelCurrent(ctx, repos, s.workflow, request.ID); err != nil {
			return err
		}

		created = &domain.Assignment{
			ServiceRequestID: request.ID,
			OperatorID:       input.OperatorID,
			ManagerID:        actor.ID,
			Status:           domain.AssignmentPending,
			Rate:             input.Rate,
			EstimatedHours:   input.EstimatedHours,
		}
		if err := repos.Assignments.Create(ctx, created); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("service request was assigned concurrently; reload and retry", map[string]any{
					"service_request_id": request.ID,
				})
			}
			return fmt.Errorf("create assignment: %w", err)
		}

		request, err = s.workflow.transition(ctx, repos, request, actor, transitionStep{
			to:     domain.StatusOperatorAssigned,
			reason: &reason,
		})
		if err != nil {
			return err
		}

		if actor.Role == domain.RoleManager && request.AssignedManagerID == nil {
			if err := repos.ServiceRequests.SetAssignedManager(ctx, request.ID, actor.ID); err != nil {
				return fmt.Errorf("set assigned manager: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("operator assigned",
		zap.String("request_id", created.ServiceRequestID),
		zap.String("assignment_id", created.ID),
		zap.String("operator_id", created.OperatorID),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventOperatorAssigned, created.ServiceRequestID,
		events.Actor{ID: actor.ID, Role: actor.Role},
		events.OperatorAssignedPayload{AssignmentID: created.ID, OperatorID: created.OperatorID, ManagerID: created.ManagerID}))
	return created, nil
}

// CancelAssignment cancels the request's current assignment and returns the
// request to OPERATOR_MATCHING.
func (s *AssignmentService) CancelAssignment(ctx context.Context, input CancelAssignmentInput) (*domain.Assignment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	actor := Actor{ID: input.UserID, Role: input.UserRole}

	var cancelled *domain.Assignment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		request, err := loadRequest(ctx, repos, input.RequestID)
		if err != nil {
			return err
		}
		if err := requireManagement(actor, "cancel assignments"); err != nil {
			return err
		}
		assignment, err := repos.Assignments.GetByID(ctx, input.AssignmentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("assignment", map[string]any{"assignment_id": input.AssignmentID})
			}
			return fmt.Errorf("load assignment: %w", err)
		}
		if assignment.ServiceRequestID != request.ID {
			return apperrors.NewNotFound("assignment", map[string]any{"assignment_id": input.AssignmentID})
		}
		if !assignment.IsCurrent() {
			return apperrors.NewBusinessRuleViolation("assignment is no longer current", map[string]any{
				"assignment_status": assignment.Status,
			})
		}
		if request.Status != domain.StatusOperatorAssigned && request.Status != domain.StatusEquipmentChecking {
			return apperrors.NewBusinessRuleViolation("assignment can only be cancelled before equipment is confirmed; cancel the request instead", map[string]any{
				"current_status": request.Status,
			})
		}

		if _, err := s.workflow.transition(ctx, repos, request, actor, transitionStep{
			to:     domain.StatusOperatorMatching,
			reason: input.Reason,
		}); err != nil {
			return err
		}
		cancelled, err = repos.Assignments.GetByID(ctx, assignment.ID)
		if err != nil {
			return fmt.Errorf("reload assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("assignment cancelled",
		zap.String("request_id", cancelled.ServiceRequestID),
		zap.String("assignment_id", cancelled.ID),
		zap.String("actor_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventAssignmentCancelled, cancelled.ServiceRequestID,
		events.Actor{ID: actor.ID, Role: actor.Role},
		events.AssignmentCancelledPayload{AssignmentID: cancelled.ID, OperatorID: cancelled.OperatorID}))
	return cancelled, nil
}

// CurrentAssignment returns the request's PENDING or ACTIVE assignment.
func (s *AssignmentService) CurrentAssignment(ctx context.Context, requestID string) (*domain.Assignment, error) {
	if err := validateID("request_id", requestID); err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if _, err := loadRequest(ctx, repos, requestID); err != nil {
		return nil, apperrors.MapError(err)
	}
	current, err := currentAssignment(ctx, repos, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if current == nil {
		return nil, apperrors.NewNotFound("assignment", map[string]any{"request_id": requestID})
	}
	return current, nil
}

// assignmentPath lists the statuses a request passes through before the
// final move to OPERATOR_ASSIGNED.
func assignmentPath(current domain.ServiceRequestStatus) []domain.ServiceRequestStatus {
	switch current {
	case domain.StatusApproved, domain.StatusOperatorAssigned, domain.StatusEquipmentChecking:
		return []domain.ServiceRequestStatus{domain.StatusOperatorMatching}
	}
	return nil
}

// cancelCurrent cancels a current assignment left on a request that is
// about to receive a new one.
func cancelCurrent(ctx context.Context, repos repository.Repositories, wf *WorkflowService, requestID string) error {
	current, err := currentAssignment(ctx, repos, requestID)
	if err != nil || current == nil {
		return err
	}
	now := wf.now()
	current.Status = domain.AssignmentCancelled
	current.CancelledAt = &now
	if err := repos.Assignments.Update(ctx, current); err != nil {
		return fmt.Errorf("cancel previous assignment: %w", err)
	}
	return nil
}

func requireManagement(actor Actor, capability string) error {
	if workflow.RoleSatisfies(actor.Role, domain.RoleManager) {
		return nil
	}
	return apperrors.NewInsufficientPermissions(fmt.Sprintf("role %s cannot %s; MANAGER or ADMIN required", actor.Role, capability))
}

func checkOperator(ctx context.Context, repos repository.Repositories, operatorID string) error {
	operator, err := repos.Users.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidRole("assignee is not an active operator")
		}
		return fmt.Errorf("load operator: %w", err)
	}
	if !operator.Active || !workflow.RoleSatisfies(operator.Role, domain.RoleOperator) {
		return apperrors.NewInvalidRole("assignee is not an active operator")
	}
	return nil
}

func (in AssignOperatorInput) validate() error {
	if err := validateID("request_id", in.RequestID); err != nil {
		return err
	}
	if err := validateID("operator_id", in.OperatorID); err != nil {
		return err
	}
	if err := validateActor(in.UserID, in.UserRole); err != nil {
		return err
	}
	if in.Rate != nil && *in.Rate < 0 {
		return apperrors.NewValidationError("rate must not be negative", map[string]any{"field": "rate"})
	}
	if in.EstimatedHours != nil && *in.EstimatedHours < 0 {
		return apperrors.NewValidationError("estimated hours must not be negative", map[string]any{"field": "estimated_hours"})
	}
	return nil
}

func (in CancelAssignmentInput) validate() error {
	if err := validateID("request_id", in.RequestID); err != nil {
		return err
	}
	if err := validateID("assignment_id", in.AssignmentID); err != nil {
		return err
	}
	if err := validateActor(in.UserID, in.UserRole); err != nil {
		return err
	}
	return validateNotes(in.Reason, nil)
}
