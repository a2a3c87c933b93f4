package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/workflow"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

const (
	maxTitleLength   = 200
	maxWeeklyUnits   = 52
	maxDailyUnits    = 30
	maxMultiDayUnits = 365
)

// ServiceRequestService creates and reads service requests.
type ServiceRequestService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ServiceRequestDependencies bundles collaborators.
type ServiceRequestDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// CreateServiceRequestInput holds intake fields.
type CreateServiceRequestInput struct {
	Title             string
	Description       string
	EquipmentCategory domain.EquipmentCategory
	JobSite           string
	StartDate         time.Time
	EndDate           *time.Time
	DurationType      domain.DurationType
	DurationValue     int
	BaseRate          float64
	RateType          domain.RateType
	Transport         domain.TransportOption
	InitialStatus     *domain.ServiceRequestStatus
}

// NewServiceRequestService wires the service.
func NewServiceRequestService(deps ServiceRequestDependencies) *ServiceRequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ServiceRequestService{store: deps.Store, dispatcher: deps.Dispatcher, logger: logger, now: clock}
}

// CreateServiceRequest stores a new request owned by actor together with its
// creation history entry.
func (s *ServiceRequestService) CreateServiceRequest(ctx context.Context, actor Actor, input CreateServiceRequestInput) (*domain.ServiceRequest, error) {
	if err := validateActor(actor.ID, actor.Role); err != nil {
		return nil, err
	}
	if !workflow.RoleSatisfiesAny(actor.Role, domain.RoleUser, domain.RoleManager) {
		return nil, apperrors.NewInsufficientPermissions(fmt.Sprintf("role %s cannot create service requests", actor.Role))
	}
	status, err := s.validateCreate(input)
	if err != nil {
		return nil, err
	}
	pricing, err := EstimatePricing(PricingInput{
		DurationType:      input.DurationType,
		DurationValue:     input.DurationValue,
		BaseRate:          input.BaseRate,
		RateType:          input.RateType,
		Transport:         input.Transport,
		EquipmentCategory: input.EquipmentCategory,
	})
	if err != nil {
		return nil, err
	}

	request := &domain.ServiceRequest{
		Title:             strings.TrimSpace(input.Title),
		Description:       strings.TrimSpace(input.Description),
		UserID:            actor.ID,
		Status:            status,
		EquipmentCategory: input.EquipmentCategory,
		JobSite:           strings.TrimSpace(input.JobSite),
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		DurationType:      input.DurationType,
		DurationValue:     input.DurationValue,
		BaseRate:          input.BaseRate,
		RateType:          input.RateType,
		Transport:         input.Transport,
		TotalEstimate:     &pricing.TotalEstimate,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.ServiceRequests.Create(ctx, request); err != nil {
			return fmt.Errorf("create service request: %w", err)
		}
		if err := repos.History.Create(ctx, &domain.StatusHistoryEntry{
			ServiceRequestID: request.ID,
			ToStatus:         request.Status,
			ChangedBy:        actor.ID,
		}); err != nil {
			return fmt.Errorf("record initial status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("service request created",
		zap.String("request_id", request.ID),
		zap.String("status", string(request.Status)),
		zap.String("user_id", actor.ID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventServiceRequestCreated, request.ID,
		events.Actor{ID: actor.ID, Role: actor.Role},
		events.ServiceRequestCreatedPayload{Title: request.Title, Status: request.Status, EquipmentCategory: request.EquipmentCategory}))
	return request, nil
}

// GetServiceRequest returns the request if actor may see it: its owner, its
// current operator, or any manager.
func (s *ServiceRequestService) GetServiceRequest(ctx context.Context, requestID string, actor Actor) (*domain.ServiceRequest, error) {
	if err := validateID("request_id", requestID); err != nil {
		return nil, err
	}
	if err := validateActor(actor.ID, actor.Role); err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	request, err := loadRequest(ctx, repos, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	switch actor.Role {
	case domain.RoleUser:
		if request.UserID != actor.ID {
			return nil, apperrors.NewInsufficientPermissions("service request belongs to another user")
		}
	case domain.RoleOperator:
		current, err := currentAssignment(ctx, repos, requestID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if current == nil || current.OperatorID != actor.ID {
			return nil, apperrors.NewInsufficientPermissions("operator is not assigned to this service request")
		}
	}
	return request, nil
}

func (s *ServiceRequestService) validateCreate(in CreateServiceRequestInput) (domain.ServiceRequestStatus, error) {
	var problems []string
	title := strings.TrimSpace(in.Title)
	if title == "" {
		problems = append(problems, "title is required")
	} else if len(title) > maxTitleLength {
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if strings.TrimSpace(in.JobSite) == "" {
		problems = append(problems, "job site is required")
	}
	if !in.EquipmentCategory.IsKnown() {
		problems = append(problems, "equipment category is invalid")
	}
	if in.StartDate.IsZero() {
		problems = append(problems, "start date is required")
	} else if !in.StartDate.After(s.now()) {
		problems = append(problems, "start date must be in the future")
	}
	if in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		problems = append(problems, "end date must be after start date")
	}
	switch in.DurationType {
	case domain.DurationWeekly:
		if in.DurationValue > maxWeeklyUnits {
			problems = append(problems, "weekly bookings cannot exceed 52 weeks")
		}
	case domain.DurationMultiDay:
		if in.DurationValue > maxMultiDayUnits {
			problems = append(problems, "multi-day bookings cannot exceed 365 days")
		}
	case domain.DurationHalfDay, domain.DurationFullDay:
		if in.DurationValue > maxDailyUnits {
			problems = append(problems, "daily bookings cannot exceed 30 days")
		}
	}

	status := domain.StatusSubmitted
	if in.InitialStatus != nil {
		status = *in.InitialStatus
		if !workflow.IsValidInitialStatus(status) {
			problems = append(problems, "initial status must be DRAFT or SUBMITTED")
		}
	}
	if len(problems) > 0 {
		return "", apperrors.NewValidationError("invalid service request", map[string]any{"errors": problems})
	}
	return status, nil
}
