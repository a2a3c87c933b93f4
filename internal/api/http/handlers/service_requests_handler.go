package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/equiply/workflow-service/internal/api/dto"
	"github.com/equiply/workflow-service/internal/auth"
	"github.com/equiply/workflow-service/internal/service"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

// ServiceRequestsHandler serves the service-request resource and its
// workflow sub-resources.
type ServiceRequestsHandler struct {
	requests    *service.ServiceRequestService
	workflow    *service.WorkflowService
	assignments *service.AssignmentService
}

// NewServiceRequestsHandler constructs handler.
func NewServiceRequestsHandler(requests *service.ServiceRequestService, wf *service.WorkflowService, assignments *service.AssignmentService) *ServiceRequestsHandler {
	return &ServiceRequestsHandler{requests: requests, workflow: wf, assignments: assignments}
}

// Create POST /service-requests.
func (h *ServiceRequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	request, err := h.requests.CreateServiceRequest(c.UserContext(), actor, service.CreateServiceRequestInput{
		Title:             req.Title,
		Description:       req.Description,
		EquipmentCategory: req.EquipmentCategory,
		JobSite:           req.JobSite,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		DurationType:      req.DurationType,
		DurationValue:     req.DurationValue,
		BaseRate:          req.BaseRate,
		RateType:          req.RateType,
		Transport:         req.Transport,
		InitialStatus:     req.Status,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewServiceRequestResponse(request)})
}

// Get GET /service-requests/:id.
func (h *ServiceRequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	request, err := h.requests.GetServiceRequest(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceRequestResponse(request)})
}

// ChangeStatus POST /service-requests/:id/status.
func (h *ServiceRequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.NewStatus == "" {
		return apperrors.NewValidationError("newStatus required", map[string]any{"field": "newStatus"})
	}

	request, err := h.workflow.ChangeStatus(c.UserContext(), service.ChangeStatusInput{
		RequestID:      c.Params("id"),
		NewStatus:      req.NewStatus,
		UserID:         actor.ID,
		UserRole:       actor.Role,
		ExpectedStatus: req.ExpectedStatus,
		Reason:         req.Reason,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceRequestResponse(request)})
}

// Assign POST /service-requests/:id/assign.
func (h *ServiceRequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	assignment, err := h.assignments.AssignOperator(c.UserContext(), service.AssignOperatorInput{
		RequestID:      c.Params("id"),
		OperatorID:     req.OperatorID,
		UserID:         actor.ID,
		UserRole:       actor.Role,
		Rate:           req.Rate,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// CurrentAssignment GET /service-requests/:id/assignment.
func (h *ServiceRequestsHandler) CurrentAssignment(c *fiber.Ctx) error {
	if err := h.authorizeRead(c); err != nil {
		return err
	}
	assignment, err := h.assignments.CurrentAssignment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// CancelAssignment POST /service-requests/:id/assignments/:assignmentId/cancel.
func (h *ServiceRequestsHandler) CancelAssignment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CancelAssignmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	assignment, err := h.assignments.CancelAssignment(c.UserContext(), service.CancelAssignmentInput{
		RequestID:    c.Params("id"),
		AssignmentID: c.Params("assignmentId"),
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Reason:       req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentResponse(assignment)})
}

// History GET /service-requests/:id/history.
func (h *ServiceRequestsHandler) History(c *fiber.Ctx) error {
	if err := h.authorizeRead(c); err != nil {
		return err
	}
	entries, err := h.workflow.GetStatusHistory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusHistoryResponse(entries)})
}

// Transitions GET /service-requests/:id/transitions.
func (h *ServiceRequestsHandler) Transitions(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	request, err := h.requests.GetServiceRequest(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	options, err := h.workflow.AvailableTransitions(c.UserContext(), request.ID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionsResponse{CurrentStatus: request.Status, Transitions: options}})
}

// authorizeRead applies the request read rules to sub-resources.
func (h *ServiceRequestsHandler) authorizeRead(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	_, err = h.requests.GetServiceRequest(c.UserContext(), c.Params("id"), actor)
	return err
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{ID: principal.ID(), Role: principal.Role()}, nil
}
