package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/equiply/workflow-service/internal/api/dto"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/service"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

// WorkflowHandler exposes the transition graph for the caller's role.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(wf *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: wf}
}

// Transitions GET /workflow/transitions?currentStatus=.
func (h *WorkflowHandler) Transitions(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	raw := c.Query("currentStatus")
	if raw == "" {
		return apperrors.NewValidationError("currentStatus query parameter required", nil)
	}

	current := domain.ServiceRequestStatus(raw)
	options, err := h.workflow.TransitionsForRole(current, actor.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionsResponse{CurrentStatus: current, Transitions: options}})
}
