package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/equiply/workflow-service/internal/api/http/handlers"
	"github.com/equiply/workflow-service/internal/auth"
	"github.com/equiply/workflow-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Auth            *handlers.AuthHandler
	Workflow        *handlers.WorkflowHandler
	ServiceRequests *handlers.ServiceRequestsHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/workflow/transitions", cfg.Workflow.Transitions)

	protected.Post("/service-requests", auth.RequireRole(domain.RoleUser, domain.RoleManager), cfg.ServiceRequests.Create)

	requests := protected.Group("/service-requests")
	requests.Get("/:id", cfg.ServiceRequests.Get)
	requests.Post("/:id/status", cfg.ServiceRequests.ChangeStatus)
	requests.Post("/:id/assign", auth.RequireRole(domain.RoleManager), cfg.ServiceRequests.Assign)
	requests.Get("/:id/assignment", cfg.ServiceRequests.CurrentAssignment)
	requests.Post("/:id/assignments/:assignmentId/cancel", auth.RequireRole(domain.RoleManager), cfg.ServiceRequests.CancelAssignment)
	requests.Get("/:id/history", cfg.ServiceRequests.History)
	requests.Get("/:id/transitions", cfg.ServiceRequests.Transitions)
}
