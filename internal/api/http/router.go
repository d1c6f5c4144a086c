package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kuiporro/pgf-fleet-workshop/internal/api/http/handlers"
	"github.com/kuiporro/pgf-fleet-workshop/internal/auth"
	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	WorkOrders     *handlers.WorkOrdersHandler
	Timeline       *handlers.TimelineHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	orders := app.Group("/work-orders", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	orders.Post("",
		auth.RequireRole(domain.RoleSupervisor, domain.RoleAdministrador, domain.RoleJefeTaller),
		cfg.WorkOrders.Create)
	orders.Get("", cfg.WorkOrders.List)
	orders.Get("/:id", cfg.WorkOrders.Get)
	orders.Get("/:id/timeline", cfg.Timeline.Get)

	// Edge-level legality lives in the transition table; these groups only
	// keep roles with no workshop mutations at all off the endpoints.
	mutating := orders.Group("",
		auth.RequireRole(domain.RoleMecanico, domain.RoleJefeTaller, domain.RoleSupervisor, domain.RoleAdministrador))
	mutating.Post("/:id/status", cfg.WorkOrders.Transition)
	mutating.Post("/:id/pause", cfg.WorkOrders.OpenPause)
	mutating.Post("/:id/resume", cfg.WorkOrders.ResumePause)
	mutating.Post("/:id/qa", cfg.WorkOrders.QAApprove)
	mutating.Post("/:id/priority", cfg.WorkOrders.UpdatePriority)
}
