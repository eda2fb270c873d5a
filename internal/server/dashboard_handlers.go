// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"github.com/gofiber/fiber/v2"
)

// DashboardOverview handles GET /api/dashboard/overview
// @Summary Request statistics
// @Description Global statistics for admins, own-request statistics otherwise
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Router /dashboard/overview [get]
func (s *Server) DashboardOverview(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	stats, err := s.dashboardService.Overview(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(stats)
}

// RequesterDashboard handles GET /api/dashboard/requester
// @Summary Requester dashboard
// @Description Own request counts plus the departments the user may submit for
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.RequesterDashboard
// @Router /dashboard/requester [get]
func (s *Server) RequesterDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	view, err := s.dashboardService.RequesterView(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(view)
}

// ApproverDashboard handles GET /api/dashboard/approver
// @Summary Approver dashboard
// @Description Approval workload across the user's approver departments
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.ApproverDashboard
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/approver [get]
func (s *Server) ApproverDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	view, err := s.dashboardService.ApproverView(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(view)
}

// HRDashboard handles GET /api/dashboard/hr
// @Summary HR dashboard
// @Description Reactivation and termination request statistics; admin only
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.HRDashboard
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/hr [get]
func (s *Server) HRDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	view, err := s.dashboardService.HRView(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(view)
}

// ICTDashboard handles GET /api/dashboard/ict
// @Summary ICT dashboard
// @Description Fulfillment throughput and per-department activity; admin only
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.ICTDashboard
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/ict [get]
func (s *Server) ICTDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	view, err := s.dashboardService.ICTView(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(view)
}

// DepartmentDashboard handles GET /api/dashboard/departments/:id
// @Summary Department request statistics
// @Description Statistics scoped to one department; requires an approver role there
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/departments/{id} [get]
func (s *Server) DepartmentDashboard(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stats, err := s.dashboardService.DepartmentOverview(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(stats)
}
