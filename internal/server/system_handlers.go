// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"strings"

	"accessdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListSystems handles GET /api/systems
// @Summary List target systems
// @Tags systems
// @Produce json
// @Success 200 {array} models.System
// @Router /systems [get]
func (s *Server) ListSystems(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", false)

	systems, err := s.systemRepo.List(c.Context(), activeOnly)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(systems)
}

// GetSystem handles GET /api/systems/:id
// @Summary Get a target system
// @Tags systems
// @Produce json
// @Success 200 {object} models.System
// @Failure 404 {object} models.ErrorResponse
// @Router /systems/{id} [get]
func (s *Server) GetSystem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	system, err := s.systemRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(system)
}

// CreateSystem handles POST /api/systems (admin only)
// @Summary Register a target system
// @Tags systems
// @Accept json
// @Produce json
// @Success 201 {object} models.System
// @Failure 400 {object} models.ErrorResponse
// @Router /systems [post]
func (s *Server) CreateSystem(c *fiber.Ctx) error {
	var req struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Code and name are required"))
	}

	existing, err := s.systemRepo.GetByCode(c.Context(), req.Code)
	if err != nil {
		return respondServiceError(c, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("System code already exists"))
	}

	system := &models.System{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.systemRepo.Create(c.Context(), system); err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(system)
}

// UpdateSystem handles PUT /api/systems/:id (admin only)
// @Summary Update a target system
// @Tags systems
// @Accept json
// @Produce json
// @Success 200 {object} models.System
// @Failure 404 {object} models.ErrorResponse
// @Router /systems/{id} [put]
func (s *Server) UpdateSystem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	system, err2 := s.systemRepo.GetByID(c.Context(), id)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Name must not be empty"))
		}
		system.Name = name
	}
	if req.Description != nil {
		system.Description = *req.Description
	}
	if req.IsActive != nil {
		system.IsActive = *req.IsActive
	}

	if err := s.systemRepo.Update(c.Context(), system); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(system)
}
