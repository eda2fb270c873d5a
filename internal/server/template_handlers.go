// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"strings"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListTemplates handles GET /api/templates
// @Summary List access templates
// @Tags templates
// @Produce json
// @Success 200 {object} models.Page[models.Template]
// @Router /templates [get]
func (s *Server) ListTemplates(c *fiber.Ctx) error {
	filter := repository.TemplateFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		Search:     strings.TrimSpace(c.Query("search")),
		ActiveOnly: c.QueryBool("active_only", false),
	}
	filter.Page, filter.PerPage = parsePageParams(c, 20)

	if deptID := c.QueryInt("department_id", 0); deptID > 0 {
		id := uint(deptID)
		filter.DepartmentID = &id
	}

	page, err := s.templateService.ListTemplates(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(page)
}

// GetTemplate handles GET /api/templates/:id
// @Summary Get an access template
// @Tags templates
// @Produce json
// @Success 200 {object} models.Template
// @Failure 404 {object} models.ErrorResponse
// @Router /templates/{id} [get]
func (s *Server) GetTemplate(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tpl, err := s.templateService.GetTemplate(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(tpl)
}

// CreateTemplate handles POST /api/templates
// @Summary Create an access template
// @Tags templates
// @Accept json
// @Produce json
// @Success 201 {object} models.Template
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /templates [post]
func (s *Server) CreateTemplate(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input service.TemplateInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID

	tpl, err := s.templateService.CreateTemplate(c.Context(), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tpl)
}

// UpdateTemplate handles PUT /api/templates/:id
// @Summary Update an access template
// @Tags templates
// @Accept json
// @Produce json
// @Success 200 {object} models.Template
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /templates/{id} [put]
func (s *Server) UpdateTemplate(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.TemplateInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID
	input.TemplateID = id

	tpl, err2 := s.templateService.UpdateTemplate(c.Context(), input)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.JSON(tpl)
}

// DeleteTemplate handles DELETE /api/templates/:id
// @Summary Retire an access template
// @Tags templates
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /templates/{id} [delete]
func (s *Server) DeleteTemplate(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.templateService.DeleteTemplate(c.Context(), userID, id); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Template deleted"})
}
