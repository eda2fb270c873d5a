// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"accessdesk/internal/models"
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListDepartments handles GET /api/departments
// @Summary List departments
// @Tags departments
// @Produce json
// @Success 200 {array} models.Department
// @Router /departments [get]
func (s *Server) ListDepartments(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active_only", false)

	departments, err := s.departmentService.ListDepartments(c.Context(), activeOnly)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(departments)
}

// GetDepartment handles GET /api/departments/:id
// @Summary Get a department
// @Tags departments
// @Produce json
// @Success 200 {object} models.Department
// @Failure 404 {object} models.ErrorResponse
// @Router /departments/{id} [get]
func (s *Server) GetDepartment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	dept, err := s.departmentService.GetDepartment(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(dept)
}

// CreateDepartment handles POST /api/departments
// @Summary Create a department
// @Tags departments
// @Accept json
// @Produce json
// @Success 201 {object} models.Department
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /departments [post]
func (s *Server) CreateDepartment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input service.DepartmentInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID

	dept, err := s.departmentService.CreateDepartment(c.Context(), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dept)
}

// UpdateDepartment handles PUT /api/departments/:id
// @Summary Update a department
// @Tags departments
// @Accept json
// @Produce json
// @Success 200 {object} models.Department
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /departments/{id} [put]
func (s *Server) UpdateDepartment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.DepartmentInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID
	input.DepartmentID = id

	dept, err2 := s.departmentService.UpdateDepartment(c.Context(), input)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.JSON(dept)
}

// departmentMemberResponse decorates a role assignment with live presence so
// requesters can see which approvers are reachable right now.
type departmentMemberResponse struct {
	models.DepartmentUser
	Online bool `json:"online"`
}

// ListDepartmentMembers handles GET /api/departments/:id/members
// @Summary List a department's role assignments with online presence
// @Tags departments
// @Produce json
// @Success 200 {array} departmentMemberResponse
// @Router /departments/{id}/members [get]
func (s *Server) ListDepartmentMembers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	members, err := s.departmentService.ListMembers(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	out := make([]departmentMemberResponse, 0, len(members))
	for _, m := range members {
		online := false
		if s.hub != nil {
			online = s.hub.IsOnline(m.UserID)
		}
		out = append(out, departmentMemberResponse{DepartmentUser: m, Online: online})
	}

	return c.JSON(out)
}

// AssignDepartmentRole handles POST /api/departments/:id/members
// @Summary Assign a requester or approver role
// @Tags departments
// @Accept json
// @Produce json
// @Success 201 {object} models.DepartmentUser
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /departments/{id}/members [post]
func (s *Server) AssignDepartmentRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.AssignRoleInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID
	input.DepartmentID = id

	membership, err2 := s.departmentService.AssignRole(c.Context(), input)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// RemoveDepartmentRole handles DELETE /api/departments/:id/members/:userId
// @Summary Remove a user's role in a department
// @Tags departments
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /departments/{id}/members/{userId} [delete]
func (s *Server) RemoveDepartmentRole(c *fiber.Ctx) error {
	actorID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	memberID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.departmentService.RemoveRole(c.Context(), actorID, id, memberID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Role removed"})
}

// GetMyMemberships handles GET /api/departments/memberships/me
// @Summary List the caller's department roles
// @Tags departments
// @Produce json
// @Success 200 {array} models.DepartmentUser
// @Router /departments/memberships/me [get]
func (s *Server) GetMyMemberships(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	memberships, err := s.departmentService.MyMemberships(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(memberships)
}
