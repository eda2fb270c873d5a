// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"accessdesk/internal/models"
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUser(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

// CreateUser handles POST /api/users (admin only)
// @Summary Provision a user account
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input service.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.ActorID = userID

	user, err := s.userService.CreateUser(c.Context(), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// ListUsers handles GET /api/users (admin only)
// @Summary List user accounts
// @Tags users
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 50)

	users, err := s.userService.ListUsers(c.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(users)
}

// SetUserActive returns a handler for POST /api/users/:id/activate and
// /api/users/:id/deactivate (admin only).
func (s *Server) SetUserActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID := c.Locals("userID").(uint)
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}

		user, err := s.userService.SetActive(c.Context(), actorID, id, active)
		if err != nil {
			return respondServiceError(c, err)
		}

		return c.JSON(user)
	}
}
