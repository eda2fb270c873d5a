// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"strings"
	"time"

	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateRequest handles POST /api/requests
// @Summary Submit an access request
// @Description Create a new access request from a department template
// @Tags requests
// @Accept json
// @Produce json
// @Param request body service.CreateRequestInput true "Request fields"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /requests [post]
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input service.CreateRequestInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.RequesterID = userID

	req, err := s.requestService.CreateRequest(c.Context(), input)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// ListRequests handles GET /api/requests
// @Summary List access requests
// @Description List requests visible to the caller, with status/type/search filters
// @Tags requests
// @Produce json
// @Success 200 {object} models.Page[models.AccessRequest]
// @Router /requests [get]
func (s *Server) ListRequests(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	filter, err := s.parseRequestFilter(c)
	if err != nil {
		return nil
	}

	page, err2 := s.requestService.ListRequests(c.Context(), userID, filter)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.JSON(page)
}

// parseRequestFilter builds a repository filter from query parameters.
// On an invalid parameter it writes a 400 response and returns errResponseWritten.
func (s *Server) parseRequestFilter(c *fiber.Ctx) (repository.RequestFilter, error) {
	filter := repository.RequestFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PerPage = parsePageParams(c, 20)

	if status := c.Query("status"); status != "" {
		rs := models.RequestStatus(status)
		if !models.ValidRequestStatus(rs) {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid status filter"))
			return filter, errResponseWritten
		}
		filter.Status = rs
	}
	if rt := c.Query("type"); rt != "" {
		reqType := models.RequestType(rt)
		if !models.ValidRequestType(reqType) {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid type filter"))
			return filter, errResponseWritten
		}
		filter.RequestType = reqType
	}
	if deptID := c.QueryInt("department_id", 0); deptID > 0 {
		id := uint(deptID)
		filter.DepartmentID = &id
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid from date, expected YYYY-MM-DD"))
			return filter, errResponseWritten
		}
		filter.FromDate = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid to date, expected YYYY-MM-DD"))
			return filter, errResponseWritten
		}
		// Make the upper bound inclusive of the named day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &end
	}

	return filter, nil
}

// GetRequest handles GET /api/requests/:id
// @Summary Get an access request
// @Tags requests
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/{id} [get]
func (s *Server) GetRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	req, err := s.requestService.GetRequest(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// GetRequestByNumber handles GET /api/requests/number/:number
// @Summary Get an access request by its request number
// @Tags requests
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 404 {object} models.ErrorResponse
// @Router /requests/number/{number} [get]
func (s *Server) GetRequestByNumber(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	number := strings.ToUpper(strings.TrimSpace(c.Params("number")))
	if number == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Request number is required"))
	}

	req, err := s.requestService.GetRequestByNumber(c.Context(), userID, number)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// UpdateRequest handles PUT /api/requests/:id
// @Summary Edit a pending access request
// @Tags requests
// @Accept json
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id} [put]
func (s *Server) UpdateRequest(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.UpdateRequestInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	input.RequestID = id
	input.ActorID = userID

	req, err2 := s.requestService.UpdateRequest(c.Context(), input)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.JSON(req)
}

// transitionHandler wraps the four lifecycle endpoints, which differ only in
// the service method they call.
func (s *Server) transitionHandler(
	c *fiber.Ctx,
	apply func(ctx *fiber.Ctx, input service.TransitionInput) (*models.AccessRequest, error),
) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.TransitionInput
	// An empty body is fine; only reject bodies that fail to parse.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}
	input.RequestID = id
	input.ActorID = userID

	req, err2 := apply(c, input)
	if err2 != nil {
		return respondServiceError(c, err2)
	}

	return c.JSON(req)
}

// ApproveRequest handles POST /api/requests/:id/approve
// @Summary Approve a pending request
// @Tags requests
// @Accept json
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/approve [post]
func (s *Server) ApproveRequest(c *fiber.Ctx) error {
	return s.transitionHandler(c, func(ctx *fiber.Ctx, input service.TransitionInput) (*models.AccessRequest, error) {
		return s.requestService.Approve(ctx.Context(), input)
	})
}

// RejectRequest handles POST /api/requests/:id/reject
// @Summary Reject a pending request
// @Description Reject a pending request; a reason note is mandatory
// @Tags requests
// @Accept json
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/reject [post]
func (s *Server) RejectRequest(c *fiber.Ctx) error {
	return s.transitionHandler(c, func(ctx *fiber.Ctx, input service.TransitionInput) (*models.AccessRequest, error) {
		return s.requestService.Reject(ctx.Context(), input)
	})
}

// FulfillRequest handles POST /api/requests/:id/fulfill
// @Summary Mark an approved request fulfilled
// @Tags requests
// @Accept json
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/fulfill [post]
func (s *Server) FulfillRequest(c *fiber.Ctx) error {
	return s.transitionHandler(c, func(ctx *fiber.Ctx, input service.TransitionInput) (*models.AccessRequest, error) {
		return s.requestService.Fulfill(ctx.Context(), input)
	})
}

// CancelRequest handles POST /api/requests/:id/cancel
// @Summary Cancel a pending or approved request
// @Tags requests
// @Accept json
// @Produce json
// @Success 200 {object} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /requests/{id}/cancel [post]
func (s *Server) CancelRequest(c *fiber.Ctx) error {
	return s.transitionHandler(c, func(ctx *fiber.Ctx, input service.TransitionInput) (*models.AccessRequest, error) {
		return s.requestService.Cancel(ctx.Context(), input)
	})
}

// GetRequestHistory handles GET /api/requests/:id/history
// @Summary List a request's audit trail
// @Tags requests
// @Produce json
// @Success 200 {array} models.RequestApproval
// @Failure 403 {object} models.ErrorResponse
// @Router /requests/{id}/history [get]
func (s *Server) GetRequestHistory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	history, err := s.requestService.RequestHistory(c.Context(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(history)
}

// PendingApprovals handles GET /api/requests/pending-approvals
// @Summary List pending requests awaiting the caller's approval
// @Tags requests
// @Produce json
// @Success 200 {object} models.Page[models.AccessRequest]
// @Router /requests/pending-approvals [get]
func (s *Server) PendingApprovals(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	pageNum, perPage := parsePageParams(c, 20)

	page, err := s.requestService.PendingApprovals(c.Context(), userID, pageNum, perPage)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(page)
}

// FulfillmentQueue handles GET /api/requests/fulfillment-queue
// @Summary List approved requests awaiting fulfillment
// @Tags requests
// @Produce json
// @Success 200 {object} models.Page[models.AccessRequest]
// @Failure 403 {object} models.ErrorResponse
// @Router /requests/fulfillment-queue [get]
func (s *Server) FulfillmentQueue(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	pageNum, perPage := parsePageParams(c, 20)

	page, err := s.requestService.FulfillmentQueue(c.Context(), userID, pageNum, perPage)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(page)
}
