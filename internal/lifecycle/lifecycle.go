// Package lifecycle implements the access request state machine as pure
// functions. Each transition validates the request's current status and
// returns a Change describing the column updates to apply. Persistence is
// the repository's concern; the Change carries the expected prior status so
// the repository can apply it as a guarded update and detect races.
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"accessdesk/internal/models"
)

// Change is the column diff produced by a transition. ExpectedStatus is the
// status the request must still hold when the diff is applied; an update that
// matches zero rows means another transition won the race.
type Change struct {
	ExpectedStatus models.RequestStatus
	NewStatus      models.RequestStatus
	Assignments    map[string]interface{}
}

// Approve validates and builds the pending -> approved transition.
func Approve(r *models.AccessRequest, approverID uint, comments string, now time.Time) (Change, error) {
	if r.Status != models.RequestStatusPending {
		return Change{}, models.NewInvalidTransitionError("approve", r.Status)
	}
	return Change{
		ExpectedStatus: models.RequestStatusPending,
		NewStatus:      models.RequestStatusApproved,
		Assignments: map[string]interface{}{
			"status":            models.RequestStatusApproved,
			"approved_at":       now,
			"approved_by_id":    approverID,
			"approval_comments": comments,
		},
	}, nil
}

// Reject validates and builds the pending -> rejected transition. A rejection
// reason is mandatory so the requester always learns why.
func Reject(r *models.AccessRequest, approverID uint, reason string, now time.Time) (Change, error) {
	if r.Status != models.RequestStatusPending {
		return Change{}, models.NewInvalidTransitionError("reject", r.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return Change{}, models.NewValidationError("rejection reason is required")
	}
	return Change{
		ExpectedStatus: models.RequestStatusPending,
		NewStatus:      models.RequestStatusRejected,
		Assignments: map[string]interface{}{
			"status":           models.RequestStatusRejected,
			"rejected_at":      now,
			"rejected_by_id":   approverID,
			"rejection_reason": reason,
		},
	}, nil
}

// Fulfill validates and builds the approved -> fulfilled transition.
func Fulfill(r *models.AccessRequest, fulfillerID uint, notes string, now time.Time) (Change, error) {
	if r.Status != models.RequestStatusApproved {
		return Change{}, models.NewInvalidTransitionError("fulfill", r.Status)
	}
	return Change{
		ExpectedStatus: models.RequestStatusApproved,
		NewStatus:      models.RequestStatusFulfilled,
		Assignments: map[string]interface{}{
			"status":            models.RequestStatusFulfilled,
			"fulfilled_at":      now,
			"fulfilled_by_id":   fulfillerID,
			"fulfillment_notes": notes,
		},
	}, nil
}

// Cancel validates and builds the cancellation transition. Any request that
// has not been fulfilled can still be withdrawn; a fulfilled request has
// already been provisioned and must go through a termination request instead.
// A cancellation reason is mandatory, same as rejection.
func Cancel(r *models.AccessRequest, actorID uint, reason string, now time.Time) (Change, error) {
	if r.Status == models.RequestStatusFulfilled || r.Status == models.RequestStatusCancelled {
		return Change{}, models.NewInvalidTransitionError("cancel", r.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return Change{}, models.NewValidationError("cancellation reason is required")
	}
	return Change{
		ExpectedStatus: r.Status,
		NewStatus:      models.RequestStatusCancelled,
		Assignments: map[string]interface{}{
			"status":              models.RequestStatusCancelled,
			"cancelled_at":        now,
			"cancelled_by_id":     actorID,
			"cancellation_reason": reason,
		},
	}, nil
}

// FormatRequestNumber renders a request number as REQ-YYYY-NNNN. The sequence
// part is zero padded to four digits but grows past 9999 without truncation.
func FormatRequestNumber(year int, seq uint) string {
	return fmt.Sprintf("REQ-%d-%04d", year, seq)
}

// ParseRequestNumber extracts the year and sequence from a request number.
func ParseRequestNumber(number string) (year int, seq uint, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != "REQ" {
		return 0, 0, fmt.Errorf("malformed request number %q", number)
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed year in request number %q", number)
	}
	n, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed sequence in request number %q", number)
	}
	return year, uint(n), nil
}
