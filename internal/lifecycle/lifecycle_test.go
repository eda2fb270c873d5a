package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessdesk/internal/models"
)

func reqIn(status models.RequestStatus) *models.AccessRequest {
	return &models.AccessRequest{ID: 42, Status: status}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestApprove(t *testing.T) {
	now := time.Now()

	change, err := Approve(reqIn(models.RequestStatusPending), 7, "looks fine", now)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, change.ExpectedStatus)
	assert.Equal(t, models.RequestStatusApproved, change.NewStatus)
	assert.Equal(t, uint(7), change.Assignments["approved_by_id"])
	assert.Equal(t, now, change.Assignments["approved_at"])
	assert.Equal(t, "looks fine", change.Assignments["approval_comments"])

	for _, status := range []models.RequestStatus{
		models.RequestStatusApproved,
		models.RequestStatusRejected,
		models.RequestStatusFulfilled,
		models.RequestStatusCancelled,
	} {
		_, err := Approve(reqIn(status), 7, "", now)
		assertCode(t, err, models.CodeInvalidTransition)
	}
}

func TestReject(t *testing.T) {
	now := time.Now()

	change, err := Reject(reqIn(models.RequestStatusPending), 7, "insufficient justification", now)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, change.NewStatus)
	assert.Equal(t, "insufficient justification", change.Assignments["rejection_reason"])
	assert.Equal(t, uint(7), change.Assignments["rejected_by_id"])

	// Reason is mandatory, whitespace does not count.
	_, err = Reject(reqIn(models.RequestStatusPending), 7, "   ", now)
	assertCode(t, err, models.CodeValidationError)

	for _, status := range []models.RequestStatus{
		models.RequestStatusApproved,
		models.RequestStatusRejected,
		models.RequestStatusFulfilled,
		models.RequestStatusCancelled,
	} {
		_, err := Reject(reqIn(status), 7, "some reason", now)
		assertCode(t, err, models.CodeInvalidTransition)
	}
}

func TestFulfill(t *testing.T) {
	now := time.Now()

	change, err := Fulfill(reqIn(models.RequestStatusApproved), 3, "account created", now)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, change.ExpectedStatus)
	assert.Equal(t, models.RequestStatusFulfilled, change.NewStatus)
	assert.Equal(t, "account created", change.Assignments["fulfillment_notes"])

	for _, status := range []models.RequestStatus{
		models.RequestStatusPending,
		models.RequestStatusRejected,
		models.RequestStatusFulfilled,
		models.RequestStatusCancelled,
	} {
		_, err := Fulfill(reqIn(status), 3, "", now)
		assertCode(t, err, models.CodeInvalidTransition)
	}
}

func TestCancel(t *testing.T) {
	now := time.Now()

	for _, status := range []models.RequestStatus{
		models.RequestStatusPending,
		models.RequestStatusApproved,
		models.RequestStatusRejected,
	} {
		change, err := Cancel(reqIn(status), 5, "no longer needed", now)
		require.NoError(t, err)
		// The guard must target whichever live status the request held.
		assert.Equal(t, status, change.ExpectedStatus)
		assert.Equal(t, models.RequestStatusCancelled, change.NewStatus)
		assert.Equal(t, "no longer needed", change.Assignments["cancellation_reason"])
	}

	for _, status := range []models.RequestStatus{
		models.RequestStatusFulfilled,
		models.RequestStatusCancelled,
	} {
		_, err := Cancel(reqIn(status), 5, "done with it", now)
		assertCode(t, err, models.CodeInvalidTransition)
	}

	// Reason is mandatory, whitespace does not count.
	_, err := Cancel(reqIn(models.RequestStatusPending), 5, "   ", now)
	assertCode(t, err, models.CodeValidationError)
	_, err = Cancel(reqIn(models.RequestStatusApproved), 5, "", now)
	assertCode(t, err, models.CodeValidationError)
}

func TestFormatRequestNumber(t *testing.T) {
	assert.Equal(t, "REQ-2026-0001", FormatRequestNumber(2026, 1))
	assert.Equal(t, "REQ-2026-0042", FormatRequestNumber(2026, 42))
	assert.Equal(t, "REQ-2026-9999", FormatRequestNumber(2026, 9999))
	// Sequence keeps growing past four digits.
	assert.Equal(t, "REQ-2026-10000", FormatRequestNumber(2026, 10000))
}

func TestParseRequestNumber(t *testing.T) {
	year, seq, err := ParseRequestNumber("REQ-2025-0137")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, uint(137), seq)

	for _, bad := range []string{"", "REQ-2025", "FOO-2025-0001", "REQ-abcd-0001", "REQ-2025-xyz"} {
		_, _, err := ParseRequestNumber(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
