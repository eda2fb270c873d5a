package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingTimeDays(t *testing.T) {
	submitted := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	t.Run("absent until fulfilled", func(t *testing.T) {
		req := &AccessRequest{Status: RequestStatusApproved, SubmittedAt: submitted}
		assert.Nil(t, req.ProcessingTimeDays())
	})

	t.Run("whole days between submission and fulfillment", func(t *testing.T) {
		cases := []struct {
			fulfilled time.Time
			want      int
		}{
			{submitted.Add(2 * time.Hour), 0},
			{submitted.AddDate(0, 0, 1), 1},
			{submitted.AddDate(0, 0, 3).Add(5 * time.Hour), 3},
			{submitted.AddDate(0, 0, 14), 14},
		}
		for _, tc := range cases {
			fulfilled := tc.fulfilled
			req := &AccessRequest{
				Status:      RequestStatusFulfilled,
				SubmittedAt: submitted,
				FulfilledAt: &fulfilled,
			}
			got := req.ProcessingTimeDays()
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got, "fulfilled at %s", fulfilled)
		}
	})

	t.Run("clock skew never yields a negative value", func(t *testing.T) {
		fulfilled := submitted.Add(-time.Hour)
		req := &AccessRequest{
			Status:      RequestStatusFulfilled,
			SubmittedAt: submitted,
			FulfilledAt: &fulfilled,
		}
		got := req.ProcessingTimeDays()
		require.NotNil(t, got)
		assert.Equal(t, 0, *got)
	})
}

func TestFullName(t *testing.T) {
	req := &AccessRequest{FirstName: "Amina", LastName: "Mwangi"}
	assert.Equal(t, "Amina Mwangi", req.FullName())

	req = &AccessRequest{FirstName: "Amina"}
	assert.Equal(t, "Amina", req.FullName())
}
