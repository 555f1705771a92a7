package leave_test

import (
	"bytes"
	"testing"
	"time"

	"go-elms/internal/leave"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteHistoryXLSX(t *testing.T) {
	by, reason := "mgr1", "overlap"
	at := time.Date(2025, 11, 1, 14, 5, 0, 0, time.UTC)
	reqs := []leave.LeaveRequest{
		{
			ID: 7, RequesterID: "emp-1", RequesterName: "Dana Putri",
			StartDate: day(2025, 11, 3), EndDate: day(2025, 11, 4), TotalDays: 2,
			Reason: leave.ReasonOther, Details: "moving house",
			Status: leave.StatusRejected, RejectedBy: &by, RejectionReason: &reason, DecidedAt: &at,
			CreatedAt: time.Date(2025, 10, 20, 9, 30, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, leave.WriteHistoryXLSX(&buf, reqs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 13)

	row := rows[1]
	assert.Equal(t, "7", row[0])
	assert.Equal(t, "Dana Putri", row[1])
	assert.Equal(t, "03/11/2025", row[4])
	assert.Equal(t, "REJECTED", row[9])
	assert.Equal(t, "mgr1", row[10])
	assert.Equal(t, "overlap", row[11])
}
