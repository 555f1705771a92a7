package leave

import (
	"fmt"
	"io"

	"go-elms/internal/shared/dateutil"

	"github.com/xuri/excelize/v2"
)

const historySheet = "History"

var historyHeaders = []string{
	"ID", "Employee", "Employee ID", "Date of request", "Start", "End",
	"Days", "Reason", "Details", "Status", "Decided by", "Rejection reason", "Decided at",
}

// WriteHistoryXLSX renders decided requests as a single sheet workbook.
func WriteHistoryXLSX(w io.Writer, reqs []LeaveRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return err
	}

	for i, h := range historyHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(historySheet, cell, h); err != nil {
			return err
		}
	}

	for i, r := range reqs {
		decidedBy := ""
		switch {
		case r.ApprovedBy != nil:
			decidedBy = *r.ApprovedBy
		case r.RejectedBy != nil:
			decidedBy = *r.RejectedBy
		}
		rejection := ""
		if r.RejectionReason != nil {
			rejection = *r.RejectionReason
		}
		decidedAt := "N/A"
		if r.DecidedAt != nil {
			decidedAt = dateutil.FormatDateTime(*r.DecidedAt)
		}

		row := []any{
			r.ID,
			r.RequesterName,
			r.RequesterID,
			dateutil.FormatDateTime(r.CreatedAt),
			dateutil.FormatDate(r.StartDate),
			dateutil.FormatDate(r.EndDate),
			r.TotalDays,
			r.Reason,
			r.Details,
			string(r.Status),
			decidedBy,
			rejection,
			decidedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("write history row %d: %w", r.ID, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}
