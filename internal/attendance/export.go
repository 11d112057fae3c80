package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader is the fixed column order of attendance exports.
var CSVHeader = []string{"User ID", "User Name", "Session ID", "Marked On", "Semester", "Slot", "Subject", "Attendance Type"}

const markedOnLayout = "2006-01-02 15:04:05"

// Export is a non-empty filtered report ready to be written out.
type Export struct {
	Filename string
	Rows     []ReportRow
}

// exportFilename names the file after the first row's session.
func exportFilename(first ReportRow) string {
	return fmt.Sprintf("%d-%s-%s-class-%s.csv", first.SessionID, first.Slot, first.Semester, first.Subject)
}

// WriteCSV writes the header followed by one line per row.
func (e Export) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range e.Rows {
		rec := []string{
			strconv.FormatInt(r.UserID, 10),
			r.UserName,
			strconv.FormatInt(r.SessionID, 10),
			r.MarkedOn.UTC().Format(markedOnLayout),
			r.Semester,
			r.Slot,
			r.Subject,
			r.AttendanceType,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
