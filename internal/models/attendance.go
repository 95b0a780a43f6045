package models

import "time"

// AttendanceStatus enumerates the recordable attendance states.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid reports whether the status is one of the known values.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord represents one student's attendance mark for a single day.
// At most one record exists per (student_id, date).
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID int64            `db:"student_id" json:"student_id"`
	Date      DateOnly         `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail is an attendance record joined with its student's roster
// fields, as rendered in the admin table.
type AttendanceDetail struct {
	AttendanceRecord
	StudentName  string `db:"student_name" json:"name"`
	StudentClass string `db:"student_class" json:"class"`
}

// AttendanceFilter encapsulates the listing predicates.
type AttendanceFilter struct {
	StudentID int64
	Status    *AttendanceStatus
	DateFrom  *DateOnly
	DateTo    *DateOnly
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AttendanceHistoryRow is one entry of a student's attendance history.
type AttendanceHistoryRow struct {
	Date   DateOnly         `db:"date" json:"date"`
	Status AttendanceStatus `db:"status" json:"status"`
}

// AttendanceSummary aggregates a student's marks.
type AttendanceSummary struct {
	StudentID int64   `json:"student_id"`
	Present   int     `json:"present"`
	Absent    int     `json:"absent"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}
