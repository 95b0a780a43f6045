package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classtrack/attendance-api/internal/models"
	appErrors "github.com/classtrack/attendance-api/pkg/errors"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceJoin = `FROM attendance a
JOIN students s ON s.id = a.student_id`

func attendanceWhere(filter models.AttendanceFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID > 0 {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	return strings.Join(where, " AND "), args
}

// List returns attendance rows joined with student roster fields.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	base := attendanceJoin
	whereClause, args := attendanceWhere(filter)

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "a.date",
		"status":     "a.status",
		"student_id": "a.student_id",
		"created_at": "a.created_at",
	}
	if sortBy == "" {
		sortBy = "date"
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "a.date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.date, a.status, a.created_at, a.updated_at,
        s.name AS student_name, s.class AS student_class
        %s WHERE %s
        ORDER BY %s %s
        LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every attendance row matching the filter, newest first.
// Exports use it so the result is not bounded by a page window.
func (r *AttendanceRepository) ListAll(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	whereClause, args := attendanceWhere(filter)
	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.date, a.status, a.created_at, a.updated_at,
        s.name AS student_name, s.class AS student_class
        %s WHERE %s
        ORDER BY a.date DESC`, attendanceJoin, whereClause)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list all attendance: %w", err)
	}
	return rows, nil
}

// Find fetches the record for a (student, date) pair.
func (r *AttendanceRepository) Find(ctx context.Context, studentID int64, date models.DateOnly) (*models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, status, created_at, updated_at
FROM attendance WHERE student_id = $1 AND date = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, date); err != nil {
		return nil, err
	}
	return &record, nil
}

// Exists reports whether a mark already exists for the (student, date) pair.
func (r *AttendanceRepository) Exists(ctx context.Context, studentID int64, date models.DateOnly) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM attendance WHERE student_id = $1 AND date = $2 LIMIT 1", studentID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return true, nil
}

// Create inserts a new attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
        VALUES (:id, :student_id, :date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.Clone(appErrors.ErrConflict, "attendance already marked for this student and date")
		}
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// UpdateStatus changes the status of an existing record.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, studentID int64, date models.DateOnly, status models.AttendanceStatus) error {
	const query = `UPDATE attendance SET status = $3, updated_at = $4 WHERE student_id = $1 AND date = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, date, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// Delete removes the record for a (student, date) pair.
func (r *AttendanceRepository) Delete(ctx context.Context, studentID int64, date models.DateOnly) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM attendance WHERE student_id = $1 AND date = $2", studentID, date); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// HistoryByStudent returns a student's attendance entries newest first.
func (r *AttendanceRepository) HistoryByStudent(ctx context.Context, studentID int64, from, to *models.DateOnly) ([]models.AttendanceHistoryRow, error) {
	where := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *to)
	}
	query := fmt.Sprintf(`SELECT date, status FROM attendance WHERE %s ORDER BY date DESC`, strings.Join(where, " AND "))
	var rows []models.AttendanceHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance history: %w", err)
	}
	return rows, nil
}

// SummaryByStudent aggregates present/absent counts for a student.
func (r *AttendanceRepository) SummaryByStudent(ctx context.Context, studentID int64) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance WHERE student_id = $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("student attendance summary: %w", err)
	}
	summary := &models.AttendanceSummary{StudentID: studentID}
	for _, row := range rows {
		switch models.AttendanceStatus(row.Status) {
		case models.AttendanceStatusPresent:
			summary.Present += row.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += row.Count
		}
		summary.Total += row.Count
	}
	if summary.Total > 0 {
		summary.Percent = float64(summary.Present) / float64(summary.Total) * 100
	}
	return summary, nil
}
