package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classtrack/attendance-api/internal/models"
	appErrors "github.com/classtrack/attendance-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	Find(ctx context.Context, studentID int64, date models.DateOnly) (*models.AttendanceRecord, error)
	Exists(ctx context.Context, studentID int64, date models.DateOnly) (bool, error)
	Create(ctx context.Context, record *models.AttendanceRecord) error
	UpdateStatus(ctx context.Context, studentID int64, date models.DateOnly, status models.AttendanceStatus) error
	Delete(ctx context.Context, studentID int64, date models.DateOnly) error
	HistoryByStudent(ctx context.Context, studentID int64, from, to *models.DateOnly) ([]models.AttendanceHistoryRow, error)
	SummaryByStudent(ctx context.Context, studentID int64) (*models.AttendanceSummary, error)
}

type studentChecker interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// MarkAttendanceRequest holds payload for recording a daily mark.
type MarkAttendanceRequest struct {
	StudentID int64                   `json:"student_id" validate:"required,gt=0"`
	Date      models.DateOnly         `json:"date" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// UpdateAttendanceRequest updates the status of an existing mark.
type UpdateAttendanceRequest struct {
	Status models.AttendanceStatus `json:"status" validate:"required"`
}

// AttendanceService handles attendance use-cases.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentChecker
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students studentChecker, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns joined attendance rows and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	start := time.Now()
	rows, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("attendance_list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rows, pagination, nil
}

// Mark records a student's attendance for a date. Exactly one mark may exist
// per (student, date).
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be either Present or Absent")
	}
	exists, err := s.students.ExistsByID(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	marked, err := s.repo.Exists(ctx, req.StudentID, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing mark")
	}
	if marked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already marked for this student and date")
	}
	record := &models.AttendanceRecord{
		StudentID: req.StudentID,
		Date:      req.Date,
		Status:    req.Status,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// Concurrent marks can pass the Exists check and trip the primary
		// key instead. The repository surfaces that as a conflict.
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.invalidateSummary(ctx, req.StudentID)
	return record, nil
}

// Get fetches the mark for a (student, date) pair.
func (s *AttendanceService) Get(ctx context.Context, studentID int64, date models.DateOnly) (*models.AttendanceRecord, error) {
	record, err := s.repo.Find(ctx, studentID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// UpdateStatus changes an existing mark's status.
func (s *AttendanceService) UpdateStatus(ctx context.Context, studentID int64, date models.DateOnly, req UpdateAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be either Present or Absent")
	}
	record, err := s.repo.Find(ctx, studentID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if err := s.repo.UpdateStatus(ctx, studentID, date, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	record.Status = req.Status
	s.invalidateSummary(ctx, studentID)
	return record, nil
}

// Delete removes the mark for a (student, date) pair.
func (s *AttendanceService) Delete(ctx context.Context, studentID int64, date models.DateOnly) error {
	if _, err := s.repo.Find(ctx, studentID, date); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if err := s.repo.Delete(ctx, studentID, date); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	s.invalidateSummary(ctx, studentID)
	return nil
}

// History returns a student's attendance entries newest first.
func (s *AttendanceService) History(ctx context.Context, studentID int64, from, to *models.DateOnly) ([]models.AttendanceHistoryRow, error) {
	exists, err := s.students.ExistsByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	rows, err := s.repo.HistoryByStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return rows, nil
}

// Summary aggregates a student's marks, served cache-aside when caching is
// enabled. The second return value reports a cache hit.
func (s *AttendanceService) Summary(ctx context.Context, studentID int64) (*models.AttendanceSummary, bool, error) {
	exists, err := s.students.ExistsByID(ctx, studentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}
	if !exists {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	key := summaryCacheKey(studentID)
	if s.cache.Enabled() {
		var cached models.AttendanceSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	summary, err := s.repo.SummaryByStudent(ctx, studentID)
	s.metrics.ObserveDBQuery("attendance_summary", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, summary, 0); err != nil {
			s.logger.Warn("failed to cache attendance summary", zap.Int64("student_id", studentID), zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *AttendanceService) invalidateSummary(ctx context.Context, studentID int64) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, summaryCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate attendance summary cache", zap.Int64("student_id", studentID), zap.Error(err))
	}
}

func summaryCacheKey(studentID int64) string {
	return fmt.Sprintf("attendance:summary:%d", studentID)
}
