package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/attendance-api/internal/models"
	"github.com/classtrack/attendance-api/internal/service"
	appErrors "github.com/classtrack/attendance-api/pkg/errors"
	"github.com/classtrack/attendance-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	exports    *service.ExportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, exports *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// List godoc
// @Summary List attendance records with student details
// @Tags Attendance
// @Produce json
// @Param studentId query int false "Filter by student"
// @Param status query string false "Filter by status (Present or Absent)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Mark godoc
// @Summary Mark attendance for a student on a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Get a single attendance record
// @Tags Attendance
// @Produce json
// @Param studentId path int true "Student ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/{studentId}/{date} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	studentID, date, err := attendanceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.attendance.Get(c.Request.Context(), studentID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateStatus godoc
// @Summary Update the status of an existing attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param studentId path int true "Student ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body service.UpdateAttendanceRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{studentId}/{date} [put]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	studentID, date, err := attendanceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	record, err := h.attendance.UpdateStatus(c.Request.Context(), studentID, date, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param studentId path int true "Student ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /attendance/{studentId}/{date} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	studentID, date, err := attendanceKeyFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), studentID, date); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary List a student's attendance history newest first
// @Tags Attendance
// @Produce json
// @Param studentId path int true "Student ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{studentId} [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	studentID, err := parseStudentID(c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	from, err := optionalDateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := optionalDateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.attendance.History(c.Request.Context(), studentID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Summary godoc
// @Summary Aggregate a student's attendance counts and percentage
// @Tags Attendance
// @Produce json
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/student/{studentId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	studentID, err := parseStudentID(c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, cacheHit, err := h.attendance.Summary(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"cache_hit": cacheHit}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// Export godoc
// @Summary Export attendance records as CSV or PDF
// @Tags Attendance
// @Produce octet-stream
// @Param format query string false "csv or pdf (default csv)"
// @Param studentId query int false "Filter by student"
// @Param status query string false "Filter by status"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.Attendance(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func attendanceFilterFromQuery(c *gin.Context) (models.AttendanceFilter, error) {
	var filter models.AttendanceFilter
	if raw := strings.TrimSpace(c.Query("studentId")); raw != "" {
		id, err := parseStudentID(raw)
		if err != nil {
			return filter, err
		}
		filter.StudentID = id
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		parsed := models.AttendanceStatus(status)
		if !parsed.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "status must be either Present or Absent")
		}
		filter.Status = &parsed
	}
	from, err := optionalDateQuery(c, "from")
	if err != nil {
		return filter, err
	}
	filter.DateFrom = from
	to, err := optionalDateQuery(c, "to")
	if err != nil {
		return filter, err
	}
	filter.DateTo = to
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter, nil
}

func attendanceKeyFromPath(c *gin.Context) (int64, models.DateOnly, error) {
	studentID, err := parseStudentID(c.Param("studentId"))
	if err != nil {
		return 0, models.DateOnly{}, err
	}
	date, err := models.ParseDateOnly(c.Param("date"))
	if err != nil {
		return 0, models.DateOnly{}, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}
	return studentID, date, nil
}

func optionalDateQuery(c *gin.Context, name string) (*models.DateOnly, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	date, err := models.ParseDateOnly(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must use the YYYY-MM-DD format")
	}
	return &date, nil
}
