package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/attendance-api/internal/models"
	"github.com/classtrack/attendance-api/internal/service"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type memStudentRepo struct {
	students map[int64]models.Student
}

func newMemStudentRepo(students ...models.Student) *memStudentRepo {
	repo := &memStudentRepo{students: make(map[int64]models.Student)}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	return repo
}

func (r *memStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	result := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (r *memStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *memStudentRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}

func (r *memStudentRepo) Create(ctx context.Context, student *models.Student) error {
	r.students[student.ID] = *student
	return nil
}

func (r *memStudentRepo) Update(ctx context.Context, student *models.Student) error {
	r.students[student.ID] = *student
	return nil
}

func (r *memStudentRepo) Delete(ctx context.Context, id int64) error {
	delete(r.students, id)
	return nil
}

func newStudentRouter(repo *memStudentRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewStudentService(repo, nil, nil)
	h := NewStudentHandler(svc)
	r := gin.New()
	r.GET("/students", h.List)
	r.GET("/students/:id", h.Get)
	r.POST("/students", h.Create)
	r.PUT("/students/:id", h.Update)
	r.DELETE("/students/:id", h.Delete)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStudentHandlerCreate(t *testing.T) {
	repo := newMemStudentRepo()
	router := newStudentRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/students", map[string]interface{}{
		"id": 7, "name": "Asha Verma", "class": "10-A",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(7), envelope.Data["id"])
	assert.Contains(t, repo.students, int64(7))
}

func TestStudentHandlerCreateDuplicate(t *testing.T) {
	repo := newMemStudentRepo(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	router := newStudentRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/students", map[string]interface{}{
		"id": 7, "name": "Other", "class": "9-B",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestStudentHandlerCreateMissingFields(t *testing.T) {
	router := newStudentRouter(newMemStudentRepo())

	rec := doJSON(t, router, http.MethodPost, "/students", map[string]interface{}{
		"id": 7, "name": "", "class": "",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerGet(t *testing.T) {
	repo := newMemStudentRepo(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	router := newStudentRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/students/7", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Asha Verma", envelope.Data["name"])
	assert.Equal(t, "10-A", envelope.Data["class"])
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	router := newStudentRouter(newMemStudentRepo())

	rec := doJSON(t, router, http.MethodGet, "/students/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerGetInvalidID(t *testing.T) {
	router := newStudentRouter(newMemStudentRepo())

	rec := doJSON(t, router, http.MethodGet, "/students/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerUpdate(t *testing.T) {
	repo := newMemStudentRepo(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	router := newStudentRouter(repo)

	rec := doJSON(t, router, http.MethodPut, "/students/7", map[string]interface{}{
		"name": "Asha V", "class": "10-B",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10-B", repo.students[7].Class)
}

func TestStudentHandlerDelete(t *testing.T) {
	repo := newMemStudentRepo(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	router := newStudentRouter(repo)

	rec := doJSON(t, router, http.MethodDelete, "/students/7", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, repo.students, int64(7))
}
