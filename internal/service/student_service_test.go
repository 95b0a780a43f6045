package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/attendance-api/internal/models"
	appErrors "github.com/classtrack/attendance-api/pkg/errors"
)

type studentRepoStub struct {
	students map[int64]models.Student
	err      error
	deleted  []int64
}

func newStudentRepoStub(students ...models.Student) *studentRepoStub {
	stub := &studentRepoStub{students: make(map[int64]models.Student)}
	for _, s := range students {
		stub.students[s.ID] = s
	}
	return stub
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	result := make([]models.Student, 0, len(s.students))
	for _, student := range s.students {
		result = append(result, student)
	}
	return result, len(result), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (s *studentRepoStub) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.students[id]
	return ok, nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if s.err != nil {
		return s.err
	}
	s.students[student.ID] = *student
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	if s.err != nil {
		return s.err
	}
	s.students[student.ID] = *student
	return nil
}

func (s *studentRepoStub) Delete(ctx context.Context, id int64) error {
	if s.err != nil {
		return s.err
	}
	delete(s.students, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{ID: 7, Name: "Asha Verma", Class: "10-A"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), student.ID)
	assert.Contains(t, repo.students, int64(7))
}

func TestStudentServiceCreateDuplicateID(t *testing.T) {
	repo := newStudentRepoStub(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	svc := NewStudentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{ID: 7, Name: "Other", Class: "9-B"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	cases := []CreateStudentRequest{
		{ID: 0, Name: "Asha", Class: "10-A"},
		{ID: -2, Name: "Asha", Class: "10-A"},
		{ID: 7, Name: "", Class: "10-A"},
		{ID: 7, Name: "Asha", Class: ""},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := newStudentRepoStub(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	svc := NewStudentService(repo, nil, nil)

	student, err := svc.Update(context.Background(), 7, UpdateStudentRequest{Name: "Asha V", Class: "10-B"})
	require.NoError(t, err)
	assert.Equal(t, "Asha V", student.Name)
	assert.Equal(t, "10-B", repo.students[7].Class)
}

func TestStudentServiceUpdateNotFound(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	_, err := svc.Update(context.Background(), 9, UpdateStudentRequest{Name: "X", Class: "Y"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := newStudentRepoStub(models.Student{ID: 7, Name: "Asha Verma", Class: "10-A"})
	svc := NewStudentService(repo, nil, nil)

	err := svc.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, repo.deleted)
}

func TestStudentServiceDeleteNotFound(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil)

	err := svc.Delete(context.Background(), 7)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceList(t *testing.T) {
	repo := newStudentRepoStub(
		models.Student{ID: 1, Name: "A", Class: "10-A"},
		models.Student{ID: 2, Name: "B", Class: "10-B"},
	)
	svc := NewStudentService(repo, nil, nil)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
}
