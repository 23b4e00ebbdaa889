package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/app/models/dto"
	"github.com/yigit/studentrecords/internal/app/repositories"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"github.com/yigit/studentrecords/internal/pkg/helpers"
	"github.com/yigit/studentrecords/internal/pkg/logger"
	"github.com/yigit/studentrecords/internal/pkg/validation"
)

// StudentService defines the interface for student record operations
type StudentService interface {
	CreateStudent(ctx context.Context, student *models.Student) (*models.Student, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	ListStudents(ctx context.Context, filter repositories.StudentFilter, page, size int) ([]*models.Student, dto.PaginationInfo, error)
	AggregateStudents(ctx context.Context, groupBy models.GroupField) ([]models.GroupCount, error)
	UpdateStudent(ctx context.Context, id string, patch *models.StudentPatch) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	IsUserExists(ctx context.Context, id string) (*models.Student, error)
}

// studentServiceImpl implements the StudentService interface
type studentServiceImpl struct {
	studentRepo repositories.StudentRepository
}

// NewStudentService creates a new student service instance
func NewStudentService(studentRepo repositories.StudentRepository) StudentService {
	return &studentServiceImpl{
		studentRepo: studentRepo,
	}
}

// IsUserExists returns the live student with the given business ID, or nil when there is none
func (s *studentServiceImpl) IsUserExists(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.studentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	return student, nil
}

// CreateStudent normalizes, validates and stores a new student
func (s *studentServiceImpl) CreateStudent(ctx context.Context, student *models.Student) (*models.Student, error) {
	if student == nil {
		return nil, apperrors.NewValidationError("student", "", "Student data is required")
	}

	validation.Normalize(student)
	if err := validation.ValidateStudent(student); err != nil {
		return nil, err
	}

	existing, err := s.IsUserExists(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrStudentIDAlreadyExists
	}

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// GetStudent retrieves a live student by business ID
func (s *studentServiceImpl) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	if id == "" {
		return nil, apperrors.NewBadRequestError("student ID is required")
	}
	return s.studentRepo.FindByID(ctx, id)
}

// validateFilter rejects enum filters that can never match
func validateFilter(filter repositories.StudentFilter) error {
	probe := &models.Student{Gender: filter.Gender, BloodGroup: filter.BloodGroup}
	err := validation.ValidateStudent(probe)

	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	for _, field := range []string{"gender", "bloodGroup"} {
		if fe, ok := ve.Field(field); ok && fe.Value != "" {
			return apperrors.NewBadRequestError(fe.Message)
		}
	}
	return nil
}

// ListStudents returns one page of live students matching the filter
func (s *studentServiceImpl) ListStudents(ctx context.Context, filter repositories.StudentFilter, page, size int) ([]*models.Student, dto.PaginationInfo, error) {
	if err := validateFilter(filter); err != nil {
		return nil, dto.PaginationInfo{}, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)

	total, err := s.studentRepo.Count(ctx, filter)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}

	students, err := s.studentRepo.Find(ctx, filter, offset, limit)
	if err != nil {
		return nil, dto.PaginationInfo{}, err
	}

	return students, helpers.NewPaginationInfo(total, page, limit), nil
}

// AggregateStudents counts live students grouped by the given field; gender is the default
func (s *studentServiceImpl) AggregateStudents(ctx context.Context, groupBy models.GroupField) ([]models.GroupCount, error) {
	if groupBy == "" {
		groupBy = models.GroupByGender
	}
	if !groupBy.Valid() {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("cannot group students by %q", groupBy))
	}
	return s.studentRepo.Aggregate(ctx, groupBy)
}

// UpdateStudent merges the patch into the stored student, then validates and saves the result
func (s *studentServiceImpl) UpdateStudent(ctx context.Context, id string, patch *models.StudentPatch) (*models.Student, error) {
	if patch.IsEmpty() {
		return nil, apperrors.NewBadRequestError("no fields to update")
	}

	student, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(student)
	validation.Normalize(student)
	if err := validation.ValidateStudent(student); err != nil {
		return nil, err
	}

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}

	logger.Info().Str("studentID", id).Msg("Student updated")
	return student, nil
}

// DeleteStudent soft-deletes a student
func (s *studentServiceImpl) DeleteStudent(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewBadRequestError("student ID is required")
	}
	return s.studentRepo.SoftDelete(ctx, id)
}
