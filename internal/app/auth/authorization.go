package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/app/models/dto/enums"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
	"github.com/yigit/studentrecords/internal/pkg/logger"
)

// StudentGetter loads a student by business ID
type StudentGetter interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	students StudentGetter
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(students StudentGetter) *AuthorizationService {
	return &AuthorizationService{
		students: students,
	}
}

// ValidateAdmin returns ErrPermissionDenied unless the role manages student records
func (s *AuthorizationService) ValidateAdmin(role string) error {
	if !enums.RoleType(role).IsAdmin() {
		return apperrors.ErrPermissionDenied
	}
	return nil
}

// CanModifyStudent checks if the user can modify a student record.
// Admins can modify any record; students only the record linked to their user.
func (s *AuthorizationService) CanModifyStudent(ctx context.Context, studentID, userID, role string) (bool, error) {
	if enums.RoleType(role).IsAdmin() {
		return true, nil
	}
	if enums.RoleType(role) != enums.RoleStudent || userID == "" {
		return false, nil
	}

	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return false, err
		}
		logger.Error().Err(err).Str("studentID", studentID).Str("userID", userID).Msg("Error getting student in CanModifyStudent")
		return false, fmt.Errorf("failed to check student ownership: %w", err)
	}

	return student.User == userID, nil
}

// ValidateStudentOwnership validates if the user may modify the student or returns an error
func (s *AuthorizationService) ValidateStudentOwnership(ctx context.Context, studentID, userID, role string) error {
	canModify, err := s.CanModifyStudent(ctx, studentID, userID, role)
	if err != nil {
		return err
	}
	if !canModify {
		logger.Warn().Str("studentID", studentID).Str("userID", userID).Str("role", role).Msg("Student modification denied")
		return apperrors.ErrPermissionDenied
	}
	return nil
}

// ValidateStudentPatch rejects changes to administrative fields unless the role manages student records.
// User, status and admission semester are admin-only fields.
func (s *AuthorizationService) ValidateStudentPatch(role string, patch *models.StudentPatch) error {
	if enums.RoleType(role).IsAdmin() || patch == nil {
		return nil
	}
	if patch.User != nil || patch.Status != nil || patch.AdmissionSemester != nil {
		logger.Warn().Str("role", role).Msg("Administrative student fields in a non-admin patch")
		return apperrors.ErrPermissionDenied
	}
	return nil
}
