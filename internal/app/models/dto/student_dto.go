package dto

import (
	"strings"
	"time"

	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
)

// CreateStudentRequest is the body of POST /students. Field rules are applied
// by the validation package after normalization, not by binding tags.
type CreateStudentRequest struct {
	ID                 string               `json:"id" example:"2025010001"`
	User               string               `json:"user,omitempty" example:"65f1c2a3b4d5e6f708192a3b"`
	Name               models.UserName      `json:"name"`
	Gender             models.Gender        `json:"gender" example:"male"`
	DateOfBirth        string               `json:"dateOfBirth,omitempty" example:"2004-02-29"`
	Email              string               `json:"email" example:"john@school.edu"`
	ContactNo          string               `json:"contactNo"`
	EmergencyContactNo string               `json:"emergencyContactNo"`
	BloodGroup         models.BloodGroup    `json:"bloodGroup,omitempty" example:"O+"`
	PresentAddress     string               `json:"presentAddress"`
	PermanentAddress   string               `json:"permanentAddress"`
	Guardian           models.Guardian      `json:"guardian"`
	LocalGuardian      models.LocalGuardian `json:"localGuardian"`
	ProfileImage       string               `json:"profileImage,omitempty"`
	AdmissionSemester  string               `json:"admissionSemester,omitempty"`
	Status             models.Status        `json:"status,omitempty" example:"active"`
}

// ToModel converts the request into a student record
func (r *CreateStudentRequest) ToModel() (*models.Student, error) {
	dob, err := parseDateOfBirth(r.DateOfBirth)
	if err != nil {
		return nil, err
	}

	return &models.Student{
		ID:                 r.ID,
		User:               r.User,
		Name:               r.Name,
		Gender:             r.Gender,
		DateOfBirth:        dob,
		Email:              r.Email,
		ContactNo:          r.ContactNo,
		EmergencyContactNo: r.EmergencyContactNo,
		BloodGroup:         r.BloodGroup,
		PresentAddress:     r.PresentAddress,
		PermanentAddress:   r.PermanentAddress,
		Guardian:           r.Guardian,
		LocalGuardian:      r.LocalGuardian,
		ProfileImage:       r.ProfileImage,
		AdmissionSemester:  r.AdmissionSemester,
		Status:             r.Status,
	}, nil
}

// UpdateStudentRequest is the body of PATCH /students/:id; absent fields are left untouched.
// An empty dateOfBirth clears it.
type UpdateStudentRequest struct {
	User               *string                    `json:"user,omitempty"`
	Name               *models.UserNamePatch      `json:"name,omitempty"`
	Gender             *models.Gender             `json:"gender,omitempty"`
	DateOfBirth        *string                    `json:"dateOfBirth,omitempty"`
	Email              *string                    `json:"email,omitempty"`
	ContactNo          *string                    `json:"contactNo,omitempty"`
	EmergencyContactNo *string                    `json:"emergencyContactNo,omitempty"`
	BloodGroup         *models.BloodGroup         `json:"bloodGroup,omitempty"`
	PresentAddress     *string                    `json:"presentAddress,omitempty"`
	PermanentAddress   *string                    `json:"permanentAddress,omitempty"`
	Guardian           *models.GuardianPatch      `json:"guardian,omitempty"`
	LocalGuardian      *models.LocalGuardianPatch `json:"localGuardian,omitempty"`
	ProfileImage       *string                    `json:"profileImage,omitempty"`
	AdmissionSemester  *string                    `json:"admissionSemester,omitempty"`
	Status             *models.Status             `json:"status,omitempty"`
}

// ToPatch converts the request into a student patch
func (r *UpdateStudentRequest) ToPatch() (*models.StudentPatch, error) {
	patch := &models.StudentPatch{
		User:               r.User,
		Name:               r.Name,
		Gender:             r.Gender,
		Email:              r.Email,
		ContactNo:          r.ContactNo,
		EmergencyContactNo: r.EmergencyContactNo,
		BloodGroup:         r.BloodGroup,
		PresentAddress:     r.PresentAddress,
		PermanentAddress:   r.PermanentAddress,
		Guardian:           r.Guardian,
		LocalGuardian:      r.LocalGuardian,
		ProfileImage:       r.ProfileImage,
		AdmissionSemester:  r.AdmissionSemester,
		Status:             r.Status,
	}

	if r.DateOfBirth != nil {
		dob, err := parseDateOfBirth(*r.DateOfBirth)
		if err != nil {
			return nil, err
		}
		patch.DateOfBirth = dob
		patch.ClearDateOfBirth = dob == nil
	}
	return patch, nil
}

// StudentStatsResponse is the body of GET /students/stats
type StudentStatsResponse struct {
	GroupBy models.GroupField   `json:"groupBy" example:"gender"`
	Groups  []models.GroupCount `json:"groups"`
}

func parseDateOfBirth(value string) (*time.Time, error) {
	dob, err := models.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return nil, apperrors.NewValidationError("dateOfBirth", value, value+" is not a valid date")
	}
	return dob, nil
}
