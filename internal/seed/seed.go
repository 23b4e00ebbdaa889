package seed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
)

// StudentCreator persists a validated student
type StudentCreator interface {
	CreateStudent(ctx context.Context, student *appModels.Student) (*appModels.Student, error)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// DemoStudents returns the records created by CreateDefaultData
func DemoStudents() []*appModels.Student {
	return []*appModels.Student{
		{
			ID:                 "2025010001",
			Name:               appModels.UserName{FirstName: "Ada", LastName: "Lovelace"},
			Gender:             appModels.GenderFemale,
			DateOfBirth:        date(2004, time.December, 10),
			Email:              "ada.lovelace@students.example.edu",
			ContactNo:          "0123456780",
			EmergencyContactNo: "0123456781",
			BloodGroup:         appModels.BloodGroupAPositive,
			PresentAddress:     "12 St James Square",
			PermanentAddress:   "12 St James Square",
			Guardian: appModels.Guardian{
				FatherName: "George Byron", FatherOccupation: "Poet", FatherContactNo: "0123456782",
				MotherName: "Anne Milbanke", MotherOccupation: "Mathematician", MotherContactNo: "0123456783",
			},
			LocalGuardian: appModels.LocalGuardian{Name: "Mary Somerville", Occupation: "Scientist", ContactNo: "0123456784", Address: "4 Chelsea Walk"},
		},
		{
			ID:                 "2025010002",
			Name:               appModels.UserName{FirstName: "Alan", MiddleName: "Mathison", LastName: "Turing"},
			Gender:             appModels.GenderMale,
			DateOfBirth:        date(2005, time.June, 23),
			Email:              "alan.turing@students.example.edu",
			ContactNo:          "0123456790",
			EmergencyContactNo: "0123456791",
			BloodGroup:         appModels.BloodGroupOPositive,
			PresentAddress:     "2 Warrington Crescent",
			PermanentAddress:   "2 Warrington Crescent",
			Guardian: appModels.Guardian{
				FatherName: "Julius Turing", FatherOccupation: "Civil Servant", FatherContactNo: "0123456792",
				MotherName: "Ethel Stoney", MotherOccupation: "Artist", MotherContactNo: "0123456793",
			},
			LocalGuardian: appModels.LocalGuardian{Name: "Charles Ward", Occupation: "Officer", ContactNo: "0123456794", Address: "8 Baston Lodge"},
		},
	}
}

// CreateDefaultData creates the demo students if they don't exist.
// Existing records are left untouched; other failures are collected and returned together.
func CreateDefaultData(ctx context.Context, students StudentCreator, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (Students)...")
	var finalErr error

	for _, s := range DemoStudents() {
		_, err := students.CreateStudent(ctx, s)
		switch {
		case err == nil:
			lgr.Info().Str("studentID", s.ID).Msg("Demo student created")
		case errors.Is(err, apperrors.ErrConflict):
			lgr.Debug().Str("studentID", s.ID).Msg("Demo student already exists, skipping creation")
		default:
			lgr.Error().Err(err).Str("studentID", s.ID).Msg("Error creating demo student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}
