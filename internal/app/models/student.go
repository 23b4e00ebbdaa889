package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates such as the date of birth
const DateLayout = "2006-01-02"

// UserName holds the parts of a student's name
type UserName struct {
	FirstName  string `json:"firstName" example:"John"`
	MiddleName string `json:"middleName,omitempty" example:"Michael"`
	LastName   string `json:"lastName" example:"Doe"`
}

// Guardian holds the student's parents' details
type Guardian struct {
	FatherName       string `json:"fatherName"`
	FatherOccupation string `json:"fatherOccupation"`
	FatherContactNo  string `json:"fatherContactNo"`
	MotherName       string `json:"motherName"`
	MotherOccupation string `json:"motherOccupation"`
	MotherContactNo  string `json:"motherContactNo"`
}

// LocalGuardian holds the details of the student's local guardian
type LocalGuardian struct {
	Name       string `json:"name"`
	Occupation string `json:"occupation"`
	ContactNo  string `json:"contactNo"`
	Address    string `json:"address"`
}

// Student defines the student record stored in the 'students' collection/table
type Student struct {
	RecordID           string        `json:"_id,omitempty"`           // Storage-internal identifier (ObjectID hex or UUID)
	ID                 string        `json:"id" example:"2025010001"` // Business identifier
	User               string        `json:"user,omitempty"`          // Reference to the linked user account (nullable)
	Name               UserName      `json:"name"`
	Gender             Gender        `json:"gender" example:"male"`
	DateOfBirth        *time.Time    `json:"dateOfBirth,omitempty"`
	Email              string        `json:"email" example:"john@school.edu"`
	ContactNo          string        `json:"contactNo"`
	EmergencyContactNo string        `json:"emergencyContactNo"`
	BloodGroup         BloodGroup    `json:"bloodGroup,omitempty" example:"A+"`
	PresentAddress     string        `json:"presentAddress"`
	PermanentAddress   string        `json:"permanentAddress"`
	Guardian           Guardian      `json:"guardian"`
	LocalGuardian      LocalGuardian `json:"localGuardian"`
	ProfileImage       string        `json:"profileImage,omitempty"`
	AdmissionSemester  string        `json:"admissionSemester,omitempty"` // Reference to the academic semester (nullable)
	Status             Status        `json:"status" example:"active"`
	IsDeleted          bool          `json:"isDeleted"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// FullName joins first, middle and last name with single spaces, skipping empty parts.
func (n UserName) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.FirstName, n.MiddleName, n.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// FullName is the derived, non-persisted full name of the student
func (s *Student) FullName() string {
	return s.Name.FullName()
}

// MarshalJSON adds the fullName virtual and renders dateOfBirth as YYYY-MM-DD
func (s Student) MarshalJSON() ([]byte, error) {
	type student Student
	out := struct {
		student
		FullName    string `json:"fullName"`
		DateOfBirth string `json:"dateOfBirth,omitempty"`
	}{
		student:  student(s),
		FullName: s.FullName(),
	}
	if s.DateOfBirth != nil {
		out.DateOfBirth = s.DateOfBirth.UTC().Format(DateLayout)
	}
	return json.Marshal(out)
}

// GroupCount is one bucket of a student aggregation
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}
