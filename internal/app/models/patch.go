package models

import "time"

// UserNamePatch carries the name parts to change; nil fields are left untouched
type UserNamePatch struct {
	FirstName  *string `json:"firstName,omitempty"`
	MiddleName *string `json:"middleName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
}

// GuardianPatch carries the guardian fields to change
type GuardianPatch struct {
	FatherName       *string `json:"fatherName,omitempty"`
	FatherOccupation *string `json:"fatherOccupation,omitempty"`
	FatherContactNo  *string `json:"fatherContactNo,omitempty"`
	MotherName       *string `json:"motherName,omitempty"`
	MotherOccupation *string `json:"motherOccupation,omitempty"`
	MotherContactNo  *string `json:"motherContactNo,omitempty"`
}

// LocalGuardianPatch carries the local guardian fields to change
type LocalGuardianPatch struct {
	Name       *string `json:"name,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
	ContactNo  *string `json:"contactNo,omitempty"`
	Address    *string `json:"address,omitempty"`
}

// StudentPatch is a partial update of a student. The business ID, the
// soft-delete flag and the timestamps cannot be patched.
type StudentPatch struct {
	User               *string
	Name               *UserNamePatch
	Gender             *Gender
	DateOfBirth        *time.Time
	ClearDateOfBirth   bool
	Email              *string
	ContactNo          *string
	EmergencyContactNo *string
	BloodGroup         *BloodGroup
	PresentAddress     *string
	PermanentAddress   *string
	Guardian           *GuardianPatch
	LocalGuardian      *LocalGuardianPatch
	ProfileImage       *string
	AdmissionSemester  *string
	Status             *Status
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Apply merges the patch into the student
func (p *StudentPatch) Apply(s *Student) {
	if p == nil || s == nil {
		return
	}

	setString(&s.User, p.User)
	if p.Name != nil {
		setString(&s.Name.FirstName, p.Name.FirstName)
		setString(&s.Name.MiddleName, p.Name.MiddleName)
		setString(&s.Name.LastName, p.Name.LastName)
	}
	if p.Gender != nil {
		s.Gender = *p.Gender
	}
	switch {
	case p.ClearDateOfBirth:
		s.DateOfBirth = nil
	case p.DateOfBirth != nil:
		dob := *p.DateOfBirth
		s.DateOfBirth = &dob
	}
	setString(&s.Email, p.Email)
	setString(&s.ContactNo, p.ContactNo)
	setString(&s.EmergencyContactNo, p.EmergencyContactNo)
	if p.BloodGroup != nil {
		s.BloodGroup = *p.BloodGroup
	}
	setString(&s.PresentAddress, p.PresentAddress)
	setString(&s.PermanentAddress, p.PermanentAddress)
	if g := p.Guardian; g != nil {
		setString(&s.Guardian.FatherName, g.FatherName)
		setString(&s.Guardian.FatherOccupation, g.FatherOccupation)
		setString(&s.Guardian.FatherContactNo, g.FatherContactNo)
		setString(&s.Guardian.MotherName, g.MotherName)
		setString(&s.Guardian.MotherOccupation, g.MotherOccupation)
		setString(&s.Guardian.MotherContactNo, g.MotherContactNo)
	}
	if lg := p.LocalGuardian; lg != nil {
		setString(&s.LocalGuardian.Name, lg.Name)
		setString(&s.LocalGuardian.Occupation, lg.Occupation)
		setString(&s.LocalGuardian.ContactNo, lg.ContactNo)
		setString(&s.LocalGuardian.Address, lg.Address)
	}
	setString(&s.ProfileImage, p.ProfileImage)
	setString(&s.AdmissionSemester, p.AdmissionSemester)
	if p.Status != nil {
		s.Status = *p.Status
	}
}

// IsEmpty reports whether the patch changes nothing
func (p *StudentPatch) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.User == nil && p.Name == nil && p.Gender == nil && p.DateOfBirth == nil && !p.ClearDateOfBirth &&
		p.Email == nil && p.ContactNo == nil && p.EmergencyContactNo == nil && p.BloodGroup == nil &&
		p.PresentAddress == nil && p.PermanentAddress == nil && p.Guardian == nil && p.LocalGuardian == nil &&
		p.ProfileImage == nil && p.AdmissionSemester == nil && p.Status == nil
}
