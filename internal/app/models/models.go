package models

// Gender defines the student's gender
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// BloodGroup defines the student's blood group
type BloodGroup string

const (
	BloodGroupAPositive  BloodGroup = "A+"
	BloodGroupANegative  BloodGroup = "A-"
	BloodGroupBPositive  BloodGroup = "B+"
	BloodGroupBNegative  BloodGroup = "B-"
	BloodGroupABPositive BloodGroup = "AB+"
	BloodGroupABNegative BloodGroup = "AB-"
	BloodGroupOPositive  BloodGroup = "O+"
	BloodGroupONegative  BloodGroup = "O-"
)

// Status defines whether a student account is usable
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// GroupField names a student attribute that can be aggregated on
type GroupField string

const (
	GroupByGender     GroupField = "gender"
	GroupByBloodGroup GroupField = "bloodGroup"
	GroupByStatus     GroupField = "status"
)

// Valid reports whether the field is one of the supported aggregation keys
func (g GroupField) Valid() bool {
	switch g {
	case GroupByGender, GroupByBloodGroup, GroupByStatus:
		return true
	}
	return false
}
