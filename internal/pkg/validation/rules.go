package validation

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/studentrecords/internal/app/models"
	"github.com/yigit/studentrecords/internal/pkg/apperrors"
)

// Validation rule parameters
var (
	// FirstNameMaxLength is the maximum length of a student's first name
	FirstNameMaxLength = 20

	// Column widths of the students table
	IDMaxLength        = 64
	NameMaxLength      = 100
	EmailMaxLength     = 255
	ContactNoMaxLength = 50

	// GenderValues lists the accepted genders
	GenderValues = []string{string(models.GenderMale), string(models.GenderFemale), string(models.GenderOther)}

	// BloodGroupValues lists the accepted blood groups
	BloodGroupValues = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	// StatusValues lists the accepted account statuses
	StatusValues = []string{string(models.StatusActive), string(models.StatusBlocked)}
)

// valuePlaceholder is replaced with the offending value in rule messages
const valuePlaceholder = "{VALUE}"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("capitalized", func(fl validator.FieldLevel) bool {
		return IsCapitalized(fl.Field().String())
	})
	return v
}

// IsCapitalized reports whether the first character is upper case; the rest is not inspected.
func IsCapitalized(value string) bool {
	if value == "" {
		return true
	}
	r, size := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(r))+value[size:] == value
}

// FieldRule binds a student field to a validator tag and the message reported when it fails
type FieldRule struct {
	Field   string
	Get     func(s *models.Student) string
	Tag     string
	Message string
}

// required reports whether the rule rejects empty values; other rules skip them
func (r FieldRule) required() bool {
	return r.Tag == "required"
}

// message renders the rule message for the offending value
func (r FieldRule) message(value string) string {
	return strings.ReplaceAll(r.Message, valuePlaceholder, value)
}

func requiredRule(field, message string, get func(s *models.Student) string) FieldRule {
	return FieldRule{Field: field, Get: get, Tag: "required", Message: message}
}

func maxLengthRule(field, label string, limit int, get func(s *models.Student) string) FieldRule {
	return FieldRule{
		Field:   field,
		Get:     get,
		Tag:     "max=" + strconv.Itoa(limit),
		Message: label + " cannot be more than " + strconv.Itoa(limit) + " characters.",
	}
}

func enumMessage(path string) string {
	return "`{VALUE}` is not a valid enum value for path `" + path + "`."
}

// StudentRules is evaluated in order; the first failing rule of a field is reported
var StudentRules = []FieldRule{
	requiredRule("id", "ID is required", func(s *models.Student) string { return s.ID }),
	maxLengthRule("id", "ID", IDMaxLength, func(s *models.Student) string { return s.ID }),
	{Field: "user", Get: func(s *models.Student) string { return s.User }, Tag: "mongodb", Message: "{VALUE} is not a valid User ID"},

	requiredRule("name.firstName", "First Name is required", func(s *models.Student) string { return s.Name.FirstName }),
	{Field: "name.firstName", Get: func(s *models.Student) string { return s.Name.FirstName }, Tag: "max=" + strconv.Itoa(FirstNameMaxLength), Message: "Name cannot be more than 20 characters."},
	{Field: "name.firstName", Get: func(s *models.Student) string { return s.Name.FirstName }, Tag: "capitalized", Message: "{VALUE} is not in capitalize format."},
	maxLengthRule("name.middleName", "Middle Name", NameMaxLength, func(s *models.Student) string { return s.Name.MiddleName }),
	requiredRule("name.lastName", "Last Name is required", func(s *models.Student) string { return s.Name.LastName }),
	maxLengthRule("name.lastName", "Last Name", NameMaxLength, func(s *models.Student) string { return s.Name.LastName }),
	{Field: "name.lastName", Get: func(s *models.Student) string { return s.Name.LastName }, Tag: "alpha", Message: "{VALUE} is not valid"},

	requiredRule("gender", "Gender is required", func(s *models.Student) string { return string(s.Gender) }),
	{
		Field:   "gender",
		Get:     func(s *models.Student) string { return string(s.Gender) },
		Tag:     "oneof=" + strings.Join(GenderValues, " "),
		Message: "{VALUE} is not valid. The gender of the student can be either 'Male', 'Female', or 'Other'.",
	},

	requiredRule("email", "Email is required", func(s *models.Student) string { return s.Email }),
	maxLengthRule("email", "Email", EmailMaxLength, func(s *models.Student) string { return s.Email }),
	{Field: "email", Get: func(s *models.Student) string { return s.Email }, Tag: "email", Message: "{VALUE} is not valid Email type."},

	requiredRule("contactNo", "Contact Number is required", func(s *models.Student) string { return s.ContactNo }),
	maxLengthRule("contactNo", "Contact Number", ContactNoMaxLength, func(s *models.Student) string { return s.ContactNo }),
	requiredRule("emergencyContactNo", "Emergency Contact Number is required", func(s *models.Student) string { return s.EmergencyContactNo }),
	maxLengthRule("emergencyContactNo", "Emergency Contact Number", ContactNoMaxLength, func(s *models.Student) string { return s.EmergencyContactNo }),
	{Field: "bloodGroup", Get: func(s *models.Student) string { return string(s.BloodGroup) }, Tag: "oneof=" + strings.Join(BloodGroupValues, " "), Message: enumMessage("bloodGroup")},
	requiredRule("presentAddress", "Present Address is required", func(s *models.Student) string { return s.PresentAddress }),
	requiredRule("permanentAddress", "Permanent Address is required", func(s *models.Student) string { return s.PermanentAddress }),

	requiredRule("guardian.fatherName", "Father's Name is required", func(s *models.Student) string { return s.Guardian.FatherName }),
	requiredRule("guardian.fatherOccupation", "Father's Occupation is required", func(s *models.Student) string { return s.Guardian.FatherOccupation }),
	requiredRule("guardian.fatherContactNo", "Father's Contact Number is required", func(s *models.Student) string { return s.Guardian.FatherContactNo }),
	requiredRule("guardian.motherName", "Mother's Name is required", func(s *models.Student) string { return s.Guardian.MotherName }),
	requiredRule("guardian.motherOccupation", "Mother's Occupation is required", func(s *models.Student) string { return s.Guardian.MotherOccupation }),
	requiredRule("guardian.motherContactNo", "Mother's Contact Number is required", func(s *models.Student) string { return s.Guardian.MotherContactNo }),

	requiredRule("localGuardian.name", "Local Guardian's Name is required", func(s *models.Student) string { return s.LocalGuardian.Name }),
	requiredRule("localGuardian.occupation", "Local Guardian's Occupation is required", func(s *models.Student) string { return s.LocalGuardian.Occupation }),
	requiredRule("localGuardian.contactNo", "Local Guardian's Contact Number is required", func(s *models.Student) string { return s.LocalGuardian.ContactNo }),
	requiredRule("localGuardian.address", "Local Guardian's Address is required", func(s *models.Student) string { return s.LocalGuardian.Address }),

	{Field: "status", Get: func(s *models.Student) string { return string(s.Status) }, Tag: "oneof=" + strings.Join(StatusValues, " "), Message: enumMessage("status")},
	{Field: "admissionSemester", Get: func(s *models.Student) string { return s.AdmissionSemester }, Tag: "mongodb", Message: "{VALUE} is not a valid Academic Semester ID"},
}

// ValidateStudent checks every rule against the student and returns a
// *apperrors.ValidationError listing each failing field, or nil.
func ValidateStudent(student *models.Student) error {
	if student == nil {
		return apperrors.NewValidationError("student", "", "Student data is required")
	}

	var fields []apperrors.FieldError
	failed := make(map[string]bool)

	for _, rule := range StudentRules {
		if failed[rule.Field] {
			continue
		}
		value := rule.Get(student)
		if value == "" && !rule.required() {
			continue
		}
		if err := validate.Var(value, rule.Tag); err != nil {
			failed[rule.Field] = true
			fields = append(fields, apperrors.FieldError{
				Field:   rule.Field,
				Value:   value,
				Message: rule.message(value),
			})
		}
	}

	if len(fields) > 0 {
		return &apperrors.ValidationError{Fields: fields}
	}
	return nil
}

// Normalize trims every string field and applies defaults before validation
func Normalize(student *models.Student) {
	if student == nil {
		return
	}

	trim := func(fields ...*string) {
		for _, f := range fields {
			*f = strings.TrimSpace(*f)
		}
	}

	trim(&student.ID, &student.User, &student.Email, &student.ContactNo, &student.EmergencyContactNo,
		&student.PresentAddress, &student.PermanentAddress, &student.ProfileImage, &student.AdmissionSemester)
	trim(&student.Name.FirstName, &student.Name.MiddleName, &student.Name.LastName)
	trim(&student.Guardian.FatherName, &student.Guardian.FatherOccupation, &student.Guardian.FatherContactNo,
		&student.Guardian.MotherName, &student.Guardian.MotherOccupation, &student.Guardian.MotherContactNo)
	trim(&student.LocalGuardian.Name, &student.LocalGuardian.Occupation, &student.LocalGuardian.ContactNo,
		&student.LocalGuardian.Address)

	student.Gender = models.Gender(strings.TrimSpace(string(student.Gender)))
	student.BloodGroup = models.BloodGroup(strings.TrimSpace(string(student.BloodGroup)))
	student.Status = models.Status(strings.TrimSpace(string(student.Status)))
	if student.Status == "" {
		student.Status = models.StatusActive
	}
}
