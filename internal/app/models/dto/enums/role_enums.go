package enums

// RoleType defines the role carried in an access token
type RoleType string

const (
	RoleSuperAdmin RoleType = "superAdmin"
	RoleAdmin      RoleType = "admin"
	RoleFaculty    RoleType = "faculty"
	RoleStudent    RoleType = "student"
)

// IsAdmin reports whether the role manages student records
func (r RoleType) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
