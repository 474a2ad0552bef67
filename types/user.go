package types

import "time"

// Roles a user can hold. Role-specific profile columns are only
// populated for the matching role.
const (
	RoleAdmin   = "admin"
	RoleAlumnus = "alumnus"
	RoleStudent = "student"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAlumnus, RoleStudent:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, the role-specific profile, and audit
// metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address, stored lowercase and unique
	// across all users.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system
	// ("admin", "alumnus" or "student").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Gender is shared by the alumnus and student profiles.
	Gender *string `json:"gender,omitempty" db:"gender"`

	// BatchYear is the graduation batch of an alumnus.
	BatchYear *int `json:"batchYear,omitempty" db:"batch_year"`

	// Course references the course an alumnus graduated from or a
	// student is enrolled in.
	Course *string `json:"course,omitempty" db:"course"`

	// Status is the alumnus employment status.
	Status *string `json:"status,omitempty" db:"status"`

	// EnrollmentYear is the year a student joined.
	EnrollmentYear *int `json:"enrollmentYear,omitempty" db:"enrollment_year"`

	// CurrentYear is the student's current year of study (1-6).
	CurrentYear *int `json:"currentYear,omitempty" db:"current_year"`

	// RollNumber is the student's roll number.
	RollNumber *string `json:"rollNumber,omitempty" db:"roll_number"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RoleProfile returns the subset of profile fields that belong to the
// user's own role. Fields of other roles never leak into responses.
func (u User) RoleProfile() map[string]any {
	profile := map[string]any{}
	switch u.Role {
	case RoleAlumnus:
		if u.Gender != nil {
			profile["gender"] = *u.Gender
		}
		if u.BatchYear != nil {
			profile["batchYear"] = *u.BatchYear
		}
		if u.Course != nil {
			profile["course"] = *u.Course
		}
		if u.Status != nil {
			profile["status"] = *u.Status
		}
	case RoleStudent:
		if u.Gender != nil {
			profile["gender"] = *u.Gender
		}
		if u.EnrollmentYear != nil {
			profile["enrollmentYear"] = *u.EnrollmentYear
		}
		if u.CurrentYear != nil {
			profile["currentYear"] = *u.CurrentYear
		}
		if u.Course != nil {
			profile["course"] = *u.Course
		}
		if u.RollNumber != nil {
			profile["rollNumber"] = *u.RollNumber
		}
	}
	return profile
}
