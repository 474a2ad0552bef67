package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/alumnihub/apiserver/types"
)

const (
	minEnrollmentYear = 1900
	maxCurrentYear    = 6
)

// Profile is the role-tagged signup payload shared by direct signup
// and OAuth completion, so the two entry points validate identically.
type Profile struct {
	Role           string
	Gender         string
	BatchYear      int
	Course         string
	Status         string
	EnrollmentYear int
	CurrentYear    int
	RollNumber     string
}

// ValidationError describes a rejected signup field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ValidateProfile checks the fields required by the profile's role.
// Fields belonging to other roles are ignored.
func ValidateProfile(p Profile, now time.Time) error {
	switch p.Role {
	case types.RoleAdmin:
		return nil
	case types.RoleAlumnus:
		if strings.TrimSpace(p.Gender) == "" {
			return invalidf("Gender is required")
		}
		if p.BatchYear < minEnrollmentYear || p.BatchYear > now.Year() {
			return invalidf("Invalid batch year")
		}
		if strings.TrimSpace(p.Course) == "" {
			return invalidf("Course is required")
		}
		if strings.TrimSpace(p.Status) == "" {
			return invalidf("Status is required")
		}
		return nil
	case types.RoleStudent:
		if strings.TrimSpace(p.Gender) == "" {
			return invalidf("Gender is required")
		}
		if p.EnrollmentYear < minEnrollmentYear || p.EnrollmentYear > now.Year() {
			return invalidf("Invalid enrollment year")
		}
		if p.CurrentYear < 1 || p.CurrentYear > maxCurrentYear {
			return invalidf("Invalid current year")
		}
		if strings.TrimSpace(p.Course) == "" {
			return invalidf("Course is required")
		}
		if strings.TrimSpace(p.RollNumber) == "" {
			return invalidf("Roll number is required")
		}
		return nil
	default:
		return invalidf("Invalid user type")
	}
}

// Apply copies the profile's role-specific fields onto user. Call only
// after ValidateProfile accepted the profile.
func (p Profile) Apply(user *types.User) {
	user.Role = p.Role
	switch p.Role {
	case types.RoleAlumnus:
		gender, batchYear := p.Gender, p.BatchYear
		course, status := p.Course, p.Status
		user.Gender = &gender
		user.BatchYear = &batchYear
		user.Course = &course
		user.Status = &status
	case types.RoleStudent:
		gender, course, roll := p.Gender, p.Course, p.RollNumber
		enrollment, current := p.EnrollmentYear, p.CurrentYear
		user.Gender = &gender
		user.Course = &course
		user.RollNumber = &roll
		user.EnrollmentYear = &enrollment
		user.CurrentYear = &current
	}
}
