package auth

import (
	"testing"
	"time"

	"github.com/alumnihub/apiserver/types"
)

var validationNow = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func validStudent() Profile {
	return Profile{
		Role:           types.RoleStudent,
		Gender:         "female",
		EnrollmentYear: 2024,
		CurrentYear:    2,
		Course:         "CSE",
		RollNumber:     "CSE24-117",
	}
}

func validAlumnus() Profile {
	return Profile{
		Role:      types.RoleAlumnus,
		Gender:    "male",
		BatchYear: 2018,
		Course:    "ECE",
		Status:    "employed",
	}
}

func TestValidateProfileAcceptsValidRoles(t *testing.T) {
	for _, p := range []Profile{validStudent(), validAlumnus(), {Role: types.RoleAdmin}} {
		if err := ValidateProfile(p, validationNow); err != nil {
			t.Errorf("role %s: unexpected error: %v", p.Role, err)
		}
	}
}

func TestValidateProfileRejectsFutureEnrollmentYear(t *testing.T) {
	p := validStudent()
	p.EnrollmentYear = validationNow.Year() + 1

	err := ValidateProfile(p, validationNow)
	if err == nil {
		t.Fatal("expected error for future enrollment year")
	}
	if err.Error() != "Invalid enrollment year" {
		t.Errorf("error = %q, want %q", err.Error(), "Invalid enrollment year")
	}
}

func TestValidateProfileBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"enrollment before 1900", func(p *Profile) { p.EnrollmentYear = 1899 }},
		{"current year zero", func(p *Profile) { p.CurrentYear = 0 }},
		{"current year seven", func(p *Profile) { p.CurrentYear = 7 }},
		{"missing course", func(p *Profile) { p.Course = " " }},
		{"missing roll number", func(p *Profile) { p.RollNumber = "" }},
		{"missing gender", func(p *Profile) { p.Gender = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validStudent()
			tt.mutate(&p)
			if err := ValidateProfile(p, validationNow); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateProfileAlumnusFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"missing status", func(p *Profile) { p.Status = "" }},
		{"future batch year", func(p *Profile) { p.BatchYear = validationNow.Year() + 1 }},
		{"missing course", func(p *Profile) { p.Course = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validAlumnus()
			tt.mutate(&p)
			if err := ValidateProfile(p, validationNow); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateProfileRejectsUnknownRole(t *testing.T) {
	if err := ValidateProfile(Profile{Role: "superuser"}, validationNow); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestApplySetsOnlyOwnRoleFields(t *testing.T) {
	var user types.User
	validStudent().Apply(&user)

	if user.Role != types.RoleStudent {
		t.Errorf("role = %q", user.Role)
	}
	if user.EnrollmentYear == nil || *user.EnrollmentYear != 2024 {
		t.Error("enrollment year not applied")
	}
	if user.BatchYear != nil || user.Status != nil {
		t.Error("alumnus fields leaked into student profile")
	}
}
