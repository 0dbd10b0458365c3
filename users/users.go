package users

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role is the closed set of account roles known to the backend
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Roles lists every Role value.
var Roles = []Role{RoleDoctor, RolePatient, RoleAdmin}

// ParseRole converts s into a Role, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalText keeps unknown roles from entering the client
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// DoctorProfile holds the doctor specific part of a User
type DoctorProfile struct {
	Speciality      string `json:"speciality,omitempty"`
	ExperienceYears int    `json:"experienceYears,omitempty"`
	LicenseNumber   string `json:"licenseNumber,omitempty"`
	ClinicName      string `json:"clinicName,omitempty"`
	City            string `json:"city,omitempty"`
	Bio             string `json:"bio,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	ConsultationFee int    `json:"consultationFee,omitempty"`
}

// PatientProfile holds the patient specific part of a User
type PatientProfile struct {
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	BloodType         string     `json:"bloodType,omitempty"`
	Allergies         string     `json:"allergies,omitempty"`
	ChronicConditions string     `json:"chronicConditions,omitempty"`
	EmergencyContact  string     `json:"emergencyContact,omitempty"`
}

type User struct {
	ID             uint            `json:"id"`                       // Backend identifier, immutable
	FullName       string          `json:"fullName"`                 // Display name
	Email          string          `json:"email"`                    // Login email
	Phone          string          `json:"phone,omitempty"`          // Optional contact number
	Role           Role            `json:"role"`                     // Fixed for the lifetime of a session
	DoctorProfile  *DoctorProfile  `json:"doctorProfile,omitempty"`  // Set for doctors
	PatientProfile *PatientProfile `json:"patientProfile,omitempty"` // Set for patients
}

// HasRole reports whether the user holds one of roles. An empty list matches any user.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, u.Role)
}

func (u *User) IsDoctor() bool {
	return u != nil && u.Role == RoleDoctor
}

func (u *User) IsPatient() bool {
	return u != nil && u.Role == RolePatient
}

// Clone returns a deep copy so callers can't mutate session state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.DoctorProfile != nil {
		dp := *u.DoctorProfile
		c.DoctorProfile = &dp
	}
	if u.PatientProfile != nil {
		pp := *u.PatientProfile
		if pp.DateOfBirth != nil {
			dob := *pp.DateOfBirth
			pp.DateOfBirth = &dob
		}
		c.PatientProfile = &pp
	}
	return &c
}

// Summary is the trimmed user shape embedded in other resources
type Summary struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
}
