package auth

import (
	"time"

	"github.com/jrsteele09/go-medapp/users"
)

// Credentials is the body of POST /auth/login
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DoctorDetails is the doctor part of a registration.
// Speciality and LicenseNumber are required when registering a doctor.
type DoctorDetails struct {
	Speciality      string `json:"speciality" validate:"required"`
	LicenseNumber   string `json:"licenseNumber" validate:"required"`
	ExperienceYears int    `json:"experienceYears,omitempty" validate:"gte=0"`
	ClinicName      string `json:"clinicName,omitempty"`
	City            string `json:"city,omitempty"`
	Bio             string `json:"bio,omitempty"`
	ConsultationFee int    `json:"consultationFee,omitempty"`
}

// PatientDetails is the optional patient part of a registration
type PatientDetails struct {
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `json:"gender,omitempty"`
	BloodType         string     `json:"bloodType,omitempty"`
	Allergies         string     `json:"allergies,omitempty"`
	ChronicConditions string     `json:"chronicConditions,omitempty"`
	EmergencyContact  string     `json:"emergencyContact,omitempty"`
}

// RegisterPayload is the body of POST /auth/register
type RegisterPayload struct {
	FullName       string          `json:"fullName" validate:"required"`
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=6"`
	Phone          string          `json:"phone,omitempty"`
	Role           users.Role      `json:"role" validate:"oneof=doctor patient"`
	DoctorProfile  *DoctorDetails  `json:"doctorProfile,omitempty" validate:"-"`
	PatientProfile *PatientDetails `json:"patientProfile,omitempty" validate:"-"`
}

// authResponse is returned by login and register
type authResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType,omitempty"`
	ExpiresIn int64       `json:"expiresIn,omitempty"`
	User      *users.User `json:"user"`
}

type meResponse struct {
	User *users.User `json:"user"`
}
