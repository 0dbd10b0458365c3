package auth_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-medapp/auth"
	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/stretchr/testify/require"
)

func validPatient() auth.RegisterPayload {
	return auth.RegisterPayload{
		FullName: "Jane Roe",
		Email:    "jane@example.com",
		Password: "secret123",
		Role:     users.RolePatient,
	}
}

func fieldErrors(t *testing.T, err error) apperrors.FieldErrors {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	var fe apperrors.FieldErrors
	require.True(t, errors.As(err, &fe))
	return fe
}

func TestRegisterPayload_Validate(t *testing.T) {
	t.Run("valid patient", func(t *testing.T) {
		require.NoError(t, validPatient().Validate())
	})

	t.Run("missing fields", func(t *testing.T) {
		fe := fieldErrors(t, auth.RegisterPayload{Role: users.RolePatient}.Validate())
		require.Contains(t, fe, "fullName")
		require.Contains(t, fe, "email")
		require.Contains(t, fe, "password")
	})

	t.Run("short password", func(t *testing.T) {
		p := validPatient()
		p.Password = "12345"
		fe := fieldErrors(t, p.Validate())
		require.Equal(t, "must be at least 6", fe["password"])
	})

	t.Run("invalid email", func(t *testing.T) {
		p := validPatient()
		p.Email = "jane-at-example"
		fe := fieldErrors(t, p.Validate())
		require.Equal(t, "must be a valid email address", fe["email"])
	})

	t.Run("admin cannot self register", func(t *testing.T) {
		p := validPatient()
		p.Role = users.RoleAdmin
		fe := fieldErrors(t, p.Validate())
		require.Contains(t, fe, "role")
	})

	t.Run("doctor requires a profile", func(t *testing.T) {
		p := validPatient()
		p.Role = users.RoleDoctor
		fe := fieldErrors(t, p.Validate())
		require.Contains(t, fe, "doctorProfile")

		p.DoctorProfile = &auth.DoctorDetails{ExperienceYears: -1}
		fe = fieldErrors(t, p.Validate())
		require.Contains(t, fe, "doctorProfile.speciality")
		require.Contains(t, fe, "doctorProfile.licenseNumber")
		require.Contains(t, fe, "doctorProfile.experienceYears")

		p.DoctorProfile = &auth.DoctorDetails{Speciality: "  ", LicenseNumber: "L-1"}
		fe = fieldErrors(t, p.Validate())
		require.Equal(t, "is required", fe["doctorProfile.speciality"])

		p.DoctorProfile = &auth.DoctorDetails{Speciality: "GP", LicenseNumber: "L-1"}
		require.NoError(t, p.Validate())
	})
}

func TestCredentials_Validate(t *testing.T) {
	require.NoError(t, auth.Credentials{Email: "a@b.co", Password: "x"}.Validate())

	fe := fieldErrors(t, auth.Credentials{}.Validate())
	require.Len(t, fe, 2)

	fe = fieldErrors(t, auth.Credentials{Email: "not-an-email", Password: "x"}.Validate())
	require.Equal(t, apperrors.FieldErrors{"email": "must be a valid email address"}, fe)
}

func TestFieldErrors_Error(t *testing.T) {
	err := apperrors.FieldErrors{"b": "second", "a": "first"}
	require.Equal(t, "validation failed: a: first; b: second", err.Error())
}
