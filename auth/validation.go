package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/validation"
	"github.com/jrsteele09/go-medapp/users"
)

// Validate performs the local checks of the sign in form
func (c Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	return validation.Struct(c)
}

// Validate performs the local checks of the registration form.
// Only doctors and patients can self register; a doctor must supply a speciality and licence number.
func (p RegisterPayload) Validate() error {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)

	fe := apperrors.FieldErrors{}
	if err := validation.Struct(p); err != nil && !apperrors.As(err, &fe) {
		return err
	}
	if _, bad := fe["role"]; bad {
		fe["role"] = "must be doctor or patient"
	}

	if p.Role == users.RoleDoctor {
		if p.DoctorProfile == nil {
			fe["doctorProfile"] = "is required for doctors"
		} else {
			doctor := *p.DoctorProfile
			doctor.Speciality = strings.TrimSpace(doctor.Speciality)
			doctor.LicenseNumber = strings.TrimSpace(doctor.LicenseNumber)

			nested := apperrors.FieldErrors{}
			if err := validation.Struct(doctor); err != nil && !apperrors.As(err, &nested) {
				return err
			}
			for field, msg := range nested {
				fe["doctorProfile."+field] = msg
			}
		}
	}

	if len(fe) > 0 {
		return fe
	}
	return nil
}
