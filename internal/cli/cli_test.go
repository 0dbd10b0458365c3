package cli_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jrsteele09/go-medapp/internal/cli"
	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/fakebackend"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/stretchr/testify/require"
)

const password = "secret12"

type cliFixture struct {
	backend    *fakebackend.Backend
	configFile string
	dir        string
	doctor     users.User
	patient    users.User
}

func setupCLI(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{backend: fakebackend.New(t), dir: t.TempDir()}
	f.doctor = f.backend.AddUser(users.User{
		FullName:      "Greg House",
		Email:         "house@example.com",
		Role:          users.RoleDoctor,
		DoctorProfile: &users.DoctorProfile{Speciality: "Diagnostics", City: "Princeton", ConsultationFee: 150},
	}, password)
	f.patient = f.backend.AddUser(users.User{FullName: "Pat Smith", Email: "pat@example.com", Role: users.RolePatient}, password)

	f.configFile = filepath.Join(f.dir, "config.yaml")
	yaml := fmt.Sprintf("env: TEST\napi_url: %s\nupload_url: %s\ntoken_dir: %s\n",
		f.backend.URL(), f.backend.AssetURL(), filepath.Join(f.dir, "tokens"))
	require.NoError(t, os.WriteFile(f.configFile, []byte(yaml), 0o600))
	return f
}

// run executes one medapp invocation, as a separate process would
func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := cli.NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", f.configFile}, args...))
	err := root.Execute()
	return out.String(), err
}

func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.run(t, args...)
	require.NoError(t, err, "medapp %v", args)
	return out
}

func TestCLI_SessionLifecycle(t *testing.T) {
	f := setupCLI(t)

	require.Contains(t, f.mustRun(t, "status"), "unauthenticated")
	_, err := f.run(t, "whoami")
	require.ErrorIs(t, err, cli.ErrSignInRequired)

	t.Run("bad password", func(t *testing.T) {
		_, err := f.run(t, "login", "--email", "pat@example.com", "--password", "nope-nope")
		require.ErrorIs(t, err, apperrors.ErrAuth)
	})

	out := f.mustRun(t, "login", "--email", "pat@example.com", "--password", password)
	require.Equal(t, "Signed in as Pat Smith (patient)\n", out)

	out = f.mustRun(t, "whoami")
	require.Contains(t, out, "pat@example.com")
	require.Contains(t, out, "patient")

	out = f.mustRun(t, "status")
	require.Contains(t, out, "authenticated")
	require.Contains(t, out, "Expires")

	require.Equal(t, "Signed out\n", f.mustRun(t, "logout"))
	_, err = f.run(t, "whoami")
	require.ErrorIs(t, err, cli.ErrSignInRequired)
}

func TestCLI_Register(t *testing.T) {
	f := setupCLI(t)

	_, err := f.run(t, "register", "--name", "Dr New", "--email", "new@example.com", "--password", password, "--role", "doctor")
	var fe apperrors.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe, "doctorProfile.licenseNumber")

	_, err = f.run(t, "register", "--name", "X", "--email", "x@example.com", "--password", password, "--role", "nurse")
	require.Error(t, err)

	out := f.mustRun(t, "register", "--name", "Dr New", "--email", "new@example.com", "--password", password,
		"--role", "doctor", "--speciality", "Cardiology", "--license", "LIC-1")
	require.Contains(t, out, "signed in as a doctor")
	require.Contains(t, f.mustRun(t, "whoami"), "Cardiology")
}

func TestCLI_PatientFlow(t *testing.T) {
	f := setupCLI(t)
	f.mustRun(t, "login", "--email", "pat@example.com", "--password", password)

	out := f.mustRun(t, "doctors")
	require.Contains(t, out, "Greg House")
	require.Contains(t, out, "Diagnostics")

	at := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	out = f.mustRun(t, "appointments", "book", "--doctor", strconv.Itoa(int(f.doctor.ID)), "--at", at, "--reason", "check up")
	require.Contains(t, out, "Booked appointment")

	out = f.mustRun(t, "appointments", "list")
	require.Contains(t, out, "Greg House")
	require.Contains(t, out, "pending")

	t.Run("past bookings are rejected locally", func(t *testing.T) {
		past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
		_, err := f.run(t, "appointments", "book", "--doctor", strconv.Itoa(int(f.doctor.ID)), "--at", past)
		var fe apperrors.FieldErrors
		require.ErrorAs(t, err, &fe)
		require.Contains(t, fe, "scheduledAt")
	})

	out = f.mustRun(t, "symptoms", "check", "--fever", "--cough")
	require.Contains(t, out, "Likely influenza (82% confidence)")
	require.Contains(t, out, "appointments book")

	t.Run("doctor commands are refused", func(t *testing.T) {
		for _, args := range [][]string{
			{"patients", "list"},
			{"patients", "diseases"},
			{"patients", "assign", "1"},
			{"videos", "upload", "clip.mp4", "--title", "x"},
		} {
			_, err := f.run(t, args...)
			require.ErrorIs(t, err, cli.ErrRoleNotAllowed, "%v", args)
		}
	})
}

func TestCLI_DoctorFlow(t *testing.T) {
	f := setupCLI(t)
	f.mustRun(t, "login", "--email", "house@example.com", "--password", password)
	patientID := strconv.Itoa(int(f.patient.ID))

	require.NotContains(t, f.mustRun(t, "patients", "list"), "Pat Smith")
	require.Contains(t, f.mustRun(t, "patients", "list", "--filter", "all"), "Pat Smith")

	require.Equal(t, "Patient "+patientID+" assigned\n", f.mustRun(t, "patients", "assign", patientID))
	require.Contains(t, f.mustRun(t, "patients", "list"), "Pat Smith")

	out := f.mustRun(t, "patients", "diseases")
	require.Contains(t, out, "Diabetes")
	require.Contains(t, out, "Asthma")

	out = f.mustRun(t, "patients", "medical-info", patientID, "--gender", "Female", "--age-group", "36-50", "--disease", "1", "--disease", "3")
	require.Contains(t, out, "Diabetes, Asthma")

	_, err := f.run(t, "patients", "medical-info", patientID, "--gender", "Unknown", "--age-group", "36-50")
	var fe apperrors.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe, "gender")

	_, err = f.run(t, "patients", "assign", "abc")
	require.Error(t, err)

	t.Run("booking is for patients", func(t *testing.T) {
		at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		_, err := f.run(t, "appointments", "book", "--doctor", "1", "--at", at)
		require.ErrorIs(t, err, cli.ErrRoleNotAllowed)
	})
}

func TestCLI_Videos(t *testing.T) {
	f := setupCLI(t)
	clip := filepath.Join(f.dir, "stretch.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("frames"), 0o600))

	_, err := f.run(t, "videos", "upload", clip, "--title", "Stretching")
	require.ErrorIs(t, err, cli.ErrSignInRequired)

	f.mustRun(t, "login", "--email", "house@example.com", "--password", password)
	out := f.mustRun(t, "videos", "upload", clip, "--title", "Stretching")
	require.Contains(t, out, f.backend.AssetURL()+"/uploads/stretch.mp4")

	f.mustRun(t, "logout")
	out = f.mustRun(t, "videos", "list")
	require.Contains(t, out, "Stretching")
}

func TestCLI_RevokedTokenSignsOut(t *testing.T) {
	f := setupCLI(t)
	f.mustRun(t, "login", "--email", "pat@example.com", "--password", password)

	f.backend.Fail("GET /auth/me", 401)
	_, err := f.run(t, "whoami")
	require.ErrorIs(t, err, cli.ErrSignInRequired)

	f.backend.Recover("GET /auth/me")
	_, err = f.run(t, "whoami")
	require.ErrorIs(t, err, cli.ErrSignInRequired)
}

func TestCLI_CorruptTokenFileStartsSignedOut(t *testing.T) {
	f := setupCLI(t)
	tokens := filepath.Join(f.dir, "tokens")
	require.NoError(t, os.MkdirAll(tokens, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(tokens, "MEDAPP_TOKEN.json"), []byte("{garbage"), 0o600))

	require.Contains(t, f.mustRun(t, "status"), "unauthenticated")
	require.Equal(t, "Signed in as Pat Smith (patient)\n",
		f.mustRun(t, "login", "--email", "pat@example.com", "--password", password))
	require.Contains(t, f.mustRun(t, "whoami"), "pat@example.com")
}
