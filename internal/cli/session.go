package cli

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-medapp/auth"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/spf13/cobra"
)

func loginCmd(rt *runtime) *cobra.Command {
	var creds auth.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := rt.app.Session.Login(cmd.Context(), creds.Email, creds.Password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", u.FullName, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	return cmd
}

func registerCmd(rt *runtime) *cobra.Command {
	var (
		payload auth.RegisterPayload
		role    string
		doctor  auth.DoctorDetails
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := users.ParseRole(role)
			if err != nil {
				return err
			}
			payload.Role = r
			if r == users.RoleDoctor {
				payload.DoctorProfile = &doctor
			}

			u, err := rt.app.Session.Register(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s, you are signed in as a %s\n", u.FullName, u.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&payload.FullName, "name", "", "full name")
	f.StringVar(&payload.Email, "email", "", "account email")
	f.StringVar(&payload.Password, "password", "", "password, at least 6 characters")
	f.StringVar(&payload.Phone, "phone", "", "contact number")
	f.StringVar(&role, "role", users.RolePatient.String(), "doctor or patient")
	f.StringVar(&doctor.Speciality, "speciality", "", "doctor speciality")
	f.StringVar(&doctor.LicenseNumber, "license", "", "doctor licence number")
	f.IntVar(&doctor.ExperienceYears, "experience", 0, "years of experience")
	f.StringVar(&doctor.ClinicName, "clinic", "", "clinic name")
	f.StringVar(&doctor.City, "city", "", "clinic city")
	f.IntVar(&doctor.ConsultationFee, "fee", 0, "consultation fee")
	return cmd
}

func logoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt.app.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := rt.require()
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "Name\t%s\n", u.FullName)
			fmt.Fprintf(w, "Email\t%s\n", u.Email)
			fmt.Fprintf(w, "Role\t%s\n", u.Role)
			if u.DoctorProfile != nil {
				fmt.Fprintf(w, "Speciality\t%s\n", u.DoctorProfile.Speciality)
			}
			return w.Flush()
		},
	}
}

func statusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and token expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := rt.app.Session.Snapshot()
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "API\t%s\n", rt.cfg.GetAPIURL())
			fmt.Fprintf(w, "State\t%s\n", snap.State)
			if snap.User != nil {
				fmt.Fprintf(w, "User\t%s <%s>\n", snap.User.FullName, snap.User.Email)
			}
			if snap.Token != "" {
				if claims, err := token.Inspect(snap.Token); err == nil && claims.ExpiresAt != nil {
					fmt.Fprintf(w, "Expires\t%s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
				}
			}
			return w.Flush()
		},
	}
}
