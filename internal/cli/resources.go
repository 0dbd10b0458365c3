package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-medapp/appointments"
	"github.com/jrsteele09/go-medapp/internal/utils"
	"github.com/jrsteele09/go-medapp/patients"
	"github.com/jrsteele09/go-medapp/symptoms"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/jrsteele09/go-medapp/videos"
	"github.com/spf13/cobra"
)

const timeLayout = "Mon 02 Jan 15:04"

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func doctorsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "doctors",
		Short: "List doctors available for booking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(); err != nil {
				return err
			}
			list, err := rt.app.Directory.Doctors(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tSPECIALITY\tCITY\tFEE")
			for _, d := range list {
				var speciality, city, fee string
				if p := d.DoctorProfile; p != nil {
					speciality, city = p.Speciality, p.City
					if p.ConsultationFee > 0 {
						fee = strconv.Itoa(p.ConsultationFee)
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.FullName, speciality, city, fee)
			}
			return w.Flush()
		},
	}
}

func appointmentsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appts"},
		Short:   "List, book and update appointments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := rt.require()
			if err != nil {
				return err
			}
			appts, err := rt.app.Appointments.List(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tWHEN\tMIN\tWITH\tSTATUS\tREASON")
			for _, a := range appts {
				with := a.Doctor
				if me.IsDoctor() {
					with = a.Patient
				}
				name := ""
				if with != nil {
					name = with.FullName
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					a.ID, a.ScheduledAt.Local().Format(timeLayout), a.DurationMin, name, a.Status, a.Reason)
			}
			return w.Flush()
		},
	}

	var (
		req appointments.BookRequest
		at  string
	)
	book := &cobra.Command{
		Use:   "book",
		Short: "Book a consultation with a doctor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RolePatient); err != nil {
				return err
			}
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("--at must be an RFC3339 time such as 2026-01-02T15:04:00Z: %w", err)
			}
			req.ScheduledAt = when

			a, err := rt.app.Appointments.Book(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booked appointment %d for %s (%s)\n",
				a.ID, a.ScheduledAt.Local().Format(timeLayout), a.Status)
			return nil
		},
	}
	book.Flags().UintVar(&req.DoctorID, "doctor", 0, "doctor id (see medapp doctors)")
	book.Flags().StringVar(&at, "at", "", "start time, RFC3339")
	book.Flags().IntVar(&req.DurationMin, "duration", appointments.DefaultDurationMin, "length in minutes")
	book.Flags().StringVar(&req.Reason, "reason", "", "reason for the visit")

	var notes string
	status := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Change an appointment's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := appointments.ParseStatus(args[1])
			if err != nil {
				return err
			}
			var n *string
			if cmd.Flags().Changed("notes") {
				n = utils.Ptr(notes)
			}
			a, err := rt.app.Appointments.UpdateStatus(cmd.Context(), id, st, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %d is now %s\n", a.ID, a.Status)
			return nil
		},
	}
	status.Flags().StringVar(&notes, "notes", "", "consultation notes")

	cmd.AddCommand(list, book, status)
	return cmd
}

func patientsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Manage patient records (doctors only)",
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RoleDoctor); err != nil {
				return err
			}
			f, err := patients.ParseFilter(filter)
			if err != nil {
				return err
			}
			list, err := rt.app.Patients.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tGENDER\tAGE\tDISEASES")
			for _, p := range list {
				var gender, age string
				if mi := p.MedicalInfo; mi != nil {
					gender, age = mi.Gender, mi.AgeGroup
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.FullName, p.Email, gender, age, strings.Join(p.MedicalInfo.DiseaseNames(), ", "))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&filter, "filter", string(patients.FilterMy), "my or all")

	diseases := &cobra.Command{
		Use:   "diseases",
		Short: "List the disease catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RoleDoctor); err != nil {
				return err
			}
			list, err := rt.app.Patients.Diseases(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY")
			for _, d := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\n", d.ID, d.Name, d.Category)
			}
			return w.Flush()
		},
	}

	assign := &cobra.Command{
		Use:   "assign PATIENT_ID",
		Short: "Assign a patient to yourself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RoleDoctor); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := rt.app.Patients.Assign(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patient %d assigned\n", id)
			return nil
		},
	}

	var info patients.MedicalInfoRequest
	medical := &cobra.Command{
		Use:   "medical-info PATIENT_ID",
		Short: "Replace a patient's medical information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RoleDoctor); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			mi, err := rt.app.Patients.UpdateMedicalInfo(cmd.Context(), id, info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Medical information for patient %d saved: %s, %s, %s\n",
				id, mi.Gender, mi.AgeGroup, strings.Join(mi.DiseaseNames(), ", "))
			return nil
		},
	}
	medical.Flags().StringVar(&info.Gender, "gender", "", strings.Join(patients.Genders, ", "))
	medical.Flags().StringVar(&info.AgeGroup, "age-group", "", strings.Join(patients.AgeGroups, ", "))
	medical.Flags().UintSliceVar(&info.DiseaseIDs, "disease", nil, "disease id, repeatable")

	cmd.AddCommand(list, diseases, assign, medical)
	return cmd
}

func videosCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Browse and upload education videos",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List public videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := rt.app.Videos.List(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tTITLE\tURL")
			for _, v := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.Title, v.FileURL)
			}
			return w.Flush()
		},
	}

	var req videos.UploadRequest
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video (doctors and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(users.RoleDoctor, users.RoleAdmin); err != nil {
				return err
			}
			f, err := openFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			req.FileName, req.Content = args[0], f
			v, err := rt.app.Videos.Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q to %s\n", v.Title, v.FileURL)
			return nil
		},
	}
	upload.Flags().StringVar(&req.Title, "title", "", "video title")
	upload.Flags().StringVar(&req.Description, "description", "", "video description")

	cmd.AddCommand(list, upload)
	return cmd
}

func symptomsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "Symptom checker",
	}

	var in symptoms.Symptoms
	check := &cobra.Command{
		Use:   "check",
		Short: "Ask the triage model about your symptoms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.require(); err != nil {
				return err
			}
			p, err := rt.app.Symptoms.Check(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d%% confidence)\n", p.Prediction, p.Percent())
			if p.Likely() {
				fmt.Fprintln(cmd.OutOrStdout(), "Consider booking an appointment: medapp appointments book")
			}
			return nil
		},
	}
	check.Flags().BoolVar(&in.Fever, "fever", false, "you have a fever")
	check.Flags().BoolVar(&in.Cough, "cough", false, "you have a cough")
	check.Flags().BoolVar(&in.Headache, "headache", false, "you have a headache")

	cmd.AddCommand(check)
	return cmd
}
