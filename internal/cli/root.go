// Package cli is the medapp command line client. Every invocation restores the
// persisted session, runs one command and exits.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jrsteele09/go-medapp/gate"
	"github.com/jrsteele09/go-medapp/internal/app"
	"github.com/jrsteele09/go-medapp/internal/config"
	"github.com/jrsteele09/go-medapp/internal/logging"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	ErrSignInRequired = errors.New("please sign in first (medapp login)")
	ErrRoleNotAllowed = errors.New("not available for your role")
)

type runtime struct {
	configFile string
	verbose    bool
	cfg        config.Config
	app        *app.App
	logger     zerolog.Logger
}

// NewRootCommand builds the medapp command tree
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "medapp",
		Short:         "MedApp telemedicine client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&rt.configFile, "config", "", "path to a config file")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "log requests and session changes")

	root.AddCommand(
		loginCmd(rt),
		registerCmd(rt),
		logoutCmd(rt),
		whoamiCmd(rt),
		statusCmd(rt),
		doctorsCmd(rt),
		appointmentsCmd(rt),
		patientsCmd(rt),
		videosCmd(rt),
		symptomsCmd(rt),
	)
	return root
}

// Execute runs the command tree against os.Args and returns the process exit code
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

// open loads configuration and restores the persisted session
func (rt *runtime) open(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.New(rt.configFile)
	if err != nil {
		return err
	}
	rt.cfg = cfg

	level := "warn"
	if rt.verbose {
		level = "debug"
	}
	rt.logger = logging.SetupWriter(stderr, level, true)

	store, err := app.NewStore(cfg, token.MobileKey)
	if err != nil {
		return err
	}
	if rt.app, err = app.New(cfg, store, rt.logger); err != nil {
		return err
	}

	if err := rt.app.Session.Restore(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("saved session is no longer valid")
	}
	return nil
}

// require applies the same gate the portal uses to the restored session
func (rt *runtime) require(roles ...users.Role) (*users.User, error) {
	out := gate.Require(roles...).Evaluate(rt.app.Session.Snapshot())
	switch out.Decision {
	case gate.Render:
		return out.User, nil
	case gate.RedirectHome:
		return nil, ErrRoleNotAllowed
	case gate.Wait:
		return nil, errors.New(gate.WaitMessage)
	default:
		return nil, ErrSignInRequired
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
