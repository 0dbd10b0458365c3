package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-medapp/internal/app"
	"github.com/jrsteele09/go-medapp/internal/config"
	"github.com/jrsteele09/go-medapp/internal/logging"
	"github.com/jrsteele09/go-medapp/server"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	var configFile string
	cmd := &cobra.Command{
		Use:          "portal",
		Short:        "Serve the MedApp session portal",
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a config file")

	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("portal stopped")
	}
	log.Info().Msg("portal stopped")
}

func run(configFile string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New(configFile)
	if err != nil {
		return err
	}
	logger := logging.Setup(c.GetLogLevel(), c.IsDev())
	displayAppname(c.GetAppName())

	store, err := app.NewStore(c, token.WebKey)
	if err != nil {
		return err
	}
	a, err := app.New(c, store, logger)
	if err != nil {
		return err
	}

	handler, err := server.New(c, a.Session, server.Services{
		Appointments: a.Appointments,
		Directory:    a.Directory,
		Patients:     a.Patients,
		Videos:       a.Videos,
		Symptoms:     a.Symptoms,
	}, server.WithLogger(logger))
	if err != nil {
		return err
	}

	// Restore in the background; gated routes answer 202 until it completes
	go restore(a, logger, c.GetHTTPTimeout())

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(srv, logger)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func restore(a *app.App, logger zerolog.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Session.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("persisted session could not be restored")
		return
	}
	if snap := a.Session.Snapshot(); snap.User != nil {
		logger.Info().Str("email", snap.User.Email).Str("role", snap.User.Role.String()).Msg("session restored")
	}
}

func listenAndServe(srv *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", srv.Addr).Msg("portal listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
