package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	echoportal "github.com/trezcool/masomo-portal/apps/portal/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/storage/keystore"
)

func newServeCmd(c *dig.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal screens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Invoke(serve)
		},
	}
}

func serve(
	conf *core.Config,
	logger core.Logger,
	ks *keystore.Keystore,
	store *session.Store,
	server *echoportal.Server,
) error {
	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Portal initializing : version %q, %s keystore", conf.Build, ks.Driver))
	defer func() {
		if err := ks.Close(); err != nil {
			logger.Error("Failed to close keystore", err)
		}
	}()
	defer logger.Info("Portal stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("keystore").Set(ks.Driver)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Restore Session
	//
	// Screens show a loading page until the persisted session is validated.

	restored := restoreSession(context.Background(), store, logger)
	defer func() {
		// the keystore is closed after this
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		select {
		case <-restored:
		case <-ctx.Done():
			logger.Info("session restore still running at shutdown")
		}
	}()

	// =========================================================================
	// Start Portal Service

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		return err

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				return err
			}
		}
	}
	return nil
}

// restoreSession validates the persisted session in the background and closes the returned
// channel when done. The check ignores cancellation of ctx: an aborted /auth/me call counts
// as a failed restore, which would clear a valid session. The API client timeout bounds it.
func restoreSession(ctx context.Context, store *session.Store, logger core.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		snap := store.Restore(context.WithoutCancel(ctx))
		logger.Info(fmt.Sprintf("session %s", snap.Status), snap.User())
	}()
	return done
}
