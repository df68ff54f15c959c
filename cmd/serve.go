package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves device enumeration, selections and profiles over HTTP:

  GET    /api/v1/devices
  GET    /api/v1/selections          POST /api/v1/selections {"filters": [...]}
  GET    /api/v1/selections/{id}     DELETE /api/v1/selections/{id}
  GET    /api/v1/profiles            GET|DELETE /api/v1/profiles/{name}
  GET    /api/v1/registry
  GET    /api/v1/events              (server-sent events)

Selections hold their devices until deleted or until the server stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	addr := c.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	session, done, err := openSession()
	if err != nil {
		return err
	}
	defer done()

	st, err := openStore()
	if err != nil {
		return err
	}

	srv := server.NewServer(addr, session,
		server.WithProfiles(st),
		server.WithDefaultFilters(c.Select.Filters),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
		return err
	}
	return nil
}
