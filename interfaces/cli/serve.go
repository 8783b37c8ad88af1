package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spconnect/application"
	"spconnect/infrastructure/factories"
	"spconnect/interfaces/web"
	"spconnect/logging"
)

const shutdownTimeout = 30 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	var (
		addr   string
		fsRoot string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway exposing files, lists and triggers as a JSON API.

Prometheus metrics are served on /metrics and the state store health on /health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			var httpLog io.Writer
			if a.cfg.HTTPLogPath != "" {
				logFile, err := os.OpenFile(a.cfg.HTTPLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err != nil {
					a.logger.Error("Failed to open HTTP log file", "error", err, "path", a.cfg.HTTPLogPath)
				} else {
					defer logFile.Close()
					httpLog = logFile
					a.logger.Info("HTTP request logging enabled", "path", a.cfg.HTTPLogPath)
				}
			}

			router := web.NewRouter(web.Dependencies{
				Health:       db,
				Client:       client,
				Gatherer:     a.registry,
				Logger:       a.logger,
				FileSystem:   application.NewFileSystemProvider(client, fsRoot, a.logger),
				Triggers:     application.NewTriggerService(client, factories.NewTriggerStateRepository(db), a.logger),
				ListDefaults: a.listDefaults(),
				HTTPLog:      httpLog,
			})
			return startServer(cmd.Context(), &http.Server{Addr: addr, Handler: router}, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HTTP_ADDR)")
	cmd.Flags().StringVar(&fsRoot, "fs-root", "", "Folder used as the file system root")
	return cmd
}

// startServer serves until a signal arrives or ctx ends, then drains requests.
func startServer(ctx context.Context, server *http.Server, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
