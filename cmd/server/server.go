// Package server holds the server-mode command: REST API, MCP endpoint
// and the periodic roster/device reconcile.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paularlott/cli"
	"github.com/robfig/cron/v3"

	"github.com/martinsuchenak/wgprov/internal/api"
	"github.com/martinsuchenak/wgprov/internal/config"
	"github.com/martinsuchenak/wgprov/internal/log"
	"github.com/martinsuchenak/wgprov/internal/mcpserver"
	"github.com/martinsuchenak/wgprov/internal/provision"
	"github.com/martinsuchenak/wgprov/internal/storage"
)

// Command returns the server command
func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Run the provisioning server",
		Description: "Serve the REST API and MCP endpoint and reconcile the roster against the device on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address (e.g. :8080)",
				EnvVars: []string{"WGPROV_LISTEN_ADDR"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for API and MCP authentication",
				EnvVars: []string{"WGPROV_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Roster database directory",
				EnvVars: []string{"WGPROV_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "reconcile",
				Usage:   "Cron spec for the reconcile pass (e.g. @every 5m)",
				EnvVars: []string{"WGPROV_RECONCILE"},
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(&config.Config{
				ListenAddr:    cmd.GetString("addr"),
				BearerToken:   cmd.GetString("token"),
				DataDir:       cmd.GetString("data-dir"),
				ReconcileSpec: cmd.GetString("reconcile"),
			})
			log.Info("configuration loaded", "source", cfg.String())

			store, err := storage.NewSQLiteStorage(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info("roster initialized", "data_dir", cfg.DataDir)

			prov := provision.New(cfg, store)

			apiHandler := api.NewHandler(store, prov)
			mcpServer := mcpserver.NewServer(store, prov, cfg.BearerToken)

			mux := http.NewServeMux()
			apiHandler.RegisterRoutes(mux)
			mux.HandleFunc("/mcp", mcpServer.GetHTTPHandler())

			var handler http.Handler = mux
			if cfg.IsAuthEnabled() {
				handler = api.AuthMiddleware(cfg.BearerToken, handler)
			}
			handler = api.SecurityHeadersMiddleware(handler)

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(cfg.ReconcileSpec, func() {
				if err := prov.Reconcile(context.Background()); err != nil {
					log.Warn("reconcile pass failed", "error", err)
				}
			}); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			log.Info("reconcile scheduled", "spec", cfg.ReconcileSpec)

			server := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: handler,
			}

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
				select {
				case <-sigChan:
				case <-ctx.Done():
				}
				log.Info("shutting down server")
				server.Close()
			}()

			log.Info("starting server", "addr", cfg.ListenAddr)
			if cfg.IsAuthEnabled() {
				log.Info("API authentication enabled")
			}
			mcpServer.LogStartup()

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}

			log.Info("server stopped")
			return nil
		},
	}
}
