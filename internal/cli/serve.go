package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/extract"
	"github.com/taskdeck/taskdeck/internal/pdftext"
	"github.com/taskdeck/taskdeck/internal/project"
	"github.com/taskdeck/taskdeck/internal/store"
)

var (
	serveConfigPath string
	serveListen     string
	serveDBPath     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath)
		if err != nil {
			return err
		}
		if serveListen != "" {
			cfg.Listen = serveListen
		}
		if serveDBPath != "" {
			cfg.Database.Path = serveDBPath
		}

		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "taskdeck",
		})

		st, err := store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		server := api.NewServer(api.Deps{
			Service:   project.NewService(st, logger),
			Extractor: extract.NewClient(cfg.Extraction.Endpoint, cfg.Extraction.APIKey, cfg.Extraction.Timeout()),
			PDFText:   pdftext.NewExtractor(),
			Auth:      api.NewTokenAuth(cfg.Auth.Tokens),
			Logger:    logger,
		})

		httpServer := &http.Server{
			Addr:              cfg.Listen,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Listen, "db", cfg.Database.Path)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "sqlite database path (overrides config)")
}
