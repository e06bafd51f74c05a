package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"onboarding/api/internal/app"
	"onboarding/api/internal/blob"
	"onboarding/api/internal/catalog"
	"onboarding/api/internal/config"
	"onboarding/api/internal/export"
	"onboarding/api/internal/metrics"
	"onboarding/api/internal/search"
	"onboarding/api/internal/session"
	"onboarding/api/internal/store"
)

var version = "dev"

type options struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "onboarding-api",
		Short:         "Company onboarding profile API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(cmd.ErrOrStderr(), opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file applied over environment settings")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				if err := serve(ctx, cfg); err != nil {
					slog.Error("server stopped", "error", err)
					return err
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate-catalog [file...]",
			Short: "Print catalogue consistency warnings",
			Long:  "Validates the configured catalogue, or only the given files. Warnings never fail the command.",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				warnings, err := catalogWarnings(cfg, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, warning := range warnings {
					fmt.Fprintf(out, "WARN %s\n", warning)
				}
				fmt.Fprintf(out, "%d warning(s)\n", len(warnings))
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func setupLogger(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Load()
	if strings.TrimSpace(path) != "" {
		overlaid, err := config.Overlay(cfg, path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = overlaid
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadCatalog reads the catalogue, builds the registry and installs it as
// the process-wide default.
func loadCatalog(cfg config.Config) (*catalog.Registry, error) {
	var (
		schemas []*catalog.Schema
		err     error
	)
	if cfg.Catalog.Dir != "" {
		schemas, err = catalog.LoadDir(cfg.Catalog.Dir, cfg.Catalog.Pattern)
	} else {
		schemas, err = catalog.LoadEmbedded()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}
	registry, err := catalog.NewRegistry(schemas, cfg.Catalog.Fallback, catalog.ValidateOptions{
		ExpectedQuestionTotal: cfg.Catalog.QuestionTotal,
	})
	if err != nil {
		return nil, fmt.Errorf("build catalogue registry: %w", err)
	}
	if err := catalog.Install(registry); err != nil {
		return nil, err
	}
	for _, v := range registry.Versions() {
		warnings := registry.Warnings(v)
		if len(warnings) == 0 {
			continue
		}
		slog.Warn("catalogue has warnings", "version", v, "count", len(warnings), "first", warnings[0])
		for _, warning := range warnings {
			slog.Debug("catalogue warning", "version", v, "warning", warning)
		}
	}
	return registry, nil
}

func catalogWarnings(cfg config.Config, files []string) ([]string, error) {
	opts := catalog.ValidateOptions{ExpectedQuestionTotal: cfg.Catalog.QuestionTotal}
	if len(files) == 0 {
		registry, err := loadCatalog(cfg)
		if err != nil {
			return nil, err
		}
		return registry.AllWarnings(), nil
	}
	schemas := make([]*catalog.Schema, 0, len(files))
	for _, file := range files {
		schema, err := catalog.LoadFile(file)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return catalog.ValidateAll(schemas, opts), nil
}

type dataStore interface {
	app.DataStore
	Close() error
}

func openStore(ctx context.Context, cfg config.Config) (dataStore, error) {
	if cfg.Backend == config.BackendSQLite {
		slog.Info("using sqlite store", "path", cfg.SQLitePath)
		return store.OpenSQLite(cfg.SQLitePath)
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return store.NewPostgresStore(db), nil
}

func serve(ctx context.Context, cfg config.Config) error {
	registry, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	data, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer data.Close()

	deps := app.Deps{Catalog: registry, Metrics: metrics.New()}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		slog.Info("using redis for refresh sessions")
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)
	schemas := make([]*catalog.Schema, 0, len(registry.Versions()))
	for _, v := range registry.Versions() {
		schema, _ := registry.Exact(v)
		schemas = append(schemas, schema)
	}
	searchService.IndexSchemas(schemas)
	deps.Search = searchService

	if cfg.Minio.Endpoint != "" {
		minioStore, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Secure:    cfg.Minio.Secure,
		})
		if err != nil {
			return fmt.Errorf("minio connection failed: %w", err)
		}
		deps.Blobs = minioStore
	} else {
		slog.Warn("minio endpoint not set, documents are kept in memory")
	}
	deps.Export = export.NewService(export.PDFRenderer{ExecPath: cfg.ChromePath})

	service := app.New(cfg, data, deps)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("onboarding api listening", "addr", cfg.Addr, "version", version, "backend", cfg.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
