package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tuition/internal/config"
	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/pipeline"
	"github.com/roach88/tuition/internal/resolve"
	"github.com/roach88/tuition/internal/store"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// setupLogging installs the default slog logger: text to stderr, debug
// level with --verbose.
func setupLogging(opts *RootOptions, cmd *cobra.Command) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig merges settings and applies the --db override.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config, opts.DotEnv)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

func openStore(path string) (*store.Store, error) {
	slog.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newFeed returns the feed client, or a nil Feed when no URL is configured
// so the pipeline reports the missing URL itself.
func newFeed(cfg config.Config) pipeline.Feed {
	fc, err := cfg.FeedConfig()
	if errors.Is(err, config.ErrMissingFeedURL) {
		slog.Warn("feed URL is not configured", "env", config.EnvFeedURL)
		return nil
	}
	if fc.ClientID == "" && fc.ClientSecret == "" {
		slog.Warn("feed credentials are not configured, requesting unauthenticated",
			"env_id", config.EnvClientID, "env_secret", config.EnvClientSecret)
	}
	return feed.New(fc)
}

func pipelineOptions(opts *RootOptions, cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Lease:        cfg.Worker.Lease,
		PollInterval: cfg.Worker.PollInterval,
		Now:          opts.now,
		IDs:          opts.IDs,
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context ends.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// loadCatalog builds the program catalog either from a snapshot file or
// from the active records of the current and next academic years.
func loadCatalog(ctx context.Context, opts *RootOptions, snapshotPath string) (*resolve.Catalog, resolve.Years, error) {
	if snapshotPath != "" {
		return readSnapshot(snapshotPath)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, resolve.Years{}, err
	}
	years, err := cfg.Years(opts.now())
	if err != nil {
		return nil, resolve.Years{}, WrapExitError(ExitCommandError, "invalid academic year setting", err)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, resolve.Years{}, err
	}
	defer closeStore(st)

	records, err := st.ListActive(ctx, years.Current.String(), years.Next.String())
	if err != nil {
		return nil, resolve.Years{}, WrapExitError(ExitFailure, "failed to read rates", err)
	}
	catalog := resolve.BuildCatalog(records)
	slog.Debug("catalog loaded", "records", len(records), "programs", catalog.Len(),
		"current", years.Current.String(), "next", years.Next.String())
	return catalog, years, nil
}

func readSnapshot(path string) (*resolve.Catalog, resolve.Years, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resolve.Years{}, WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	var snap resolve.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, resolve.Years{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid snapshot %s", path), err)
	}
	years, err := snap.Years()
	if err != nil {
		return nil, resolve.Years{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid snapshot %s", path), err)
	}
	if snap.Programs == nil {
		snap.Programs = resolve.BuildCatalog(nil)
	}
	return snap.Programs, years, nil
}
