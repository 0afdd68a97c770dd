package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/hiconvert/internal/config"
	applog "github.com/runger/hiconvert/internal/log"
	"github.com/runger/hiconvert/internal/storage"
	"github.com/runger/hiconvert/internal/widget"
)

// session is the resolved runtime shared by the commands: configuration
// (user file, project file, environment, flags), the file logger and the
// optional history store.
type session struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
	store  *storage.SQLiteStore // nil when history is disabled or unavailable

	closers []io.Closer
}

// openSession loads configuration and opens the logger and history store.
// A broken log file or database degrades to no logging or no history.
func openSession(ctx context.Context) (*session, error) {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyOverrides(cfg); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, paths: paths, logger: applog.Discard()}

	level, err := applog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = paths.LogFile()
	}
	if logger, f, err := applog.OpenFile(logPath, level); err != nil {
		fmt.Fprintf(os.Stderr, "%sWarning:%s logging disabled: %v\n", colorYellow, colorReset, err)
	} else {
		s.logger = logger
		s.closers = append(s.closers, f)
	}

	if cfg.History.Enabled {
		store, err := storage.NewSQLiteStore(paths.DatabaseFile(), storage.WithLogger(s.logger))
		if err != nil {
			applog.LogSQLiteError(s.logger, "open", err)
			fmt.Fprintf(os.Stderr, "%sWarning:%s history disabled: %v\n", colorYellow, colorReset, err)
		} else {
			s.store = store
			retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
			if n, err := storage.Prune(ctx, store, retention, time.Now()); err != nil {
				applog.LogSQLiteError(s.logger, "prune", err)
			} else if n > 0 {
				s.logger.Debug("pruned submissions", "count", n)
			}
		}
	}

	applog.LogStartup(s.logger, Version, paths.ConfigFile(), cfg.ProcessURL(), paths.DatabaseFile())
	return s, nil
}

// applyOverrides layers the project file, environment and flags over cfg.
// The environment wins over the project file; flags win over everything.
func applyOverrides(cfg *config.Config) error {
	if wd, err := os.Getwd(); err == nil {
		p, err := config.LoadProject(wd)
		if err != nil {
			return err
		}
		if err := cfg.ApplyProject(p, wd); err != nil {
			return fmt.Errorf("invalid project config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// widgetOptions maps the configuration onto widget options with the
// session's logger and history recorder.
func (s *session) widgetOptions() (widget.Options, error) {
	opts, err := s.cfg.WidgetOptions()
	if err != nil {
		return widget.Options{}, err
	}
	opts.Logger = s.logger
	if s.store != nil {
		opts.Recorder = storage.NewRecorder(s.store)
	}
	return opts, nil
}

// Close releases the store and log file.
func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
