package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/tradeplan/internal/backup"
	"github.com/ksred/tradeplan/internal/config"
	"github.com/ksred/tradeplan/internal/database"
	"github.com/ksred/tradeplan/internal/trace"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "dev"

// app carries what every command shares: resolved configuration and the
// run id attached to logs and snapshots.
type app struct {
	cfg   *config.Config
	runID string

	configPath string
	dbPath     string
	backupDir  string
	logLevel   string
	tracing    bool

	logFile io.Closer
}

func main() {
	a := &app{}
	root := newRootCmd(a)

	err := root.ExecuteContext(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := trace.Shutdown(shutdownCtx); shutdownErr != nil {
		zlog.Warn().Err(shutdownErr).Msg("trace shutdown failed")
	}
	cancel()
	if a.logFile != nil {
		a.logFile.Close()
	}

	if err != nil {
		zlog.Error().Err(err).Msg("tradeplan failed")
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	var reconcileOpts reconcileOptions

	root := &cobra.Command{
		Use:           "tradeplan",
		Short:         "Apply a trade plan CSV to the automation engine database",
		Long:          "Running tradeplan with no subcommand is the same as 'tradeplan reconcile'.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReconcile(cmd, reconcileOpts)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Engine database file (overrides db_path)")
	root.PersistentFlags().StringVar(&a.backupDir, "backup-dir", "", "Snapshot directory (overrides backup_dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn or error")
	root.PersistentFlags().BoolVar(&a.tracing, "trace", false, "Print OpenTelemetry spans to stderr")
	bindReconcileFlags(root, &reconcileOpts)

	root.AddCommand(
		newReconcileCmd(a),
		newInitCmd(a),
		newBackupCmd(a),
		newPnLCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup resolves configuration, then configures logging and tracing.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.backupDir != "" {
		cfg.BackupDir = a.backupDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.tracing {
		cfg.TracingEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		return withCode(exitUsage, err)
	}
	a.cfg = cfg
	a.runID = uuid.New().String()

	if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
		return withCode(exitUsage, err)
	}
	if err := trace.Init(cfg.TracingEnabled, os.Stderr, version); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	zlog.Debug().
		Str("command", cmd.Name()).
		Str("db", cfg.DBPath).
		Str("version", version).
		Msg("configuration loaded")
	return nil
}

// setupLogging writes pretty console logs outside production and JSON
// otherwise, optionally tee'd to a JSON log file.
func (a *app) setupLogging(stderr io.Writer) error {
	var console io.Writer = stderr
	if !a.cfg.Production() {
		console = zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.RFC3339,
		}
	}

	out := console
	if a.cfg.LogFile != "" {
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = zerolog.MultiLevelWriter(console, f)
	}
	zlog.Logger = zerolog.New(out).With().Timestamp().Str("run_id", a.runID).Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(a.cfg.LogLevel))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// openDB opens the engine database. Unless create is set the file must
// already exist.
func (a *app) openDB(create bool) (*gorm.DB, error) {
	if !create {
		if _, err := os.Stat(a.cfg.DBPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", backup.ErrSourceMissing, a.cfg.DBPath)
			}
			return nil, err
		}
	}
	return database.Open(a.cfg.DBPath, database.Options{
		BusyTimeout: a.cfg.BusyTimeout,
		Debug:       zerolog.GlobalLevel() <= zerolog.TraceLevel,
	})
}

// snapshot backs the database up before a mutating command.
func (a *app) snapshot(ctx context.Context) (*backup.Snapshot, error) {
	opts := []backup.Option{backup.WithRunID(a.runID)}
	if a.cfg.Mirror.Bucket != "" {
		mirror, err := backup.NewS3Mirror(ctx, backup.MirrorConfig{
			Bucket:    a.cfg.Mirror.Bucket,
			Region:    a.cfg.Mirror.Region,
			Endpoint:  a.cfg.Mirror.Endpoint,
			Prefix:    a.cfg.Mirror.Prefix,
			PathStyle: a.cfg.Mirror.PathStyle,
		})
		if err != nil {
			zlog.Warn().Err(err).Msg("backup mirror disabled")
		} else {
			opts = append(opts, backup.WithMirror(mirror))
		}
	}
	return backup.NewManager(a.cfg.DBPath, a.cfg.BackupDir, opts...).Create(ctx)
}
