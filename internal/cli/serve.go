package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shinji-kodama/uploadkit/internal/model"
	"github.com/shinji-kodama/uploadkit/internal/port"
	"github.com/shinji-kodama/uploadkit/internal/server"
)

// serveFlags holds the flag values for the serve command. Flags that were
// set override the environment.
type serveFlags struct {
	envFile        string
	port           int
	host           string
	uploadDir      string
	storage        string
	corsOrigin     string
	maxUploadBytes int64
	autoPort       bool
}

// NewServeCommand creates the "serve" cobra command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the file upload server",
		Long: `Run the file upload server.

Configuration is read from the environment and an optional .env file:
  PORT, UPLOAD_DIR, CORS_ORIGIN, CONNECTION_STRING (or DATABASE_URL),
  MAX_UPLOAD_BYTES, STORAGE_BACKEND (disk|minio), S3_ENDPOINT,
  S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, PUBLIC_BASE_URL,
  LOG_FORMAT (text|json), LOG_LEVEL.

The server starts without a database when CONNECTION_STRING is missing or
the database cannot be reached.

Examples:
  uploadkit serve
  uploadkit serve --port 4000 --upload-dir ./files
  uploadkit serve --auto-port`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(flags.envFile)
			if err != nil {
				return err
			}
			if err := applyServeFlags(cmd, flags, &cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, flags.autoPort)
		},
	}

	bindServeFlags(cmd.Flags(), flags)

	return cmd
}

// bindServeFlags registers the serve command's flags on f.
func bindServeFlags(f *pflag.FlagSet, flags *serveFlags) {
	f.StringVar(&flags.envFile, "env-file", "", "Env file to load (default: .env if present)")
	f.IntVarP(&flags.port, "port", "p", 0, "Port to listen on (overrides PORT)")
	f.StringVar(&flags.host, "host", "", "Interface to listen on (default: all)")
	f.StringVar(&flags.uploadDir, "upload-dir", "", "Directory for uploaded files (overrides UPLOAD_DIR)")
	f.StringVar(&flags.storage, "storage", "", "Storage backend: disk or minio (overrides STORAGE_BACKEND)")
	f.StringVar(&flags.corsOrigin, "cors-origin", "", "Allowed CORS origin (overrides CORS_ORIGIN)")
	f.Int64Var(&flags.maxUploadBytes, "max-upload-bytes", 0, "Upload size limit, 0 for none (overrides MAX_UPLOAD_BYTES)")
	f.BoolVar(&flags.autoPort, "auto-port", false, "Use the next free port when the configured one is busy")
}

// applyServeFlags copies the flags the user set into cfg.
func applyServeFlags(cmd *cobra.Command, flags *serveFlags, cfg *server.Config) error {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("host") {
		cfg.Host = flags.host
	}
	if changed("upload-dir") {
		cfg.UploadDir = flags.uploadDir
	}
	if changed("storage") {
		backend, err := model.ParseStorageBackend(flags.storage)
		if err != nil {
			return model.WrapCLIError(model.ExitInvalidInput, "invalid --storage", err)
		}
		cfg.Storage = backend
	}
	if changed("cors-origin") {
		cfg.CORSOrigin = flags.corsOrigin
	}
	if changed("max-upload-bytes") {
		cfg.MaxUploadBytes = flags.maxUploadBytes
	}
	return cfg.Validate()
}

// runServe builds the server from cfg and runs it until ctx is done.
func runServe(ctx context.Context, cfg server.Config, autoPort bool) error {
	level := cfg.LogLevel
	if verbose {
		level = logrus.DebugLevel.String()
	}
	logger, err := server.NewLogger(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid logging configuration", err)
	}

	if autoPort {
		p, err := resolveServePort(ctx, cfg.Host, cfg.Port)
		if err != nil {
			return err
		}
		if p != cfg.Port {
			logger.Warnf("Port %d busy -> using %d", cfg.Port, p)
			cfg.Port = p
		}
	}

	store, err := server.NewStore(ctx, cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to initialise storage", err)
	}
	logger.WithField("storage", store.Kind()).Debug("storage ready")

	db := server.OpenDatabase(ctx, cfg.ConnectionString, logger)

	srv := server.New(cfg, store, db, logger)
	return serveError(srv.Run(ctx), cfg.Port)
}

// resolveServePort finds the first free port at or above preferred, probing
// on the address the server will listen on.
func resolveServePort(ctx context.Context, host string, preferred int) (int, error) {
	p, err := port.NewAllocator(port.NewScannerOnHost(host)).FindAvailable(ctx, preferred)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitPortAllocationFailed, "port allocation failed", err)
	}
	return p, nil
}

// serveError maps server errors to exit codes. A failed bind is reported
// separately from other failures.
func serveError(err error, p int) error {
	if err == nil {
		return nil
	}
	var bindErr *server.BindError
	if errors.As(err, &bindErr) {
		msg := fmt.Sprintf("cannot listen on port %d", p)
		if bindErr.InUse() {
			msg = fmt.Sprintf("port %d is already in use (try --auto-port or `uploadkit port %d`)", p, p)
		}
		return model.WrapCLIError(model.ExitPortInUse, msg, err)
	}
	return model.WrapCLIError(model.ExitGeneralError, "server failed", err)
}
