package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/config"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/andresmejia3/rollcall/internal/store/mongostore"
	"github.com/andresmejia3/rollcall/internal/store/sqlitestore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the enroll, attend and match commands
type Options struct {
	Name   string
	RollNo string

	FramesDir     string
	CameraBackend string
	CameraDevice  string
	CameraFormat  string
	FPS           int

	DetectorBackend string
	Cascade         string
	Script          string
	ScaleFactor     float64
	MinNeighbors    int

	Stride     int
	MaxSamples int
}

var (
	// Repo is the gallery store shared by subcommands
	Repo store.Repository
	// Cfg is the loaded configuration (defaults, then environment, then flags)
	Cfg *config.Config

	dbDriver  string
	dbURL     string
	logLevel  string
	logFormat string

	// stdinStop is where the operator presses Enter to stop a session
	stdinStop io.Reader = os.Stdin
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "rollcall",
	Short:         "Face enrollment and attendance from a camera feed",
	Version:       Version, // This enables the --version flag
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if Cfg, err = config.Load(); err != nil {
			return err
		}
		applyRootFlags(Cfg)

		if err := logger.Init(Cfg.Log.Level, Cfg.Log.Format); err != nil {
			return err
		}

		// Use the command's context (which will be cancellable) for the connection
		Repo, err = openRepository(cmd.Context(), Cfg.Database)
		if err != nil {
			return fail("Failed to open the gallery store", storeOpenError(cmd, err), nil)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if Repo != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to close the store cleanly.
			Repo.Close(context.Background())
		}
		logger.Sync()
	},
}

// applyRootFlags lets explicit persistent flags win over the environment.
func applyRootFlags(cfg *config.Config) {
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbURL != "" {
		switch cfg.Database.Driver {
		case "sqlite":
			cfg.Database.SQLitePath = dbURL
		case "mongo":
			cfg.Database.MongoURL = dbURL
		default:
			cfg.Database.URL = dbURL
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
}

// fetchesGallery marks commands that load the gallery for matching.
const fetchesGallery = "rollcall/fetches-gallery"

// storeOpenError classifies a store that cannot be opened. Matching commands
// report it as a gallery fetch failure; for the rest it is a missing resource.
func storeOpenError(cmd *cobra.Command, err error) error {
	if _, ok := cmd.Annotations[fetchesGallery]; ok {
		return store.FetchError(err)
	}
	return apperrors.New(apperrors.ResourceUnavailable, "gallery store unavailable", err)
}

func openRepository(ctx context.Context, db config.DatabaseConfig) (store.Repository, error) {
	switch db.Driver {
	case "postgres", "":
		return store.New(ctx, db.URL)
	case "sqlite":
		return sqlitestore.New(db.SQLitePath)
	case "mongo":
		return mongostore.New(ctx, db.MongoURL, db.MongoDB)
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			stop()
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Gallery store: postgres, sqlite or mongo (default from config)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Connection string (postgres/mongo) or file path (sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

// loadDotEnv reads .env when present. Real environment variables take precedence.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to read .env: %v\n", err)
	}
}
