// Command planeat runs the PlanEat WhatsApp meal-planning assistant: an
// HTTP server receiving Kapso webhooks, a conversation flow backed by the
// Anthropic Messages API, and a Postgres or SQLite store for households
// and conversation history.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/planeat/planeat/internal/api"
	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/flow"
	"github.com/planeat/planeat/internal/frest"
	"github.com/planeat/planeat/internal/gateway"
	"github.com/planeat/planeat/internal/imagegen"
	"github.com/planeat/planeat/internal/ingest"
	"github.com/planeat/planeat/internal/kapso"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/store"
)

// Default configuration constants
const (
	// DefaultAddr is the listen address when PORT is not set.
	DefaultAddr = ":8080"
	// DefaultDBFileName is the SQLite fallback database.
	DefaultDBFileName = "planeat.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	slog.Info("Bootstrapping PlanEat")
	if err := run(flags); err != nil {
		slog.Error("PlanEat failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PlanEat exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL string
	Addr        string
	FrestURL    string
	FrestKey    string
	GoogleKey   string
	ImageDir    string
}

// Flags holds command line flag values.
type Flags struct {
	dbDSN    *string
	addr     *string
	imageDir *string
}

// initializeLogger sets up structured logging with debug level.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// an optional .env file. API keys are not read here; each client falls back
// to its own environment variable when no option is passed.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Addr:        os.Getenv("PORT"),
		FrestURL:    os.Getenv("FREST_API_URL"),
		FrestKey:    os.Getenv("FREST_API_KEY"),
		GoogleKey:   os.Getenv("GOOGLE_API_KEY"),
		ImageDir:    os.Getenv("IMAGE_OUTPUT_DIR"),
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = DefaultDBFileName
		slog.Debug("No DATABASE_URL set, using SQLite fallback", "db_file", config.DatabaseURL)
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	} else if !strings.Contains(config.Addr, ":") {
		config.Addr = ":" + config.Addr
	}
	if config.ImageDir == "" {
		config.ImageDir = imagegen.DefaultOutputDir
	}
	return config
}

// parseCommandLineFlags parses flags, using environment values as defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:    flag.String("db-dsn", config.DatabaseURL, "database DSN (postgres:// URL or SQLite file path)"),
		addr:     flag.String("addr", config.Addr, "HTTP listen address"),
		imageDir: flag.String("image-dir", config.ImageDir, "directory generated recipe images are written to"),
	}
	flag.Parse()
	return flags
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	kapsoClient, err := kapso.NewClient()
	if err != nil {
		return err
	}
	messenger := messaging.NewKapsoService(kapsoClient)

	eng, err := engine.NewAnthropicClient()
	if err != nil {
		return err
	}

	gatewayOpts := []gateway.Option{}
	if os.Getenv("FREST_API_URL") != "" {
		frestClient, err := frest.NewClient()
		if err != nil {
			return err
		}
		gatewayOpts = append(gatewayOpts, gateway.WithFrest(frestClient))
		slog.Info("Frest e-commerce tools enabled")
	} else {
		slog.Info("FREST_API_URL not set, e-commerce tools disabled")
	}

	imageDir := ""
	if os.Getenv("GOOGLE_API_KEY") != "" {
		imgClient, err := imagegen.NewClient(imagegen.WithOutputDir(*flags.imageDir))
		if err != nil {
			return err
		}
		gatewayOpts = append(gatewayOpts, gateway.WithImageGen(imgClient))
		imageDir = imgClient.OutputDir()
		slog.Info("Recipe image generation enabled", "output_dir", imageDir)
	} else {
		slog.Info("GOOGLE_API_KEY not set, recipe image generation disabled")
	}

	tools := gateway.New(st, messenger, gatewayOpts...)
	conv := flow.NewConversationFlow(st, eng, tools, messenger)

	pipeline := ingest.NewPipeline(conv, messenger, ingest.NewDedupCache())
	pipeline.Start()
	defer pipeline.Stop()

	server := api.NewServer(pipeline, imageDir)
	return server.Run(ctx, *flags.addr)
}

// openStore selects the storage backend from the DSN shape. Postgres URLs
// go to lib/pq; anything else is treated as a SQLite file path.
func openStore(dsn string) (store.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		slog.Info("Using Postgres store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Info("Using SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}
