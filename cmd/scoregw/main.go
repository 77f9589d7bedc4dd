// Package main is the entry point for the score gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	gin.SetMode(gin.ReleaseMode)

	bootstrap := initLogger(observability.LogConfig{Level: flags.logLevel, Format: flags.logFormat})
	cfg := loadAndValidateConfig(flags.configPath, bootstrap)
	logger := initLogger(loggerConfig(cfg.Observability.Log, flags))
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
	}

	if err := run(ctx, app); err != nil {
		logger.Error("shutdown did not complete cleanly", observability.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("SCOREGW_CONFIG_PATH", "configs/scoregw.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("SCOREGW_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := flag.String("log-format", getEnvOrDefault("SCOREGW_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("scoregw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger and installs it globally.
func initLogger(cfg observability.LogConfig) observability.Logger {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loggerConfig maps the file configuration onto the logger, letting
// non-empty flags win.
func loggerConfig(cfg config.LogConfig, flags cliFlags) observability.LogConfig {
	out := observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
		File: observability.FileConfig{
			Path:       cfg.File.Path,
			MaxSizeMB:  cfg.File.MaxSizeMB,
			MaxAgeDays: cfg.File.MaxAgeDays,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		},
	}
	if flags.logLevel != "" {
		out.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		out.Format = flags.logFormat
	}
	return out
}

// loadAndValidateConfig loads and validates the configuration. Either
// failure is fatal.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting scoregw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
	}

	if err := config.Validate(cfg); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("address", cfg.Server.Address),
		observability.String("store", cfg.Store.Driver),
		observability.Int("public_capacity", cfg.RateLimit.Public.Capacity),
		observability.Int("authenticated_capacity", cfg.RateLimit.Authenticated.Capacity),
	)

	return cfg
}

// fatalWithSync flushes the logger and exits.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}
