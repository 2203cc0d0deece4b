// Package main is the entry point for the authorizer service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/recipestack/authgate/internal/auth/jwt"
	"github.com/recipestack/authgate/internal/authz"
	"github.com/recipestack/authgate/internal/config"
	"github.com/recipestack/authgate/internal/observability"
	"github.com/recipestack/authgate/internal/server"
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

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags, logger)
	srv := initAuthorizer(cfg, logger)

	run(srv, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", os.Getenv("AUTHGATE_CONFIG_PATH"),
		"Path to configuration file (optional, environment is used when unset)")
	logLevel := flag.String("log-level", getEnvOrDefault(config.EnvLogLevel, "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault(config.EnvLogFormat, "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("authgate version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads the configuration from a file when one is given, from the
// environment otherwise.
func loadConfig(flags cliFlags, logger observability.Logger) *config.Config {
	logger.Info("starting authgate",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	return cfg
}

// initAuthorizer wires the key set cache, token validator, decision service,
// metrics, and HTTP server.
func initAuthorizer(cfg *config.Config, logger observability.Logger) *server.Server {
	registry := prometheus.NewRegistry()

	jwtMetrics := jwt.NewMetrics("authgate")
	jwtMetrics.MustRegister(registry)

	authzMetrics := authz.NewMetrics("authgate")
	authzMetrics.MustRegister(registry)

	keys := jwt.NewKeySetCache(cfg.Identity.KeySetURL(),
		jwt.WithFetchTimeout(cfg.Identity.KeyFetchTimeout),
		jwt.WithKeySetLogger(logger),
		jwt.WithKeySetMetrics(jwtMetrics),
	)

	validator, err := jwt.NewValidator(&jwt.Config{
		Issuer:    cfg.Identity.Issuer(),
		Audience:  cfg.Identity.Audience,
		ClockSkew: cfg.Identity.ClockSkew,
	}, keys,
		jwt.WithValidatorLogger(logger),
		jwt.WithValidatorMetrics(jwtMetrics),
	)
	if err != nil {
		logger.Fatal("failed to create token validator", observability.Error(err))
	}

	service, err := authz.New(validator, cfg.Identity.AdminGroup,
		authz.WithServiceLogger(logger),
		authz.WithServiceMetrics(authzMetrics),
	)
	if err != nil {
		logger.Fatal("failed to create authorization service", observability.Error(err))
	}

	return server.New(cfg.Server, service, registry, logger)
}

// run starts the server and blocks until a termination signal arrives.
func run(srv *server.Server, logger observability.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", observability.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("http server failed", observability.Error(err))
		}
		return
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
	}

	logger.Info("authgate stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
