package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/audit"
	"github.com/cloakd/cloakd/internal/cache"
	"github.com/cloakd/cloakd/internal/config"
	"github.com/cloakd/cloakd/internal/engine"
	"github.com/cloakd/cloakd/internal/logger"
	"github.com/cloakd/cloakd/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("cloakd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting cloakd",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port),
	)

	eng, err := buildEngine(cfg, log)
	if err != nil {
		log.Fatal("failed to build anonymization engine", zap.Error(err))
	}

	var opts server.Options
	if cfg.Cache.Enabled {
		resultCache, err := cache.New(&cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("failed to initialize result cache", zap.Error(err))
		}
		defer resultCache.Close()
		opts.Cache = resultCache
	}
	if cfg.Audit.Enabled {
		auditor, err := audit.NewStore(&cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			log.Fatal("failed to initialize audit store", zap.Error(err))
		}
		defer auditor.Close()
		opts.Auditor = auditor
	}

	srv := server.New(cfg, eng, log, opts)

	// Rebuild the engine when the service config changes on disk.
	if err := config.Watch(cfg, func(newCfg *config.Config) {
		newEngine, err := buildEngine(newCfg, log)
		if err != nil {
			log.Error("config reload failed, keeping previous engine", zap.Error(err))
			return
		}
		srv.SetEngine(newEngine)
		log.Info("engine rebuilt after config change")
	}); err != nil {
		log.Warn("config watch unavailable", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("server shutdown complete")
	}
}

// buildEngine assembles the default engine from the service config: the
// engine config file (or built-in defaults) plus any extra dictionaries.
func buildEngine(cfg *config.Config, log *logger.Logger) (*engine.Engine, error) {
	engineConfig := engine.DefaultConfig()
	if cfg.Engine.ConfigFile != "" {
		loaded, err := engine.LoadConfigFile(cfg.Engine.ConfigFile)
		if err != nil {
			return nil, err
		}
		engineConfig = loaded
	}
	engineConfig.DictionaryPaths = append(engineConfig.DictionaryPaths, cfg.Engine.DictionaryPaths...)

	return engine.New(engineConfig, log.WithComponent("engine").Logger)
}

// performHealthCheck performs a health check against the running server.
func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
