package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin"

	"github.com/maxviazov/module-progress-console/internal/config"
	"github.com/maxviazov/module-progress-console/internal/logger"
	"github.com/maxviazov/module-progress-console/internal/server"
)

var (
	app        = kingpin.New("module-progress-console", "Admin API behind the module progress console.")
	configPath = app.Flag("config", "Path to the YAML config file.").Short('c').Default("config.yaml").Envar("APP_CONFIG").String()
	dataFile   = app.Flag("data-file", "JSON document for the file driver; overrides data.file.path.").String()
	port       = app.Flag("port", "HTTP port; overrides app.port.").Int()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.LoadWithOverrides(*configPath, flagOverrides())
	if err != nil {
		log.Fatalf("config loading failed: %v", err)
	}

	if cfg.Logger.ServiceVersion == "" {
		cfg.Logger.ServiceVersion = cfg.App.Version
	}
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := server.OpenBackend(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Str("driver", cfg.Data.Driver).Msg("storage backend unavailable")
	}

	if err := server.New(cfg, backend, appLogger).Run(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	appLogger.Info().Msg("server stopped")
}

// flagOverrides maps set flags onto config keys.
func flagOverrides() map[string]any {
	o := map[string]any{}
	if *dataFile != "" {
		o["data.driver"] = config.DriverFile
		o["data.file.path"] = *dataFile
	}
	if *port != 0 {
		o["app.port"] = *port
	}
	return o
}
