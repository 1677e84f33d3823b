package main

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/app"
	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize configuration")
	}

	logutils.InitLogger(cfg.LogLevel)
	logutils.Log.WithFields(map[string]any{
		"version":    Version,
		"build_time": BuildTime,
	}).Info("Starting mediagram")

	metrics.Register(prometheus.DefaultRegisterer)
	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer)
		metricsServer.Start()
	}

	application, err := app.New(cfg)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Application initialization failed")
	}

	for {
		reason, runErr := application.Run()
		if runErr != nil {
			logutils.Log.WithError(runErr).Error("Run ended with an error")
		}
		if reason != handlers.ExitRestart {
			break
		}
		logutils.Log.Info("Restarting")
	}

	application.Close()
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logutils.Log.WithError(err).Warn("Metrics endpoint shutdown failed")
		}
		cancel()
	}
	logutils.Log.Info("Mediagram stopped")
}
