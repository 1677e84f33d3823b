package app

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/bot"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader/manager"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/session"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers/ui"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/ratelimit"
	"github.com/NikitaDmitryuk/mediagram/internal/shutdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultShutdownTimeout = 60 * time.Second
	updatesTimeout         = 60
)

// runServer is one service run. Every run gets a fresh lifecycle, bot connection and
// interaction context; nothing of the previous run's sessions survives.
func runServer(app *Application) (handlers.ExitReason, error) {
	cfg := app.config
	lifecycle := shutdown.NewLifecycle()
	stopSignals := shutdown.RequestOnSignal(lifecycle)
	defer stopSignals()

	app.purgeDaemon()

	botInstance, err := bot.NewBot(cfg.BotToken, cfg.ChatID)
	if err != nil {
		return handlers.ExitStop, err
	}
	if err := botInstance.SetCommands(ui.Commands()); err != nil {
		logutils.Log.WithError(err).Warn("Command menu not updated, continuing without it")
	}

	sessions := manager.NewManager(
		lifecycle,
		app.adapter,
		botInstance,
		ratelimit.NewLimiter(cfg.DownloadSettings.EditInterval),
		app.store,
		app.history,
		manager.SettingsFromConfig(cfg.DownloadSettings),
	)
	router := handlers.NewHandler(handlers.Options{
		ChatID:      cfg.ChatID,
		Bot:         botInstance,
		Lifecycle:   lifecycle,
		Adapter:     app.adapter,
		Sessions:    sessions,
		Store:       app.store,
		Flow:        session.NewContext(),
		Torrents:    app.torrents,
		Subtitles:   app.subtitles,
		History:     app.history,
		MoveTargets: cfg.MoveTargets,
		Languages:   cfg.Subtitles.Languages,
	})

	// Order matters: join sessions, then release the daemon, then stop the transport.
	shutdownManager := shutdown.NewManager(defaultShutdownTimeout)
	shutdownManager.Register("download sessions", sessions.Shutdown)
	shutdownManager.Register("daemon", app.adapter.Close)
	shutdownManager.Register("transport", func(context.Context) error {
		botInstance.StopReceiving()
		return nil
	})

	if _, err := botInstance.SendMessage("🟢 Started.", nil); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send the startup message")
	}
	logutils.Log.Info("Mediagram started successfully")

	processUpdates(lifecycle, botInstance.Updates(updatesTimeout), router)

	err = shutdownManager.Shutdown()
	if err != nil {
		logutils.Log.WithError(err).Error("Graceful shutdown completed with errors")
	}
	if _, sendErr := botInstance.SendMessage("🔴 Shutdown.", nil); sendErr != nil {
		logutils.Log.WithError(sendErr).Warn("Failed to send the shutdown message")
	}
	logutils.Log.Info("Mediagram shutdown complete")
	return router.ExitReason(), err
}

// processUpdates is the serial dispatch loop. It returns once shutdown is requested.
func processUpdates(lifecycle *shutdown.Lifecycle, updates tgbotapi.UpdatesChannel, router *handlers.Handler) {
	for {
		select {
		case <-lifecycle.Done():
			logutils.Log.Info("Stopping update processing")
			return
		case update, ok := <-updates:
			if !ok {
				lifecycle.RequestShutdown()
				return
			}
			router.Router(&update)
		}
	}
}
