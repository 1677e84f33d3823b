package app

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/filesystem"
	"github.com/NikitaDmitryuk/mediagram/internal/handlers"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
)

// Application holds what outlives a restart: the daemon connection, the download
// directory, the history store and the search providers.
type Application struct {
	config    *config.Config
	adapter   *downloader.Adapter
	store     *filesystem.Store
	history   database.Database
	torrents  *search.Torrents
	subtitles *search.Subtitles
}

func New(cfg *config.Config) (*Application, error) {
	return initializeApplication(cfg)
}

// Run serves the bot until /stop, /restart or a signal. It returns ExitRestart when the
// caller should run again.
func (app *Application) Run() (handlers.ExitReason, error) {
	logutils.Log.Info("Starting mediagram")
	return runServer(app)
}

// Close releases what Run left open across restarts.
func (app *Application) Close() {
	if app.history == nil {
		return
	}
	if err := app.history.Close(); err != nil {
		logutils.Log.WithError(err).Warn("Failed to close the history database")
	}
}

// purgeDaemon drops transfers left over from a previous run, which no session watches.
func (app *Application) purgeDaemon() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.adapter.PurgeAll(ctx); err != nil {
		logutils.Log.WithError(err).Warn("Could not purge the daemon at startup")
	}
}
