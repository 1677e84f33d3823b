package app

import (
	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader/qbittorrent"
	"github.com/NikitaDmitryuk/mediagram/internal/filesystem"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/opensubtitles"
	"github.com/NikitaDmitryuk/mediagram/internal/prowlarr"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
)

func initializeApplication(cfg *config.Config) (*Application, error) {
	client, err := qbittorrent.NewClient(cfg.QBittorrent.URL, cfg.QBittorrent.Username, cfg.QBittorrent.Password)
	if err != nil {
		return nil, err
	}

	app := &Application{
		config:  cfg,
		adapter: downloader.NewAdapter(client, cfg.DownloadDir),
		store:   filesystem.NewStore(cfg.DownloadDir),
	}
	if !app.store.RootExists() {
		logutils.Log.WithField("path", cfg.DownloadDir).Warn("Download directory is missing, downloads will be refused")
	}

	initializeHistory(app, cfg)
	initializeSearch(app, cfg)
	return app, nil
}

// initializeHistory keeps the bot usable without a history store.
func initializeHistory(app *Application, cfg *config.Config) {
	if cfg.HistoryDBPath == "" {
		logutils.Log.Info("Download history disabled")
		return
	}
	db, err := database.NewDatabase(cfg.HistoryDBPath)
	if err != nil {
		logutils.Log.WithError(err).Warn("Download history unavailable")
		return
	}
	app.history = db
}

func initializeSearch(app *Application, cfg *config.Config) {
	retry := search.RetryPolicy{Attempts: cfg.SearchSettings.Attempts, Wait: cfg.SearchSettings.RetryWait}

	if cfg.SearchEnabled() {
		provider := prowlarr.NewProwlarr(cfg.SearchSettings.ProwlarrURL, cfg.SearchSettings.ProwlarrAPIKey)
		app.torrents = search.NewTorrents(provider, cfg.SearchSettings.MinSeeders, retry)
	} else {
		logutils.Log.Info("Torrent search disabled: Prowlarr is not configured")
	}

	if cfg.SubtitlesEnabled() {
		provider := opensubtitles.NewClient("", cfg.Subtitles.APIKey, cfg.Subtitles.Username, cfg.Subtitles.Password)
		app.subtitles = search.NewSubtitles(provider, retry)
	} else {
		logutils.Log.Info("Subtitle search disabled: OpenSubtitles is not configured")
	}
}
