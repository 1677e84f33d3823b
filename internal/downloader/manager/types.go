package manager

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
)

const (
	// daemonCallTimeout bounds one status or delete round trip.
	daemonCallTimeout = 15 * time.Second

	bindAttempts = 5
	bindDelay    = 300 * time.Millisecond
)

// Daemon is what a session needs from the daemon adapter.
type Daemon interface {
	MostRecentlyAdded(ctx context.Context) (downloader.TorrentStatus, bool, error)
	ByID(ctx context.Context, id string) (downloader.TorrentStatus, bool, error)
	Delete(ctx context.Context, id string, deleteFiles bool) error
}

// Cleaner removes local data of a transfer from the download directory.
type Cleaner interface {
	RemoveEntry(name string) error
}

// Settings are the polling knobs from config.DownloadConfig.
type Settings struct {
	PollInterval    time.Duration
	PollErrorPolicy string
}

func SettingsFromConfig(cfg config.DownloadConfig) Settings {
	return Settings{PollInterval: cfg.PollInterval, PollErrorPolicy: cfg.PollErrorPolicy}
}

// Submission describes a transfer that was just handed to the daemon.
type Submission struct {
	Kind        downloader.Kind
	DisplayName string
	// InfoHash is known for .torrent uploads and preferred over the most recent transfer.
	InfoHash string
}

// State is a session state.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateDone
	StateAborted
	StateVanished
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateDone:
		return database.OutcomeDone
	case StateAborted:
		return database.OutcomeAborted
	case StateVanished:
		return database.OutcomeVanished
	default:
		return "unknown"
	}
}

// ActiveSession is the read-only view of a running session used by /status.
type ActiveSession struct {
	TorrentID   string
	DisplayName string
	Kind        downloader.Kind
	StartedAt   time.Time
}
