package downloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader/qbittorrent"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
)

// Daemon is the subset of the qBittorrent Web API the adapter relies on.
type Daemon interface {
	AddMagnet(ctx context.Context, uri, savePath string) error
	AddTorrentFile(ctx context.Context, filename string, body []byte, savePath string) error
	Torrents(ctx context.Context, hashes, sort string, reverse bool) ([]qbittorrent.TorrentInfo, error)
	Delete(ctx context.Context, hashes string, deleteFiles bool) error
	Logout(ctx context.Context) error
}

// Adapter exposes the daemon as TorrentStatus lookups and fire-and-forget submissions.
// It never retries: failures go back to the caller wrapped in ErrDaemonUnavailable.
type Adapter struct {
	daemon   Daemon
	savePath string
}

func NewAdapter(daemon Daemon, savePath string) *Adapter {
	return &Adapter{daemon: daemon, savePath: savePath}
}

func (a *Adapter) SavePath() string {
	return a.savePath
}

func (a *Adapter) AddFromFile(ctx context.Context, name string, body []byte) error {
	if err := a.daemon.AddTorrentFile(ctx, name, body, a.savePath); err != nil {
		return unavailable(err, "add torrent file")
	}
	logutils.Log.WithField("file", name).Info("Torrent file submitted")
	return nil
}

func (a *Adapter) AddFromMagnet(ctx context.Context, uri string) error {
	if err := a.daemon.AddMagnet(ctx, uri, a.savePath); err != nil {
		return unavailable(err, "add magnet")
	}
	logutils.Log.WithField("magnet", utils.Truncate(uri, 60)).Info("Magnet link submitted")
	return nil
}

// MostRecentlyAdded returns the transfer with the latest added_on.
func (a *Adapter) MostRecentlyAdded(ctx context.Context) (TorrentStatus, bool, error) {
	list, err := a.daemon.Torrents(ctx, "", "added_on", true)
	if err != nil {
		return TorrentStatus{}, false, unavailable(err, "list torrents")
	}
	if len(list) == 0 {
		return TorrentStatus{}, false, nil
	}
	newest := &list[0]
	for i := range list[1:] {
		if list[i+1].AddedOn > newest.AddedOn {
			newest = &list[i+1]
		}
	}
	return statusFromInfo(newest), true, nil
}

// ByID returns found=false when the daemon no longer knows the transfer.
func (a *Adapter) ByID(ctx context.Context, id string) (TorrentStatus, bool, error) {
	list, err := a.daemon.Torrents(ctx, id, "", false)
	if err != nil {
		return TorrentStatus{}, false, unavailable(err, "get torrent")
	}
	for i := range list {
		if strings.EqualFold(list[i].Hash, id) {
			return statusFromInfo(&list[i]), true, nil
		}
	}
	return TorrentStatus{}, false, nil
}

// ByName maps a download directory entry back to its transfer.
func (a *Adapter) ByName(ctx context.Context, name string) (TorrentStatus, bool, error) {
	list, err := a.daemon.Torrents(ctx, "", "", false)
	if err != nil {
		return TorrentStatus{}, false, unavailable(err, "list torrents")
	}
	for i := range list {
		if list[i].Name == name {
			return statusFromInfo(&list[i]), true, nil
		}
	}
	return TorrentStatus{}, false, nil
}

func (a *Adapter) List(ctx context.Context) ([]TorrentStatus, error) {
	list, err := a.daemon.Torrents(ctx, "", "added_on", false)
	if err != nil {
		return nil, unavailable(err, "list torrents")
	}
	out := make([]TorrentStatus, 0, len(list))
	for i := range list {
		out = append(out, statusFromInfo(&list[i]))
	}
	return out, nil
}

// Delete is idempotent: deleting an unknown id succeeds.
func (a *Adapter) Delete(ctx context.Context, id string, deleteFiles bool) error {
	if err := a.daemon.Delete(ctx, id, deleteFiles); err != nil {
		return unavailable(err, "delete torrent")
	}
	logutils.Log.WithFields(map[string]any{"torrent_id": id, "delete_files": deleteFiles}).Debug("Torrent deleted")
	return nil
}

// PurgeAll drops every transfer and its data.
func (a *Adapter) PurgeAll(ctx context.Context) error {
	if err := a.daemon.Delete(ctx, "all", true); err != nil {
		return unavailable(err, "purge torrents")
	}
	logutils.Log.Info("All torrents purged from daemon")
	return nil
}

// Close purges the daemon and ends the Web API session.
func (a *Adapter) Close(ctx context.Context) error {
	purgeErr := a.PurgeAll(ctx)
	if err := a.daemon.Logout(ctx); err != nil {
		logutils.Log.WithError(err).Warn("qBittorrent logout failed")
	}
	return purgeErr
}

func unavailable(err error, op string) error {
	return utils.WrapError(fmt.Errorf("%w: %w", utils.ErrDaemonUnavailable, err), op+" failed", nil)
}
