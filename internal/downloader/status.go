package downloader

import (
	"strings"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader/qbittorrent"
)

// Kind tells how a transfer was submitted.
type Kind int

const (
	KindFile Kind = iota
	KindMagnet
)

func (k Kind) String() string {
	if k == KindMagnet {
		return "Magnet link"
	}
	return "Torrent file"
}

// TorrentStatus is one snapshot of a transfer. Two snapshots are compared with ==.
type TorrentStatus struct {
	ID            string
	Name          string
	State         string
	TotalSize     int64
	DownloadSpeed int64
	ETA           time.Duration
	Progress      float64
	Seeds         int
	Peers         int
	AddedOn       int64
}

// Complete reports whether the whole payload is on disk.
func (s TorrentStatus) Complete() bool {
	return s.Progress >= 1
}

func statusFromInfo(info *qbittorrent.TorrentInfo) TorrentStatus {
	size := info.TotalSize
	if size <= 0 {
		size = info.Size
	}
	return TorrentStatus{
		ID:            strings.ToLower(info.Hash),
		Name:          info.Name,
		State:         stateLabel(info.State),
		TotalSize:     size,
		DownloadSpeed: info.DlSpeed,
		ETA:           time.Duration(info.ETA) * time.Second,
		Progress:      info.Progress,
		Seeds:         info.NumSeeds,
		Peers:         info.NumLeechs,
		AddedOn:       info.AddedOn,
	}
}

// stateLabel maps qBittorrent's camelCase states to a short label.
func stateLabel(state string) string {
	switch state {
	case "downloading", "forcedDL":
		return "Downloading"
	case "metaDL", "forcedMetaDL":
		return "Fetching metadata"
	case "stalledDL":
		return "Stalled"
	case "queuedDL", "queuedUP":
		return "Queued"
	case "pausedDL", "stoppedDL", "pausedUP", "stoppedUP":
		return "Paused"
	case "checkingDL", "checkingUP", "checkingResumeData":
		return "Checking"
	case "uploading", "stalledUP", "forcedUP":
		return "Seeding"
	case "allocating":
		return "Allocating"
	case "moving":
		return "Moving"
	case "error", "missingFiles":
		return "Error"
	case "":
		return "Unknown"
	default:
		return state
	}
}
