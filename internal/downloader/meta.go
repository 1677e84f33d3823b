package downloader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/go-bittorrent/magneturi"
)

const defaultMagnetName = "Magnet download"

// TorrentMeta is what the bot needs from an uploaded .torrent before the daemon sees it.
type TorrentMeta struct {
	Name     string
	InfoHash string
	Size     int64
}

// ParseTorrentFile reads name, infohash and payload size from a bencoded .torrent.
func ParseTorrentFile(body []byte) (TorrentMeta, error) {
	mi, err := metainfo.Load(bytes.NewReader(body))
	if err != nil {
		return TorrentMeta{}, utils.WrapError(utils.ErrInvalidTorrent, fmt.Sprintf("failed to parse torrent: %v", err), nil)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return TorrentMeta{}, utils.WrapError(utils.ErrInvalidTorrent, fmt.Sprintf("failed to unmarshal torrent info: %v", err), nil)
	}
	return TorrentMeta{
		Name:     info.Name,
		InfoHash: strings.ToLower(mi.HashInfoBytes().HexString()),
		Size:     info.TotalLength(),
	}, nil
}

// MagnetDisplayName returns the dn= parameter, or a generic name when it is absent.
func MagnetDisplayName(uri string) (string, error) {
	if !utils.IsMagnetLink(uri) {
		return "", utils.ErrInvalidMagnet
	}
	parsed, err := magneturi.Parse(uri)
	if err != nil {
		return "", utils.WrapError(utils.ErrInvalidMagnet, fmt.Sprintf("failed to parse magnet link: %v", err), nil)
	}
	if parsed.DisplayName != "" {
		return parsed.DisplayName, nil
	}
	return defaultMagnetName, nil
}

// MagnetInfoHash returns the lowercase hex v1 infohash of the xt= topic, or "" when the
// link carries none the daemon would list it under.
func MagnetInfoHash(uri string) string {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return ""
	}
	return strings.ToLower(m.InfoHash.HexString())
}
