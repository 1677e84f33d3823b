package utils

import (
	"path/filepath"
	"strings"
)

const (
	magnetPrefix      = "magnet:?xt="
	torrentMimeType   = "application/x-bittorrent"
	torrentFileSuffix = ".torrent"
)

// IsMagnetLink reports whether text is a magnet URI with an exact topic.
func IsMagnetLink(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), magnetPrefix)
}

// IsTorrentFile accepts uploads by mime type first and falls back to the file extension,
// since some clients send .torrent files as application/octet-stream.
func IsTorrentFile(mimeType, fileName string) bool {
	if mimeType == torrentMimeType {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), torrentFileSuffix)
}

// Truncate cuts s to at most n runes, appending an ellipsis when shortened.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
