package testutils

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/jackpal/bencode-go"
)

type fixtureInfo struct {
	Name        string `bencode:"name"`
	Length      int64  `bencode:"length"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
}

type fixtureTorrent struct {
	Announce string      `bencode:"announce"`
	Info     fixtureInfo `bencode:"info"`
}

// TorrentFile returns a minimal single-file .torrent for name and length.
func TorrentFile(t *testing.T, name string, length int64) []byte {
	t.Helper()
	piece := sha1.Sum([]byte(name))
	var buf bytes.Buffer
	err := bencode.Marshal(&buf, fixtureTorrent{
		Announce: "udp://tracker.example.org:1337/announce",
		Info: fixtureInfo{
			Name:        name,
			Length:      length,
			PieceLength: 262144,
			Pieces:      string(piece[:]),
		},
	})
	if err != nil {
		t.Fatalf("bencode torrent fixture: %v", err)
	}
	return buf.Bytes()
}
