package downloader

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader/qbittorrent"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/testutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func TestAdapter_MostRecentlyAdded(t *testing.T) {
	daemon := testutils.NewFakeDaemon()
	adapter := NewAdapter(daemon, "/data")
	ctx := context.Background()

	if _, found, err := adapter.MostRecentlyAdded(ctx); err != nil || found {
		t.Fatalf("empty daemon: found=%v err=%v", found, err)
	}

	daemon.Put(qbittorrent.TorrentInfo{Hash: "old", Name: "old", AddedOn: 10})
	daemon.Put(qbittorrent.TorrentInfo{Hash: "NEW", Name: "new", AddedOn: 20, DlSpeed: 512, ETA: 90, NumSeeds: 3, NumLeechs: 4, State: "downloading"})

	status, found, err := adapter.MostRecentlyAdded(ctx)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	want := TorrentStatus{
		ID:            "new",
		Name:          "new",
		State:         "Downloading",
		DownloadSpeed: 512,
		ETA:           90 * time.Second,
		Seeds:         3,
		Peers:         4,
		AddedOn:       20,
	}
	if status != want {
		t.Errorf("status = %+v, want %+v", status, want)
	}
}

func TestAdapter_ByIDAndByName(t *testing.T) {
	daemon := testutils.NewFakeDaemon()
	adapter := NewAdapter(daemon, "/data")
	ctx := context.Background()
	daemon.Put(qbittorrent.TorrentInfo{Hash: "abc", Name: "ubuntu.iso", Progress: 0.25})

	status, found, err := adapter.ByID(ctx, "abc")
	if err != nil || !found || status.Progress != 0.25 {
		t.Fatalf("ByID: status=%+v found=%v err=%v", status, found, err)
	}
	if _, found, err := adapter.ByID(ctx, "missing"); err != nil || found {
		t.Errorf("ByID(missing): found=%v err=%v", found, err)
	}
	if status, found, _ := adapter.ByName(ctx, "ubuntu.iso"); !found || status.ID != "abc" {
		t.Errorf("ByName: status=%+v found=%v", status, found)
	}
	if _, found, _ := adapter.ByName(ctx, "debian.iso"); found {
		t.Error("ByName(debian.iso) should not be found")
	}
}

func TestAdapter_TransportErrorsAreWrapped(t *testing.T) {
	daemon := testutils.NewFakeDaemon()
	daemon.SetInfoError(testutils.ErrFakeTransport)
	adapter := NewAdapter(daemon, "/data")

	_, found, err := adapter.ByID(context.Background(), "abc")
	if found {
		t.Error("found should be false on transport error")
	}
	if !errors.Is(err, utils.ErrDaemonUnavailable) {
		t.Errorf("err = %v, want ErrDaemonUnavailable", err)
	}
	if !errors.Is(err, testutils.ErrFakeTransport) {
		t.Errorf("err = %v, should keep the transport cause", err)
	}
	if root := utils.RootError(err).Error(); !strings.Contains(root, testutils.ErrFakeTransport.Error()) {
		t.Errorf("RootError = %q, should name the transport cause", root)
	}
}

func TestAdapter_DeletePurgeClose(t *testing.T) {
	daemon := testutils.NewFakeDaemon()
	adapter := NewAdapter(daemon, "/data")
	ctx := context.Background()
	daemon.Put(qbittorrent.TorrentInfo{Hash: "abc"})

	if err := adapter.Delete(ctx, "abc", false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := adapter.Delete(ctx, "abc", false); err != nil {
		t.Fatalf("second Delete should be idempotent: %v", err)
	}
	if err := adapter.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	calls := daemon.DeleteCalls()
	if len(calls) != 3 || calls[2] != (testutils.DeleteCall{Hashes: "all", DeleteFiles: true}) {
		t.Errorf("delete calls = %+v", calls)
	}
	if !daemon.LoggedOut.Load() {
		t.Error("Close should log out")
	}
}

func TestAdapter_Submissions(t *testing.T) {
	daemon := testutils.NewFakeDaemon()
	adapter := NewAdapter(daemon, "/data")
	ctx := context.Background()

	if err := adapter.AddFromMagnet(ctx, "magnet:?xt=urn:btih:abc"); err != nil {
		t.Fatalf("AddFromMagnet: %v", err)
	}
	if err := adapter.AddFromFile(ctx, "a.torrent", []byte("x")); err != nil {
		t.Fatalf("AddFromFile: %v", err)
	}
	if len(daemon.Magnets) != 1 || len(daemon.Files) != 1 {
		t.Errorf("magnets=%v files=%v", daemon.Magnets, daemon.Files)
	}

	daemon.AddError = testutils.ErrFakeTransport
	if err := adapter.AddFromMagnet(ctx, "magnet:?xt=urn:btih:def"); !errors.Is(err, utils.ErrDaemonUnavailable) {
		t.Errorf("err = %v, want ErrDaemonUnavailable", err)
	}
}

func TestParseTorrentFile(t *testing.T) {
	body := testutils.TorrentFile(t, "debian.iso", 4096)
	meta, err := ParseTorrentFile(body)
	if err != nil {
		t.Fatalf("ParseTorrentFile: %v", err)
	}
	if meta.Name != "debian.iso" || meta.Size != 4096 || len(meta.InfoHash) != 40 {
		t.Errorf("meta = %+v", meta)
	}

	if _, err := ParseTorrentFile([]byte("not bencode")); !errors.Is(err, utils.ErrInvalidTorrent) {
		t.Errorf("err = %v, want ErrInvalidTorrent", err)
	}
}

func TestMagnetDisplayName(t *testing.T) {
	name, err := MagnetDisplayName("magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=Big%20Buck%20Bunny")
	if err != nil || name != "Big Buck Bunny" {
		t.Errorf("name = %q err = %v", name, err)
	}
	name, err = MagnetDisplayName("magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a")
	if err != nil || name != defaultMagnetName {
		t.Errorf("name = %q err = %v", name, err)
	}
	if _, err := MagnetDisplayName("https://example.org"); !errors.Is(err, utils.ErrInvalidMagnet) {
		t.Errorf("err = %v, want ErrInvalidMagnet", err)
	}
}

func TestMagnetInfoHash(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"magnet:?xt=urn:btih:C12FE1C06BBA254A9DC9F519B335AA7C1367A88A&dn=Big%20Buck%20Bunny", "c12fe1c06bba254a9dc9f519b335aa7c1367a88a"},
		{"magnet:?xt=urn:btih:abc", ""},
		{"magnet:?dn=nothing", ""},
		{"https://example.org/file.torrent", ""},
	}
	for _, tt := range tests {
		if got := MagnetInfoHash(tt.uri); got != tt.want {
			t.Errorf("MagnetInfoHash(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
