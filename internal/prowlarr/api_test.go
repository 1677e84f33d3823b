package prowlarr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func TestSearchTorrents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("query") != "big buck bunny" {
			t.Errorf("query = %q", r.URL.Query().Get("query"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"title":"Big Buck Bunny 1080p","size":1073741824,"seeders":42,"leechers":3,
			 "magnetUrl":"magnet:?xt=urn:btih:abc","indexer":"Public","publishDate":"2024-01-02T03:04:05Z"},
			{"title":"Big Buck Bunny 720p","size":536870912,"seeders":7,"leechers":1,
			 "downloadUrl":"http://prowlarr/download/1","indexer":"Public","publishDate":"2023-01-02T03:04:05Z"}
		]`))
	}))
	defer srv.Close()

	results, err := NewProwlarr(srv.URL, "key").SearchTorrents(context.Background(), "big buck bunny")
	if err != nil {
		t.Fatalf("SearchTorrents: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d", len(results))
	}
	if results[0].Seeders != 42 || results[0].Magnet != "magnet:?xt=urn:btih:abc" || results[0].Published.Year() != 2024 {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Magnet != "http://prowlarr/download/1" {
		t.Errorf("download URL should stand in for a missing magnet: %+v", results[1])
	}
}

func TestSearchTorrents_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := NewProwlarr(srv.URL, "bad").SearchTorrents(context.Background(), "q"); err == nil {
		t.Fatal("expected an error")
	}
}
