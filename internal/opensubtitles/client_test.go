package opensubtitles

import (
	"context"
	"encoding/json"
	"io"
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

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "user" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"token":"tok"}`)
	})
	mux.HandleFunc("/subtitles", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "key" {
			t.Error("missing Api-Key header")
		}
		if r.URL.Query().Get("languages") != "en" || r.URL.Query().Get("order_by") != "download_count" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[
			{"id":"1","attributes":{"language":"en","download_count":900,"release":"Movie.2020.1080p","format":"srt",
			 "files":[{"file_id":101,"file_name":"movie.srt"}]}},
			{"id":"2","attributes":{"language":"en","download_count":5,"release":"","files":[]}}
		]}`)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"link":"`+srv.URL+`/file/101","file_name":"movie.srt","remaining":19}`)
	})
	mux.HandleFunc("/file/101", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "1\n00:00:01,000 --> 00:00:02,000\nHello\n")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchAndDownload(t *testing.T) {
	srv := newFakeAPI(t)
	c := NewClient(srv.URL, "key", "user", "pass")
	ctx := context.Background()

	subs, err := c.SearchSubtitles(ctx, "Movie.2020.mkv", "EN")
	if err != nil {
		t.Fatalf("SearchSubtitles: %v", err)
	}
	if len(subs) != 1 || subs[0].FileID != 101 || subs[0].DownloadCount != 900 || subs[0].Ext != "srt" {
		t.Fatalf("subs = %+v", subs)
	}

	data, err := c.DownloadSubtitle(ctx, subs[0].FileID)
	if err != nil {
		t.Fatalf("DownloadSubtitle: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty subtitle body")
	}
}

func TestDownloadWithoutCredentials(t *testing.T) {
	srv := newFakeAPI(t)
	c := NewClient(srv.URL, "key", "", "")
	if _, err := c.DownloadSubtitle(context.Background(), 101); err == nil {
		t.Fatal("expected an error without credentials")
	}
}
