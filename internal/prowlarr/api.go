package prowlarr

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
	"github.com/go-resty/resty/v2"
)

// Prowlarr is a torrent index client. Client must be initialized with base URL and API key.
type Prowlarr struct {
	Client  *resty.Client
	BaseURL string // e.g. http://localhost:9696
}

var _ search.TorrentProvider = (*Prowlarr)(nil)

// searchItem is one entry of /api/v1/search. Only the fields the bot renders are decoded.
type searchItem struct {
	Title       string    `json:"title"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	MagnetURL   string    `json:"magnetUrl"`
	DownloadURL string    `json:"downloadUrl"`
	IndexerName string    `json:"indexer"`
	PublishDate time.Time `json:"publishDate"`
}

func NewProwlarr(baseURL, apiKey string) *Prowlarr {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-Api-Key", apiKey).
		SetTimeout(60 * time.Second)
	logutils.Log.Infof("Initialized Prowlarr client with baseURL: %s", baseURL)
	return &Prowlarr{Client: client, BaseURL: baseURL}
}

// SearchTorrents runs a free-text search across all indexers.
func (p *Prowlarr) SearchTorrents(ctx context.Context, query string) ([]search.Torrent, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")
	params.Set("limit", "100")

	logutils.Log.WithField("query", query).Info("Searching torrents")
	var items []searchItem
	resp, err := p.Client.R().
		SetContext(ctx).
		SetQueryString(params.Encode()).
		SetResult(&items).
		Get("/api/v1/search")
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to perform search request to Prowlarr")
		return nil, fmt.Errorf("failed to perform search request: %w", err)
	}
	if resp.IsError() {
		logutils.Log.WithField("status", resp.Status()).Warn("Prowlarr search returned error status")
		return nil, fmt.Errorf("prowlarr search error: %s", resp.Status())
	}

	results := make([]search.Torrent, 0, len(items))
	for _, it := range items {
		link := it.MagnetURL
		if link == "" {
			link = it.DownloadURL
		}
		results = append(results, search.Torrent{
			Name:      it.Title,
			Seeders:   it.Seeders,
			Leechers:  it.Leechers,
			Size:      it.Size,
			Magnet:    link,
			Indexer:   it.IndexerName,
			Published: it.PublishDate,
		})
	}
	logutils.Log.Infof("Prowlarr search returned %d results", len(results))
	return results, nil
}
