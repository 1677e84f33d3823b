package opensubtitles

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/search"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.opensubtitles.com/api/v1"
	userAgent      = "mediagram v1.0"
)

// Client talks to the OpenSubtitles REST API. Searching needs only the API key; downloading
// needs a user token, fetched lazily with the configured credentials.
type Client struct {
	Client   *resty.Client
	username string
	password string

	mu    sync.Mutex
	token string
}

var _ search.SubtitleProvider = (*Client)(nil)

type loginResponse struct {
	Token string `json:"token"`
}

type subtitlesResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Language      string `json:"language"`
			DownloadCount int    `json:"download_count"`
			Release       string `json:"release"`
			Format        string `json:"format"`
			Files         []struct {
				FileID   int    `json:"file_id"`
				FileName string `json:"file_name"`
			} `json:"files"`
		} `json:"attributes"`
	} `json:"data"`
}

type downloadResponse struct {
	Link      string `json:"link"`
	FileName  string `json:"file_name"`
	Remaining int    `json:"remaining"`
}

func NewClient(baseURL, apiKey, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Api-Key", apiKey).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{Client: client, username: username, password: password}
}

// SearchSubtitles returns hits for query in one language, most downloaded first.
func (c *Client) SearchSubtitles(ctx context.Context, query, language string) ([]search.Subtitle, error) {
	var out subtitlesResponse
	resp, err := c.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":              strings.ToLower(query),
			"languages":          strings.ToLower(language),
			"foreign_parts_only": "exclude",
			"order_by":           "download_count",
			"order_direction":    "desc",
		}).
		SetResult(&out).
		Get("/subtitles")
	if err != nil {
		return nil, fmt.Errorf("failed to search subtitles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("opensubtitles search error: %s", resp.Status())
	}

	results := make([]search.Subtitle, 0, len(out.Data))
	for _, d := range out.Data {
		if len(d.Attributes.Files) == 0 {
			continue
		}
		file := d.Attributes.Files[0]
		name := d.Attributes.Release
		if name == "" {
			name = file.FileName
		}
		ext := d.Attributes.Format
		if ext == "" {
			ext = "srt"
		}
		results = append(results, search.Subtitle{
			FileID:        file.FileID,
			Name:          name,
			Language:      d.Attributes.Language,
			DownloadCount: d.Attributes.DownloadCount,
			Ext:           ext,
		})
	}
	logutils.Log.WithFields(map[string]any{"query": query, "language": language, "results": len(results)}).Info("Subtitle search done")
	return results, nil
}

// DownloadSubtitle asks for a temporary link and fetches the file.
func (c *Client) DownloadSubtitle(ctx context.Context, fileID int) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var link downloadResponse
	resp, err := c.Client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]int{"file_id": fileID}).
		SetResult(&link).
		Post("/download")
	if err != nil {
		return nil, fmt.Errorf("failed to request subtitle download: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("opensubtitles download error: %s", resp.Status())
	}
	if link.Link == "" {
		return nil, fmt.Errorf("opensubtitles returned no download link")
	}
	logutils.Log.WithFields(map[string]any{"file_id": fileID, "remaining": link.Remaining}).Info("Subtitle download granted")

	file, err := c.Client.R().SetContext(ctx).Get(link.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtitle file: %w", err)
	}
	if file.IsError() {
		return nil, fmt.Errorf("subtitle file fetch error: %s", file.Status())
	}
	return file.Body(), nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	if c.username == "" {
		return "", fmt.Errorf("opensubtitles credentials are not configured")
	}

	var login loginResponse
	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": c.username, "password": c.password}).
		SetResult(&login).
		Post("/login")
	if err != nil {
		return "", fmt.Errorf("failed to login to opensubtitles: %w", err)
	}
	if resp.IsError() || login.Token == "" {
		return "", fmt.Errorf("opensubtitles login error: %s", resp.Status())
	}
	c.token = login.Token
	logutils.Log.Info("Logged in to OpenSubtitles")
	return c.token, nil
}
