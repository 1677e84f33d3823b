package qbittorrent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

const apiPrefix = "/api/v2"

// errForbidden marks a 403 answer, which qBittorrent returns once the SID cookie expires.
var errForbidden = errors.New("qBittorrent: forbidden")

// Client talks to qBittorrent Web API (v2). It logs in lazily and logs in again once
// when a request is refused with 403.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu       sync.Mutex
	loggedIn bool
}

// NewClient builds a client. baseURL is the Web UI root, e.g. "http://localhost:8080".
func NewClient(baseURL, username, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// TorrentInfo is one entry from /torrents/info.
type TorrentInfo struct {
	Hash       string  `json:"hash"`
	Name       string  `json:"name"`
	Progress   float64 `json:"progress"`
	State      string  `json:"state"`
	Size       int64   `json:"size"`
	TotalSize  int64   `json:"total_size"`
	DlSpeed    int64   `json:"dlspeed"`
	ETA        int64   `json:"eta"` // seconds, 8640000 means unknown
	NumSeeds   int     `json:"num_seeds"`
	NumLeechs  int     `json:"num_leechs"`
	AddedOn    int64   `json:"added_on"`
	SavePath   string  `json:"save_path"`
	AmountLeft int64   `json:"amount_left"`
}

// request builds a fresh body on every call so a request can be replayed after re-login.
type request struct {
	method string
	path   string
	query  url.Values
	body   func() (io.Reader, string, error)
	op     string
}

func formBody(form url.Values) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	body, err := c.send(ctx, &request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   formBody(form),
		op:     "login",
	})
	if errors.Is(err, errForbidden) {
		return fmt.Errorf("qBittorrent: login forbidden (IP banned or too many attempts)")
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(body)) == "Fails." {
		return fmt.Errorf("qBittorrent: login rejected for user %q", c.username)
	}
	c.loggedIn = true
	logutils.Log.WithField("url", c.baseURL).Debug("qBittorrent login succeeded")
	return nil
}

// Logout ends the Web API session. Calling it while logged out is a no-op.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		return nil
	}
	_, err := c.send(ctx, &request{method: http.MethodPost, path: "/auth/logout", body: formBody(url.Values{}), op: "logout"})
	c.loggedIn = false
	return err
}

// AddMagnet adds a torrent from a magnet or .torrent URL. savePath is the download directory.
func (c *Client) AddMagnet(ctx context.Context, uri, savePath string) error {
	form := url.Values{}
	form.Set("urls", uri)
	form.Set("savepath", savePath)
	_, err := c.do(ctx, &request{method: http.MethodPost, path: "/torrents/add", body: formBody(form), op: "add urls"})
	return err
}

// AddTorrentFile uploads a .torrent file. savePath is the download directory.
func (c *Client) AddTorrentFile(ctx context.Context, filename string, torrentBody []byte, savePath string) error {
	build := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("torrents", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(torrentBody); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("savepath", savePath); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}
	_, err := c.do(ctx, &request{method: http.MethodPost, path: "/torrents/add", body: build, op: "add file"})
	return err
}

// Torrents returns the torrent list. hashes is pipe-separated, empty for all.
// sort is a TorrentInfo json field, e.g. "added_on".
func (c *Client) Torrents(ctx context.Context, hashes, sort string, reverse bool) ([]TorrentInfo, error) {
	params := url.Values{}
	if hashes != "" {
		params.Set("hashes", hashes)
	}
	if sort != "" {
		params.Set("sort", sort)
		if reverse {
			params.Set("reverse", "true")
		}
	}
	body, err := c.do(ctx, &request{method: http.MethodGet, path: "/torrents/info", query: params, op: "torrents/info"})
	if err != nil {
		return nil, err
	}
	var list []TorrentInfo
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("qBittorrent: decode torrents/info: %w", err)
	}
	return list, nil
}

// Delete removes torrents. hashes is pipe-separated or "all"; deleteFiles also removes downloaded data.
func (c *Client) Delete(ctx context.Context, hashes string, deleteFiles bool) error {
	form := url.Values{}
	form.Set("hashes", hashes)
	form.Set("deleteFiles", fmt.Sprintf("%t", deleteFiles))
	_, err := c.do(ctx, &request{method: http.MethodPost, path: "/torrents/delete", body: formBody(form), op: "delete"})
	return err
}

// do sends an authenticated request, logging in first if needed and once more on 403.
func (c *Client) do(ctx context.Context, r *request) ([]byte, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}
	body, err := c.send(ctx, r)
	if !errors.Is(err, errForbidden) {
		return body, err
	}

	logutils.Log.WithField("op", r.op).Debug("qBittorrent session expired, logging in again")
	c.mu.Lock()
	c.loggedIn = false
	loginErr := c.loginLocked(ctx)
	c.mu.Unlock()
	if loginErr != nil {
		return nil, loginErr
	}
	return c.send(ctx, r)
}

func (c *Client) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	return c.loginLocked(ctx)
}

func (c *Client) send(ctx context.Context, r *request) ([]byte, error) {
	u := c.baseURL + apiPrefix + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var (
		payload     io.Reader = http.NoBody
		contentType string
	)
	if r.body != nil {
		var err error
		if payload, contentType, err = r.body(); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, payload)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Referer", c.baseURL+"/")
	// #nosec G704 -- baseURL is from config (QB_ADDR), not user input
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, errForbidden
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qBittorrent: %s failed status=%d body=%s", r.op, resp.StatusCode, string(body))
	}
	return body, nil
}
