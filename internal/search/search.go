package search

import (
	"context"
	"sort"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/metrics"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/cenkalti/backoff/v4"
)

// MaxResults is bound by the number of quick-select tokens.
const MaxResults = 5

// QuickTokens label the selectable results, in display order.
var QuickTokens = [MaxResults]string{"1", "2", "3", "4", "5"}

// Torrent is one torrent index hit.
type Torrent struct {
	Name      string
	Seeders   int
	Leechers  int
	Size      int64
	Magnet    string
	Indexer   string
	Published time.Time
}

// Subtitle is one subtitle index hit.
type Subtitle struct {
	FileID        int
	Name          string
	Language      string
	DownloadCount int
	Ext           string
}

type TorrentProvider interface {
	SearchTorrents(ctx context.Context, query string) ([]Torrent, error)
}

type SubtitleProvider interface {
	SearchSubtitles(ctx context.Context, query, language string) ([]Subtitle, error)
	DownloadSubtitle(ctx context.Context, fileID int) ([]byte, error)
}

// RetryPolicy bounds how often an empty or failed provider answer is retried.
type RetryPolicy struct {
	Attempts int
	Wait     time.Duration
}

// retry calls fetch until it returns at least one item, at most p.Attempts times.
func retry[T any](ctx context.Context, p RetryPolicy, provider string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Wait), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	var items []T
	err := backoff.Retry(func() error {
		attempt++
		got, err := fetch(ctx)
		if err != nil {
			logutils.Log.WithError(err).WithFields(map[string]any{
				"provider": provider,
				"attempt":  attempt,
			}).Warn("Search attempt failed")
			return err
		}
		if len(got) == 0 {
			logutils.Log.WithFields(map[string]any{"provider": provider, "attempt": attempt}).Debug("Search attempt returned nothing")
			return utils.ErrNoResult
		}
		items = got
		return nil
	}, policy)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(provider, "no_result").Inc()
		return nil, utils.WrapError(utils.ErrNoResult, "search gave up", map[string]any{
			"provider": provider,
			"attempts": attempt,
		})
	}
	metrics.SearchRequests.WithLabelValues(provider, "ok").Inc()
	return items, nil
}

// Torrents selects the best torrent hits.
type Torrents struct {
	provider   TorrentProvider
	minSeeders int
	retry      RetryPolicy
}

func NewTorrents(provider TorrentProvider, minSeeders int, retry RetryPolicy) *Torrents {
	return &Torrents{provider: provider, minSeeders: minSeeders, retry: retry}
}

// Query drops hits under the seeder threshold, orders by seeders and keeps MaxResults.
// The cap applies after filtering.
func (t *Torrents) Query(ctx context.Context, query string) ([]Torrent, error) {
	raw, err := retry(ctx, t.retry, "torrents", func(ctx context.Context) ([]Torrent, error) {
		return t.provider.SearchTorrents(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	selected := SelectTorrents(raw, t.minSeeders)
	if len(selected) == 0 {
		return nil, utils.WrapError(utils.ErrNoResult, "no result above seeder threshold", map[string]any{
			"min_seeders": t.minSeeders,
		})
	}
	logutils.Log.WithFields(map[string]any{"query": query, "raw": len(raw), "selected": len(selected)}).Info("Torrent search done")
	return selected, nil
}

// SelectTorrents filters by minSeeders, sorts by seeders (stable) and caps at MaxResults.
func SelectTorrents(raw []Torrent, minSeeders int) []Torrent {
	kept := make([]Torrent, 0, len(raw))
	for _, t := range raw {
		if t.Seeders >= minSeeders && t.Magnet != "" {
			kept = append(kept, t)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Seeders > kept[j].Seeders })
	if len(kept) > MaxResults {
		kept = kept[:MaxResults]
	}
	return kept
}

// Subtitles selects the most downloaded subtitles.
type Subtitles struct {
	provider SubtitleProvider
	retry    RetryPolicy
}

func NewSubtitles(provider SubtitleProvider, retry RetryPolicy) *Subtitles {
	return &Subtitles{provider: provider, retry: retry}
}

func (s *Subtitles) Query(ctx context.Context, filename, language string) ([]Subtitle, error) {
	raw, err := retry(ctx, s.retry, "subtitles", func(ctx context.Context) ([]Subtitle, error) {
		return s.provider.SearchSubtitles(ctx, filename, language)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].DownloadCount > raw[j].DownloadCount })
	if len(raw) > MaxResults {
		raw = raw[:MaxResults]
	}
	return raw, nil
}

func (s *Subtitles) Download(ctx context.Context, sub Subtitle) ([]byte, error) {
	return s.provider.DownloadSubtitle(ctx, sub.FileID)
}
