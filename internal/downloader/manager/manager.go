package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/bot"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/metrics"
	"github.com/NikitaDmitryuk/mediagram/internal/ratelimit"
	"github.com/NikitaDmitryuk/mediagram/internal/shutdown"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Manager is the session registry. It spawns one polling goroutine per transfer and joins
// them all on shutdown.
type Manager struct {
	lifecycle *shutdown.Lifecycle
	daemon    Daemon
	notifier  bot.Service
	limiter   *ratelimit.Limiter
	cleaner   Cleaner
	history   database.HistoryWriter
	settings  Settings

	// mu orders registration against CancelAll so no session is added after the join began.
	mu     sync.Mutex
	group  errgroup.Group
	active map[string]*Session
}

// NewManager wires a registry. history may be nil.
func NewManager(
	lifecycle *shutdown.Lifecycle,
	daemon Daemon,
	notifier bot.Service,
	limiter *ratelimit.Limiter,
	cleaner Cleaner,
	history database.HistoryWriter,
	settings Settings,
) *Manager {
	return &Manager{
		lifecycle: lifecycle,
		daemon:    daemon,
		notifier:  notifier,
		limiter:   limiter,
		cleaner:   cleaner,
		history:   history,
		settings:  settings,
		active:    make(map[string]*Session),
	}
}

// Start binds a just-submitted transfer to its daemon id, sends the first progress message
// and spawns the polling goroutine.
func (m *Manager) Start(sub Submission) (*Session, error) {
	if m.lifecycle.IsShuttingDown() {
		return nil, utils.ErrShuttingDown
	}

	status, err := m.bind(sub)
	if err != nil {
		metrics.Submissions.WithLabelValues(sub.Kind.String(), "unbound").Inc()
		return nil, err
	}
	if m.isActive(status.ID) {
		return nil, utils.WrapError(utils.ErrAlreadyTracked, "transfer is already being watched", map[string]any{
			"torrent_id": status.ID,
		})
	}

	s := newSession(m, sub, status)
	messageID, err := m.notifier.SendMessage(s.renderProgress(status), nil)
	if err != nil {
		metrics.Submissions.WithLabelValues(sub.Kind.String(), "failed").Inc()
		return nil, utils.WrapError(err, "failed to send progress message", map[string]any{"torrent_id": status.ID})
	}
	s.MessageID = messageID

	m.mu.Lock()
	if m.lifecycle.IsShuttingDown() {
		m.mu.Unlock()
		s.finish(StateAborted, false)
		return nil, utils.ErrShuttingDown
	}
	m.active[s.TorrentID] = s
	metrics.ActiveSessions.Inc()
	m.group.Go(func() error {
		defer m.unregister(s)
		s.run()
		return nil
	})
	m.mu.Unlock()

	metrics.Submissions.WithLabelValues(sub.Kind.String(), "started").Inc()
	s.log.Info("Download session started")
	return s, nil
}

// bind waits briefly for the daemon to list the new transfer.
func (m *Manager) bind(sub Submission) (downloader.TorrentStatus, error) {
	for attempt := 1; ; attempt++ {
		status, found, err := m.lookupSubmission(sub, attempt == bindAttempts)
		if err != nil {
			return downloader.TorrentStatus{}, err
		}
		if found {
			return status, nil
		}
		if attempt == bindAttempts {
			return downloader.TorrentStatus{}, utils.WrapError(utils.ErrTorrentNotFound, "daemon did not list the new transfer", map[string]any{
				"name": sub.DisplayName,
			})
		}
		select {
		case <-m.lifecycle.Done():
			return downloader.TorrentStatus{}, utils.ErrShuttingDown
		case <-time.After(bindDelay):
		}
	}
}

func (m *Manager) lookupSubmission(sub Submission, lastAttempt bool) (downloader.TorrentStatus, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), daemonCallTimeout)
	defer cancel()

	if sub.InfoHash == "" {
		return m.daemon.MostRecentlyAdded(ctx)
	}
	status, found, err := m.daemon.ByID(ctx, sub.InfoHash)
	if err != nil || found || !lastAttempt {
		return status, found, err
	}
	logutils.Log.WithField("info_hash", sub.InfoHash).Warn("Infohash not listed, falling back to most recent transfer")
	return m.daemon.MostRecentlyAdded(ctx)
}

func (m *Manager) isActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}

func (m *Manager) unregister(s *Session) {
	m.mu.Lock()
	delete(m.active, s.TorrentID)
	m.mu.Unlock()
	metrics.ActiveSessions.Dec()
}

// Active lists running sessions, oldest first.
func (m *Manager) Active() []ActiveSession {
	m.mu.Lock()
	out := make([]ActiveSession, 0, len(m.active))
	for _, s := range m.active {
		out = append(out, ActiveSession{
			TorrentID:   s.TorrentID,
			DisplayName: s.DisplayName,
			Kind:        s.Kind,
			StartedAt:   s.StartedAt,
		})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// CancelAll signals shutdown and blocks until every session has reached a terminal state.
// Start registers under mu, so once the flag is set and mu was taken no Go call can race the join.
func (m *Manager) CancelAll() {
	m.lifecycle.RequestShutdown()

	m.mu.Lock()
	pending := len(m.active)
	m.mu.Unlock()

	logutils.Log.WithField("sessions", pending).Info("Cancelling download sessions")
	_ = m.group.Wait()
	logutils.Log.Info("All download sessions joined")
}

// Shutdown adapts CancelAll to a shutdown step.
func (m *Manager) Shutdown(context.Context) error {
	m.CancelAll()
	return nil
}
