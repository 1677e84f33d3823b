package manager

import (
	"context"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/config"
	"github.com/NikitaDmitryuk/mediagram/internal/database"
	"github.com/NikitaDmitryuk/mediagram/internal/downloader"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Session follows one transfer and owns its progress message. Only its own goroutine touches it
// after Start returns.
type Session struct {
	TorrentID   string
	DisplayName string
	Kind        downloader.Kind
	MessageID   int
	StartedAt   time.Time

	manager *Manager
	last    *downloader.TorrentStatus
	state   State
	log     *logrus.Entry
}

func newSession(m *Manager, sub Submission, status downloader.TorrentStatus) *Session {
	name := sub.DisplayName
	if name == "" {
		name = status.Name
	}
	snapshot := status
	return &Session{
		TorrentID:   status.ID,
		DisplayName: name,
		Kind:        sub.Kind,
		StartedAt:   time.Now(),
		manager:     m,
		last:        &snapshot,
		state:       StateSubmitted,
		log: logutils.Log.WithFields(logrus.Fields{
			"torrent_id": status.ID,
			"name":       name,
		}),
	}
}

func (s *Session) State() State {
	return s.state
}

// run polls until the transfer completes, vanishes or shutdown is requested.
func (s *Session) run() {
	m := s.manager
	s.state = StatePolling

	ticker := time.NewTicker(m.settings.PollInterval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for !s.last.Complete() {
		if m.lifecycle.IsShuttingDown() {
			s.finish(StateAborted, false)
			return
		}
		select {
		case <-m.lifecycle.Done():
			s.finish(StateAborted, false)
			return
		case <-ticker.C:
		}

		status, found, err := s.fetch()
		if err != nil {
			consecutiveErrors++
			metrics.DaemonPollErrors.Inc()
			s.log.WithError(err).WithField("consecutive_errors", consecutiveErrors).Warn("Status poll failed")
			if m.settings.PollErrorPolicy == config.PollErrorVanish {
				s.finish(StateVanished, false)
				return
			}
			continue
		}
		consecutiveErrors = 0

		if !m.limiter.TryAcquire() {
			continue
		}
		if !found {
			s.finish(StateVanished, true)
			return
		}
		if status == *s.last {
			continue
		}
		snapshot := status
		s.last = &snapshot
		if status.Complete() {
			break
		}
		s.edit(s.renderProgress(status))
	}
	s.finish(StateDone, true)
}

func (s *Session) fetch() (downloader.TorrentStatus, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), daemonCallTimeout)
	defer cancel()
	return s.manager.daemon.ByID(ctx, s.TorrentID)
}

// finish performs the single cleanup of a terminal state and the terminal edit.
// granted tells whether the caller already holds a limiter release for that edit.
func (s *Session) finish(state State, granted bool) {
	m := s.manager
	ctx, cancel := context.WithTimeout(context.Background(), daemonCallTimeout)
	defer cancel()

	switch state {
	case StateDone:
		if err := m.daemon.Delete(ctx, s.TorrentID, false); err != nil {
			s.log.WithError(err).Warn("Failed to remove completed transfer from daemon")
		}
	case StateAborted:
		if err := m.daemon.Delete(ctx, s.TorrentID, true); err != nil {
			s.log.WithError(err).Warn("Failed to remove aborted transfer from daemon")
		}
		s.removeLocalData()
	case StateVanished:
		s.removeLocalData()
	}
	s.state = state

	if !granted {
		s.awaitRelease(m.limiter.Interval())
	}
	s.edit(s.renderTerminal(state))

	metrics.SessionOutcomes.WithLabelValues(state.String()).Inc()
	s.record(ctx, state)
	s.log.WithFields(logrus.Fields{
		"state":    state.String(),
		"duration": time.Since(s.StartedAt).Round(time.Second),
	}).Info("Download session finished")
}

// awaitRelease waits at most maxWait for a limiter release, then proceeds anyway.
func (s *Session) awaitRelease(maxWait time.Duration) {
	const step = 20 * time.Millisecond
	deadline := time.Now().Add(maxWait)
	for !s.manager.limiter.TryAcquire() {
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(step)
	}
}

func (s *Session) removeLocalData() {
	name := s.contentName()
	if err := s.manager.cleaner.RemoveEntry(name); err != nil {
		s.log.WithError(err).WithField("entry", name).Warn("Failed to remove local data")
	}
}

// contentName is the entry the daemon writes under the download directory.
func (s *Session) contentName() string {
	if s.last != nil && s.last.Name != "" {
		return s.last.Name
	}
	return s.DisplayName
}

func (s *Session) edit(text string) {
	if err := s.manager.notifier.EditMessage(s.MessageID, text, nil); err != nil {
		s.log.WithError(err).Warn("Failed to edit progress message")
		return
	}
	metrics.NotificationEdits.Inc()
}

func (s *Session) record(ctx context.Context, state State) {
	if s.manager.history == nil {
		return
	}
	var size int64
	if s.last != nil {
		size = s.last.TotalSize
	}
	err := s.manager.history.RecordDownload(ctx, &database.Download{
		TorrentID:  s.TorrentID,
		Name:       s.contentName(),
		Kind:       s.Kind.String(),
		Outcome:    state.String(),
		Size:       size,
		StartedAt:  s.StartedAt,
		FinishedAt: time.Now(),
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to record download history")
	}
}
