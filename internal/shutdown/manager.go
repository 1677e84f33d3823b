package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

// StepFunc is one stage of the shutdown sequence.
type StepFunc func(ctx context.Context) error

type step struct {
	name string
	fn   StepFunc
}

// Manager runs registered steps one after another in registration order.
// A failing step is logged and collected; later steps still run.
type Manager struct {
	steps   []step
	timeout time.Duration
	mu      sync.Mutex
	once    sync.Once
	err     error
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

func (m *Manager) Register(name string, fn StepFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, step{name: name, fn: fn})
	logutils.Log.WithField("step", name).Debug("Shutdown step registered")
}

// Shutdown runs the sequence once. Later calls return the first result.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		m.err = m.run()
	})
	return m.err
}

func (m *Manager) run() error {
	logutils.Log.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	steps := append([]step(nil), m.steps...)
	m.mu.Unlock()

	var errs []error
	for _, s := range steps {
		log := logutils.Log.WithField("step", s.name)
		log.Info("Running shutdown step")

		start := time.Now()
		if err := s.fn(ctx); err != nil {
			log.WithError(err).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		log.WithField("duration", time.Since(start)).Info("Shutdown step completed")
	}

	if len(errs) > 0 {
		logutils.Log.WithField("error_count", len(errs)).Error("Some shutdown steps failed")
		return errors.Join(errs...)
	}
	logutils.Log.Info("Graceful shutdown completed successfully")
	return nil
}
