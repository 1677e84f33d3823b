package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

// Lifecycle is the one-shot shutdown flag of a single service run. Sessions observe it
// once per poll cycle and handlers refuse new downloads once it is set.
type Lifecycle struct {
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

func NewLifecycle() *Lifecycle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{ctx: ctx, cancel: cancel, startedAt: time.Now()}
}

func (l *Lifecycle) IsShuttingDown() bool {
	return l.ctx.Err() != nil
}

// RequestShutdown is idempotent.
func (l *Lifecycle) RequestShutdown() {
	l.cancel()
}

// Done is closed once shutdown has been requested.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Context is cancelled once shutdown has been requested.
func (l *Lifecycle) Context() context.Context {
	return l.ctx
}

func (l *Lifecycle) StartedAt() time.Time {
	return l.startedAt
}

// RequestOnSignal requests shutdown on SIGINT, SIGTERM or SIGHUP. The returned func stops listening.
func RequestOnSignal(l *Lifecycle) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	quit := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logutils.Log.WithField("signal", sig.String()).Info("Received shutdown signal")
			l.RequestShutdown()
		case <-quit:
		case <-l.Done():
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(quit)
	}
}
