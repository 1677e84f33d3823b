package shutdown

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func TestManager_RunsStepsInOrder(t *testing.T) {
	m := NewManager(time.Second)
	var order []string
	for _, name := range []string{"sessions", "daemon", "transport"} {
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if strings.Join(order, ",") != "sessions,daemon,transport" {
		t.Errorf("order = %v", order)
	}
}

func TestManager_FailingStepDoesNotSkipLaterSteps(t *testing.T) {
	m := NewManager(time.Second)
	boom := errors.New("boom")
	ran := false
	m.Register("daemon", func(context.Context) error { return boom })
	m.Register("transport", func(context.Context) error {
		ran = true
		return nil
	})

	err := m.Shutdown()
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if !ran {
		t.Error("transport step should still run")
	}
}

func TestManager_ShutdownRunsOnce(t *testing.T) {
	m := NewManager(time.Second)
	calls := 0
	m.Register("count", func(context.Context) error {
		calls++
		return nil
	})
	_ = m.Shutdown()
	_ = m.Shutdown()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestLifecycle(t *testing.T) {
	l := NewLifecycle()
	if l.IsShuttingDown() {
		t.Fatal("new lifecycle should not be shutting down")
	}
	l.RequestShutdown()
	l.RequestShutdown()
	if !l.IsShuttingDown() {
		t.Fatal("lifecycle should be shutting down")
	}
	select {
	case <-l.Done():
	default:
		t.Fatal("Done should be closed")
	}
	if l.Context().Err() == nil {
		t.Error("context should be cancelled")
	}
}
