package app

import (
	"os"
	"testing"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/handlers"
	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/shutdown"
	"github.com/NikitaDmitryuk/mediagram/internal/testutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func TestProcessUpdates_StopsOnShutdown(t *testing.T) {
	lifecycle := shutdown.NewLifecycle()
	updates := make(chan tgbotapi.Update)
	router := handlers.NewHandler(handlers.Options{ChatID: 1, Bot: &testutils.MockBot{}, Lifecycle: lifecycle})

	done := make(chan struct{})
	go func() {
		processUpdates(lifecycle, updates, router)
		close(done)
	}()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 99}, Text: "hello"}}
	lifecycle.RequestShutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch loop did not stop after shutdown was requested")
	}
}

func TestProcessUpdates_ClosedChannelRequestsShutdown(t *testing.T) {
	lifecycle := shutdown.NewLifecycle()
	updates := make(chan tgbotapi.Update)
	close(updates)

	processUpdates(lifecycle, updates, handlers.NewHandler(handlers.Options{Lifecycle: lifecycle}))

	if !lifecycle.IsShuttingDown() {
		t.Error("closed update channel should request shutdown")
	}
}
