package session

import (
	"errors"
	"os"
	"testing"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/testutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("debug")
	os.Exit(m.Run())
}

func TestContext_CancelClearsFully(t *testing.T) {
	c := NewContext()
	bot := &testutils.MockBot{}

	first, err := c.Begin(StageSearchResults)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.Push(StageSearchResults, 10)
	c.Push(StageSearchConfirm, 11)
	c.SetSelectedFile("movie.mkv")
	c.SetMagnets(map[string]string{"1": "magnet:?xt=urn:btih:abc"})
	c.Set("results", []string{"a"})

	if n := c.Cancel(bot); n != 2 {
		t.Errorf("Cancel retracted %d, want 2", n)
	}
	if deleted := bot.Deleted(); len(deleted) != 2 {
		t.Errorf("deleted = %v", deleted)
	}
	if c.Len() != 0 || c.Active() || c.SelectedFile() != "" || c.Get("results") != nil {
		t.Error("context should be empty after Cancel")
	}
	if _, ok := c.Magnet("1"); ok {
		t.Error("magnet table leaked past Cancel")
	}
	if c.Owns(first) {
		t.Error("cancelled flow id must be stale")
	}

	second, err := c.Begin(StageDeletePick)
	if err != nil {
		t.Fatalf("Begin after Cancel: %v", err)
	}
	if second == first {
		t.Error("new flow reused the old flow id")
	}
	c.Push(StageDeletePick, 20)
	if c.Len() != 1 || c.Stage() != StageDeletePick {
		t.Errorf("len = %d stage = %q", c.Len(), c.Stage())
	}
}

func TestContext_CancelIdleIsNoop(t *testing.T) {
	c := NewContext()
	bot := &testutils.MockBot{}
	if n := c.Cancel(bot); n != 0 {
		t.Errorf("Cancel on idle context retracted %d", n)
	}
	if len(bot.Deleted()) != 0 {
		t.Error("nothing should be deleted")
	}
}

func TestContext_ClearKeepsLastMessage(t *testing.T) {
	c := NewContext()
	bot := &testutils.MockBot{}
	if _, err := c.Begin(StageMovePick); err != nil {
		t.Fatal(err)
	}
	c.Push(StageMovePick, 1)
	c.Push(StageMoveTarget, 2)
	c.Push(StageMoveTarget, 3)

	c.Clear(bot)

	deleted := bot.Deleted()
	if len(deleted) != 2 || deleted[0] != 1 || deleted[1] != 2 {
		t.Errorf("deleted = %v, want [1 2]", deleted)
	}
	if c.Active() || c.Len() != 0 {
		t.Error("Clear should end the flow")
	}
}

func TestContext_BeginWhileActive(t *testing.T) {
	c := NewContext()
	if _, err := c.Begin(StageSubtitlePick); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Begin(StageSearchResults); !errors.Is(err, utils.ErrFlowActive) {
		t.Errorf("err = %v, want ErrFlowActive", err)
	}
	if c.Stage() != StageSubtitlePick {
		t.Errorf("stage = %q", c.Stage())
	}
}
