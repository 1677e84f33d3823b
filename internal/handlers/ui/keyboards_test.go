package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
)

func TestMain(m *testing.M) {
	logutils.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		ok   bool
		want Callback
	}{
		{CallbackData("f1", ActionPick, "3"), true, Callback{FlowID: "f1", Action: ActionPick, Arg: "3"}},
		{CallbackData("f1", ActionCancel, ""), true, Callback{FlowID: "f1", Action: ActionCancel}},
		{"f1|pick", false, Callback{}},
		{"|pick|1", false, Callback{}},
		{"", false, Callback{}},
	}
	for _, tt := range tests {
		got, ok := ParseCallback(tt.data)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCallback(%q) = %+v, %v; want %+v, %v", tt.data, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCallbackIndex(t *testing.T) {
	if i, ok := (Callback{Arg: "4"}).Index(); !ok || i != 4 {
		t.Errorf("Index() = %d, %v", i, ok)
	}
	if _, ok := (Callback{Arg: "-1"}).Index(); ok {
		t.Error("negative index accepted")
	}
	if _, ok := (Callback{Arg: "x"}).Index(); ok {
		t.Error("non-numeric index accepted")
	}
}

func TestChoiceKeyboard(t *testing.T) {
	flowID := "123e4567-e89b-12d3-a456-426614174000"
	kb := ChoiceKeyboard(flowID, ActionPick, []string{"a", strings.Repeat("x", 200)})

	if len(kb.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, want 2 choices + cancel", len(kb.InlineKeyboard))
	}
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData == nil || len(*b.CallbackData) > 64 {
				t.Errorf("callback data %v exceeds Telegram limit", b.CallbackData)
			}
		}
	}
	if got := []rune(kb.InlineKeyboard[1][0].Text); len(got) > maxLabelRunes {
		t.Errorf("label not truncated: %d runes", len(got))
	}
}

func TestTokenKeyboard(t *testing.T) {
	kb := TokenKeyboard("f", []string{"1", "2", "3"})
	if len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[0]) != 3 {
		t.Fatalf("unexpected layout: %+v", kb.InlineKeyboard)
	}
	cb, ok := ParseCallback(*kb.InlineKeyboard[0][2].CallbackData)
	if !ok || cb.Action != ActionPick || cb.Arg != "3" {
		t.Errorf("third token = %+v", cb)
	}
}
