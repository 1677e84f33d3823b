package logutils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{" warn ", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		InitLogger(tt.input)
		if got := Log.GetLevel(); got != tt.expected {
			t.Errorf("InitLogger(%q) level = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
