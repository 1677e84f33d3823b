package utils

import (
	"errors"
	"testing"
)

func TestWrapError(t *testing.T) {
	originalErr := errors.New("original error")
	context := map[string]any{
		"key1": "value1",
		"key2": 123,
	}

	wrappedErr := WrapError(originalErr, "wrapped message", context)

	if !errors.Is(wrappedErr, originalErr) {
		t.Errorf("Wrapped error should contain the original error")
	}

	errorMsg := wrappedErr.Error()
	if errorMsg != "wrapped message: original error" {
		t.Errorf("Expected error message to be 'wrapped message: original error', got '%s'", errorMsg)
	}

	var wrappedError *WrappedError
	if !errors.As(wrappedErr, &wrappedError) {
		t.Errorf("Should be able to assert as WrappedError")
	}

	if wrappedError.Message != "wrapped message" {
		t.Errorf("Expected message 'wrapped message', got '%s'", wrappedError.Message)
	}

	if len(wrappedError.Context) != 2 {
		t.Errorf("Expected 2 context items, got %d", len(wrappedError.Context))
	}
}

func TestWrappedError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		message  string
		expected string
	}{
		{
			name:     "with message",
			err:      errors.New("test error"),
			message:  "wrapper message",
			expected: "wrapper message: test error",
		},
		{
			name:     "without message",
			err:      errors.New("test error"),
			message:  "",
			expected: "test error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &WrappedError{
				Err:     tt.err,
				Message: tt.message,
			}

			if wrapped.Error() != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, wrapped.Error())
			}
		})
	}
}

func TestRootError(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapError(WrapError(inner, "login", nil), "add magnet", nil)

	if got := RootError(err); got != inner {
		t.Errorf("RootError() = %v, want %v", got, inner)
	}
	if RootError(nil) != nil {
		t.Error("RootError(nil) should be nil")
	}
}

func TestIsMagnetLink(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"magnet:?xt=urn:btih:abcdef", true},
		{"  magnet:?xt=urn:btih:abcdef  ", true},
		{"magnet:?dn=name", false},
		{"https://example.com/file.torrent", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsMagnetLink(tt.input); got != tt.expected {
			t.Errorf("IsMagnetLink(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestIsTorrentFile(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		expected bool
	}{
		{"mime type", "application/x-bittorrent", "whatever.bin", true},
		{"extension fallback", "application/octet-stream", "Movie.TORRENT", true},
		{"other document", "application/pdf", "doc.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTorrentFile(tt.mime, tt.fileName); got != tt.expected {
				t.Errorf("IsTorrentFile(%q, %q) = %v, want %v", tt.mime, tt.fileName, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate kept = %q", got)
	}
	if got := Truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("Truncate = %q, want %q", got, "abcd…")
	}
}
