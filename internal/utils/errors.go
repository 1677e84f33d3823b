package utils

import (
	"errors"
)

var (
	ErrConfigurationError = errors.New("configuration error")
	ErrShuttingDown       = errors.New("shutdown in progress")
	ErrMissingDirectory   = errors.New("download directory is missing")
	ErrDaemonUnavailable  = errors.New("torrent daemon unavailable")
	ErrTorrentNotFound    = errors.New("torrent not found in daemon")
	ErrNoResult           = errors.New("no result")
	ErrFlowActive         = errors.New("another interaction is in progress")
	ErrInvalidTorrent     = errors.New("invalid torrent file")
	ErrInvalidMagnet      = errors.New("invalid magnet link")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrAlreadyTracked     = errors.New("transfer already tracked")
)

type WrappedError struct {
	Err     error
	Message string
	Context map[string]any
}

func (w *WrappedError) Error() string {
	if w.Message != "" {
		return w.Message + ": " + w.Err.Error()
	}
	return w.Err.Error()
}

func (w *WrappedError) Unwrap() error {
	return w.Err
}

func WrapError(err error, message string, ctx map[string]any) error {
	return &WrappedError{
		Err:     err,
		Message: message,
		Context: ctx,
	}
}

// RootError returns the innermost error in the chain (for user-facing messages without wrapper text).
func RootError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		err = e
	}
	return err
}
