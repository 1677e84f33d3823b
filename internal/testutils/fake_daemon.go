package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/NikitaDmitryuk/mediagram/internal/downloader/qbittorrent"
)

// DeleteCall records one Delete on the FakeDaemon.
type DeleteCall struct {
	Hashes      string
	DeleteFiles bool
}

// FakeDaemon is an in-memory downloader.Daemon.
//
// Scripts maps a hash to the snapshots returned by successive lookups; the last one
// repeats. A nil entry in the script means the torrent is gone.
type FakeDaemon struct {
	mu sync.Mutex

	List    []qbittorrent.TorrentInfo
	Scripts map[string][]*qbittorrent.TorrentInfo
	Magnets []string
	Files   []string
	Deletes []DeleteCall

	// InfoError, if set, is returned by Torrents.
	InfoError error
	// AddError, if set, is returned by both add calls.
	AddError error
	// OnAdd runs after a successful add, e.g. to make a torrent appear.
	OnAdd func(f *FakeDaemon)

	lookups   map[string]int
	LoggedOut atomic.Bool
}

func NewFakeDaemon() *FakeDaemon {
	return &FakeDaemon{
		Scripts: make(map[string][]*qbittorrent.TorrentInfo),
		lookups: make(map[string]int),
	}
}

// Put adds or replaces a torrent in the list.
func (f *FakeDaemon) Put(info qbittorrent.TorrentInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putLocked(info)
}

func (f *FakeDaemon) putLocked(info qbittorrent.TorrentInfo) {
	for i := range f.List {
		if f.List[i].Hash == info.Hash {
			f.List[i] = info
			return
		}
	}
	f.List = append(f.List, info)
}

// Script sets the sequence of snapshots returned for hash lookups.
func (f *FakeDaemon) Script(hash string, steps ...*qbittorrent.TorrentInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scripts[hash] = steps
	f.lookups[hash] = 0
}

// Lookups returns how many times a hash was queried.
func (f *FakeDaemon) Lookups(hash string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[hash]
}

func (f *FakeDaemon) SetInfoError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InfoError = err
}

func (f *FakeDaemon) DeleteCalls() []DeleteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeleteCall(nil), f.Deletes...)
}

func (f *FakeDaemon) AddMagnet(_ context.Context, uri, _ string) error {
	f.mu.Lock()
	if f.AddError != nil {
		f.mu.Unlock()
		return f.AddError
	}
	f.Magnets = append(f.Magnets, uri)
	hook := f.OnAdd
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *FakeDaemon) AddTorrentFile(_ context.Context, filename string, _ []byte, _ string) error {
	f.mu.Lock()
	if f.AddError != nil {
		f.mu.Unlock()
		return f.AddError
	}
	f.Files = append(f.Files, filename)
	hook := f.OnAdd
	f.mu.Unlock()
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *FakeDaemon) Torrents(_ context.Context, hashes, sort string, reverse bool) ([]qbittorrent.TorrentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InfoError != nil {
		return nil, f.InfoError
	}

	if hashes != "" {
		var out []qbittorrent.TorrentInfo
		for _, h := range strings.Split(hashes, "|") {
			if info, ok := f.lookupLocked(h); ok {
				out = append(out, info)
			}
		}
		return out, nil
	}

	out := append([]qbittorrent.TorrentInfo(nil), f.List...)
	if sort == "added_on" {
		for i := 1; i < len(out); i++ {
			for j := i; j > 0; j-- {
				less := out[j].AddedOn < out[j-1].AddedOn
				if reverse {
					less = out[j].AddedOn > out[j-1].AddedOn
				}
				if !less {
					break
				}
				out[j], out[j-1] = out[j-1], out[j]
			}
		}
	}
	return out, nil
}

func (f *FakeDaemon) lookupLocked(hash string) (qbittorrent.TorrentInfo, bool) {
	if steps, ok := f.Scripts[hash]; ok && len(steps) > 0 {
		n := f.lookups[hash]
		f.lookups[hash] = n + 1
		if n >= len(steps) {
			n = len(steps) - 1
		}
		if steps[n] == nil {
			return qbittorrent.TorrentInfo{}, false
		}
		return *steps[n], true
	}
	f.lookups[hash]++
	for _, info := range f.List {
		if info.Hash == hash {
			return info, true
		}
	}
	return qbittorrent.TorrentInfo{}, false
}

func (f *FakeDaemon) Delete(_ context.Context, hashes string, deleteFiles bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deletes = append(f.Deletes, DeleteCall{Hashes: hashes, DeleteFiles: deleteFiles})
	if hashes == "all" {
		f.List = nil
		f.Scripts = make(map[string][]*qbittorrent.TorrentInfo)
		return nil
	}
	for _, h := range strings.Split(hashes, "|") {
		delete(f.Scripts, h)
		kept := f.List[:0]
		for _, info := range f.List {
			if info.Hash != h {
				kept = append(kept, info)
			}
		}
		f.List = kept
	}
	return nil
}

func (f *FakeDaemon) Logout(context.Context) error {
	f.LoggedOut.Store(true)
	return nil
}

// ErrFakeTransport is a convenient transport failure for tests.
var ErrFakeTransport = errors.New("connection refused")
