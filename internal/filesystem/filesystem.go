package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/NikitaDmitryuk/mediagram/internal/utils"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Entry is one top-level item of the download directory.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Usage is the disk usage of the filesystem holding the download directory.
type Usage struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

// Store confines every operation to one download directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Root() string {
	return s.root
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RootExists reports whether the download directory is present. Submissions are refused otherwise.
func (s *Store) RootExists() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

// EnsureRoot fails with ErrMissingDirectory when the download directory is absent.
func (s *Store) EnsureRoot() error {
	if !s.RootExists() {
		return utils.WrapError(utils.ErrMissingDirectory, "download directory is missing", map[string]any{"path": s.root})
	}
	return nil
}

// entryPath validates a top-level entry name and joins it to the root.
func (s *Store) entryPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", utils.WrapError(utils.ErrEntryNotFound, "invalid entry name", map[string]any{"name": name})
	}
	return filepath.Join(s.root, name), nil
}

// DeleteFileOrTree removes a file or a whole directory. A missing path is not an error.
func DeleteFileOrTree(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		logutils.Log.WithError(err).WithField("path", path).Warn("Failed to delete")
		return err
	}
	logutils.Log.WithField("path", path).Info("Deleted")
	return nil
}

// RemoveEntry deletes a top-level entry of the download directory.
func (s *Store) RemoveEntry(name string) error {
	path, err := s.entryPath(name)
	if err != nil {
		return err
	}
	return DeleteFileOrTree(path)
}

// ListEntries returns the top-level entries sorted by name.
func (s *Store) ListEntries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, s.EnsureRoot()
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		entry := Entry{Name: de.Name(), IsDir: de.IsDir()}
		entry.Size, _ = treeSize(filepath.Join(s.root, de.Name()))
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// EntryExists reports whether name is a top-level entry.
func (s *Store) EntryExists(name string) bool {
	path, err := s.entryPath(name)
	return err == nil && Exists(path)
}

// Move moves an entry into destDir, falling back to copy and delete across devices.
func (s *Store) Move(name, destDir string) error {
	src, err := s.entryPath(name)
	if err != nil {
		return err
	}
	if !Exists(src) {
		return utils.WrapError(utils.ErrEntryNotFound, "entry not found", map[string]any{"name": name})
	}
	if info, statErr := os.Stat(destDir); statErr != nil || !info.IsDir() {
		return utils.WrapError(utils.ErrMissingDirectory, "move target is missing", map[string]any{"path": destDir})
	}
	dst := filepath.Join(destDir, name)
	if Exists(dst) {
		return fmt.Errorf("destination %s already exists", dst)
	}

	err = os.Rename(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		if err = copyTree(src, dst); err == nil {
			err = DeleteFileOrTree(src)
		}
	}
	if err != nil {
		logutils.Log.WithError(err).WithFields(map[string]any{"src": src, "dst": dst}).Error("Failed to move entry")
		return err
	}
	logutils.Log.WithFields(map[string]any{"src": src, "dst": dst}).Info("Entry moved")
	return nil
}

// SaveBeside writes data next to the given entry: inside it for a directory, in the root otherwise.
func (s *Store) SaveBeside(entry, fileName string, data []byte) (string, error) {
	path, err := s.entryPath(entry)
	if err != nil {
		return "", err
	}
	dir := s.root
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		dir = path
	}
	dst := filepath.Join(dir, filepath.Base(fileName))
	if err := os.WriteFile(dst, data, filePerm); err != nil {
		return "", err
	}
	logutils.Log.WithField("path", dst).Info("File saved")
	return dst, nil
}

// DiskUsage reports usage of the filesystem holding the download directory.
func (s *Store) DiskUsage() (Usage, error) {
	stat, err := disk.Usage(s.root)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Total: stat.Total, Used: stat.Used, Free: stat.Free, UsedPercent: stat.UsedPercent}, nil
}

func treeSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
