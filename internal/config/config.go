package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gopkg.in/ini.v1"
)

// Config keys used across commands.
const (
	KeyDefaultWorkspace    = "default_workspace"
	KeyRecentWorkspace     = "recent_workspace"
	KeyDefaultLaunchExtras = "default_launch_extras"
	KeyUserID              = "user_id"
)

// Store is the persisted key-value configuration, an INI file under the
// user's config directory. Reads are served from the snapshot taken at
// Open; writes go through to disk immediately under an advisory lock.
type Store struct {
	dir  string
	file *ini.File
}

// DefaultDir returns the OS-specific comfyctl config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(base, "comfyctl"), nil
}

// Open loads (or initializes) the config store rooted at dir. A stable
// user id is generated on first open.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0755); err != nil {
		return nil, fmt.Errorf("creating config tmp dir: %w", err)
	}

	s := &Store{dir: dir}
	if err := s.withLock(func() error {
		f, err := ini.LooseLoad(s.Path())
		if err != nil {
			return fmt.Errorf("loading %s: %w", s.Path(), err)
		}
		s.file = f
		if s.Get(KeyUserID) == "" {
			s.file.Section("").Key(KeyUserID).SetValue(uuid.NewString())
			return s.file.SaveTo(s.Path())
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, "config.ini")
}

// TempDir returns the scratch directory for per-invocation session files.
func (s *Store) TempDir() string {
	return filepath.Join(s.dir, "tmp")
}

// Get returns the value for key, or the empty string when unset.
func (s *Store) Get(key string) string {
	return s.file.Section("").Key(key).String()
}

// Set writes a key-value pair through to disk.
func (s *Store) Set(key, value string) error {
	return s.withLock(func() error {
		s.file.Section("").Key(key).SetValue(value)
		if err := s.file.SaveTo(s.Path()); err != nil {
			return fmt.Errorf("writing %s: %w", s.Path(), err)
		}
		return nil
	})
}

// withLock runs fn while holding the cross-process config lock, so two
// comfyctl invocations cannot interleave partial writes.
func (s *Store) withLock(fn func() error) error {
	lock := flock.New(s.Path() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking config: %w", err)
	}
	defer lock.Unlock()
	return fn()
}
