package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrNotFound indicates that no manifest exists at a location.
	ErrNotFound = errors.New("manifest not found")

	// ErrNoEmbeddedManifest indicates that a file carries no block comment to read a manifest from.
	ErrNoEmbeddedManifest = errors.New("no embedded manifest")

	// ErrLocked indicates that another process holds the manifest lock.
	ErrLocked = errors.New("manifest is locked")
)

// Store reads and writes manifests on disk.
type Store struct {
	Logger hclog.Logger
}

// NewStore returns a Store that reports recoverable conditions to logger.
func NewStore(logger hclog.Logger) *Store {
	return &Store{Logger: logger}
}

func (s *Store) logger() hclog.Logger {
	if s == nil || s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

// Load returns the manifest at path, or nil when there is none.
// A directory is searched for blend.yml; any other file is searched for a
// manifest embedded in its first block comment. Missing, unreadable and
// unparsable manifests are logged and reported as nil.
func (s *Store) Load(path string) *Manifest {
	m, err := s.Read(path)
	if err == nil {
		return m
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoEmbeddedManifest) {
		s.logger().Debug("no manifest", "path", path, "reason", err)
	} else {
		s.logger().Warn("ignoring unreadable manifest", "path", path, "error", err)
	}
	return nil
}

// Read is Load with the reason for a missing manifest preserved.
func (s *Store) Read(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if info.IsDir() {
		return readFile(filepath.Join(path, FileName))
	}
	if filepath.Base(path) == FileName {
		return readFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	comment, ok := ExtractBlockComment(string(data))
	if !ok || comment == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoEmbeddedManifest, path)
	}
	m, err := parseEmbedded(comment)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest comment in %s: %w", path, err)
	}
	return m, nil
}

func readFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Save replaces the file at path with the full contents of m, using a temp
// file and rename. Duplicate local paths are refused. Entries missing
// required fields are written as they are and logged.
func (s *Store) Save(path string, m *Manifest) error {
	if errs := DuplicateLocalPaths(m); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	for i, dep := range m.Dependencies {
		for _, msg := range validateDependency(i, dep) {
			s.logger().Warn("incomplete dependency kept", "path", path, "problem", msg)
		}
	}

	data, err := Serialize(m)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp manifest %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp manifest to %s: %w", path, err)
	}

	s.logger().Debug("manifest saved", "path", path, "dependencies", len(m.Dependencies))
	return nil
}

// FileLock is an exclusive lock on a manifest file, held by a sibling .lock file.
type FileLock struct {
	path string
}

// Lock acquires the lock for the manifest at path.
// It fails with ErrLocked if the lock file already exists.
func Lock(path string) (*FileLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return nil, fmt.Errorf("%w: %s exists", ErrLocked, lockPath)
	}
	if err != nil {
		return nil, fmt.Errorf("creating lock %s: %w", lockPath, err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("writing lock %s: %w", lockPath, err)
	}
	return &FileLock{path: lockPath}, nil
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock %s: %w", l.path, err)
	}
	return nil
}
