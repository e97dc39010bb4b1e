package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StateFileName is the persisted state file inside a project directory.
const StateFileName = "state.yml"

const (
	lockSuffix = ".lock"

	// staleLockAge is how old a lock file must be before a new
	// orchestrator may break it. A live step never holds the lock this
	// long.
	staleLockAge = 5 * time.Minute
)

var (
	// ErrNotFound means the project has no state file.
	ErrNotFound = errors.New("state file not found")

	// ErrCorruptState means the state file exists but cannot be trusted.
	// This is fatal and reported; there is no silent default.
	ErrCorruptState = errors.New("state file is corrupt")

	// ErrAlreadyRunning means another orchestrator holds the step lock
	// for this project.
	ErrAlreadyRunning = errors.New("orchestrator already running for this project")
)

// Store owns the durable copy of a project's pipeline state. All
// mutation flows through Load and Save under an exclusive lock held for
// the full duration of a step.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the project directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the project directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the state file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads and validates the persisted state.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path())
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &st, nil
}

// Save persists the state atomically and stamps last_updated. A reader
// never observes a half-written file.
func (s *Store) Save(st *State) error {
	st.LastUpdated = time.Now().UTC()

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	if err := WriteFileAtomic(s.Path(), data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Lock is the exclusive step lock on a project's state.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the step lock. A second orchestrator instance stepping
// the same project fails fast with ErrAlreadyRunning instead of
// corrupting state. Locks older than staleLockAge are treated as
// leftovers from a killed process and broken.
func (s *Store) Acquire() (*Lock, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	lockPath := s.Path() + lockSuffix

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		info, statErr := os.Stat(lockPath)
		if statErr != nil || time.Since(info.ModTime()) <= staleLockAge {
			return nil, fmt.Errorf("%w: lock held at %s", ErrAlreadyRunning, lockPath)
		}
		// Stale lock from a dead process; remove and retry once.
		os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("%w: lock held at %s", ErrAlreadyRunning, lockPath)
		}
	}

	// Write PID for debugging
	fmt.Fprintf(file, "%d\n", os.Getpid())
	file.Sync()

	return &Lock{path: lockPath, file: file}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
	}
	return os.Remove(l.path)
}

// WriteFileAtomic writes content to a temporary file in the target's
// directory, syncs it, and renames it into place.
func WriteFileAtomic(path string, content []byte) error {
	var perm os.FileMode = 0644
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode()
	}

	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = f.Chmod(perm); err != nil {
		return err
	}
	if _, err = f.Write(content); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return err
	}

	success = true
	return nil
}
