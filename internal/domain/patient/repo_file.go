package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards the data file against other processes.
type FileLock interface {
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)
	Unlock() error
}

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

type fileRepo struct {
	path string
	lock FileLock
	// flock treats a second TryLock on a held Flock as success, so
	// goroutines in this process are serialized separately.
	mu sync.Mutex
}

// FileRepoOption configures the file-backed repository.
type FileRepoOption func(*fileRepo)

// WithFileLock replaces the default <path>.lock flock.
func WithFileLock(l FileLock) FileRepoOption {
	return func(r *fileRepo) { r.lock = l }
}

// NewPatientRepoFile stores the collection as a JSON object in path. Writes go
// to path+".tmp" and are renamed into place.
func NewPatientRepoFile(path string, opts ...FileRepoOption) PatientRepository {
	r := &fileRepo{path: path}
	for _, opt := range opts {
		opt(r)
	}
	if r.lock == nil {
		r.lock = flock.New(path + ".lock")
	}
	return r
}

func (r *fileRepo) withLock(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire lock on %s: %w", r.path, err)
	}
	if !locked {
		return fmt.Errorf("acquire lock on %s: timed out", r.path)
	}
	defer func() { _ = r.lock.Unlock() }()

	return fn()
}

func (r *fileRepo) Load(ctx context.Context) (*Collection, error) {
	c := NewCollection()
	err := r.withLock(ctx, func() error {
		data, err := os.ReadFile(r.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", r.path, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", r.path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *fileRepo) Save(ctx context.Context, c *Collection) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("encode patients: %w", err)
	}
	return r.withLock(ctx, func() error {
		tmp := r.path + ".tmp"
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}
		if err := os.Rename(tmp, r.path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("replace %s: %w", r.path, err)
		}
		return nil
	})
}
