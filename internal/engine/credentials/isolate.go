package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

var (
	// ErrNoCredentialFile means the shared cookie bundle is absent. Strategies
	// that need credentials short-circuit on it; the chain itself continues.
	ErrNoCredentialFile = errors.New("credential cookie file not found")

	// ErrLockTimeout means the cross-process cookie lock could not be taken
	// in time. Retryable.
	ErrLockTimeout = errors.New("timed out waiting for cookie lock")
)

// Manager produces private, per-request copies of the shared cookie bundle.
//
// The shared file is the only globally mutable resource in the subsystem.
// Acquire serializes access through a cross-process flock, snapshots the
// bundle into a fresh isolated directory, and restores the canonical file
// before the lock is dropped, so the canonical path is never absent for
// longer than one lock hold. Each request then works exclusively on its own
// copy with no further synchronization.
type Manager struct {
	CookieFile  string        // canonical bundle path
	WorkDir     string        // parent dir for isolated copies ("" = os temp)
	LockRetry   time.Duration // poll interval while waiting for the lock
	LockTimeout time.Duration // max time to wait for the lock
}

// Handle is one request's isolated cookie copy. Release must always be
// called; it is idempotent and safe on a partially-constructed handle.
type Handle struct {
	CookieFile string // path of the isolated copy
	dir        string
	mgr        *Manager
	release    sync.Once
}

// DefaultManager builds a Manager from the engine configuration.
func DefaultManager() *Manager {
	return &Manager{
		CookieFile:  engine.Cfg.CookieFile,
		WorkDir:     engine.Cfg.WorkDir,
		LockRetry:   engine.Cfg.LockRetry,
		LockTimeout: engine.Cfg.LockTimeout,
	}
}

func (m *Manager) lockPath() string      { return m.CookieFile + ".lock" }
func (m *Manager) backupPath() string    { return m.CookieFile + ".bak" }
func (m *Manager) relocatedPath() string { return m.CookieFile + ".inflight" }

// lockRetry returns the configured poll interval with a sane floor.
func (m *Manager) lockRetry() time.Duration {
	if m.LockRetry > 0 {
		return m.LockRetry
	}
	return 50 * time.Millisecond
}

// withLock runs fn while holding the cross-process cookie lock.
func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	if m.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.LockTimeout)
		defer cancel()
	}
	fl := flock.New(m.lockPath())
	ok, err := fl.TryLockContext(ctx, m.lockRetry())
	if err != nil || !ok {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	defer func() {
		if uerr := fl.Unlock(); uerr != nil {
			slog.Warn("cookies: unlock failed", slog.Any("error", uerr))
		}
	}()
	return fn()
}

// Acquire snapshots the shared bundle into a fresh isolated directory and
// returns a handle to the copy. Under the lock it (a) ensures a read-only
// backup matching the current bundle exists, (b) relocates the canonical file aside so no
// concurrent writer can touch it mid-copy, (c) copies the backup into the
// isolated directory with 0600 permissions, and (d) puts the canonical file
// back. Any failure restores the canonical file before the error propagates;
// the shared bundle is never left absent past the lock hold.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	var h *Handle
	err := m.withLock(ctx, func() error {
		if err := m.healRelocation(); err != nil {
			return err
		}
		if _, err := os.Stat(m.CookieFile); err != nil {
			return fmt.Errorf("%w: %s", ErrNoCredentialFile, m.CookieFile)
		}
		if err := m.ensureBackup(); err != nil {
			return err
		}

		if err := os.Rename(m.CookieFile, m.relocatedPath()); err != nil {
			return fmt.Errorf("relocate bundle: %w", err)
		}

		handle, err := m.copyToIsolated()
		restoreErr := os.Rename(m.relocatedPath(), m.CookieFile)
		if restoreErr != nil {
			// The shared bundle may be stuck out of place. This is the one
			// operationally critical condition; log loudly and try the backup.
			slog.Error("cookies: CRITICAL: failed to restore canonical bundle",
				slog.String("path", m.CookieFile), slog.Any("error", restoreErr))
			if data, rerr := os.ReadFile(m.backupPath()); rerr == nil {
				_ = os.WriteFile(m.CookieFile, data, 0o600)
			}
		}
		if err != nil {
			if handle != nil {
				handle.destroy()
			}
			return err
		}
		if restoreErr != nil {
			handle.destroy()
			return fmt.Errorf("restore bundle: %w", restoreErr)
		}
		h = handle
		return nil
	})
	if err != nil {
		return nil, err
	}
	engine.IncrCookieAcquires()
	slog.Debug("cookies: isolated copy acquired", slog.String("dir", h.dir))
	return h, nil
}

// healRelocation restores a canonical file left at the relocated path by a
// crashed peer. Runs under the lock.
func (m *Manager) healRelocation() error {
	if _, err := os.Stat(m.relocatedPath()); err != nil {
		return nil
	}
	if _, err := os.Stat(m.CookieFile); err == nil {
		// Both exist: the relocation is stale, drop it.
		return os.Remove(m.relocatedPath())
	}
	slog.Warn("cookies: restoring bundle left relocated by a previous run")
	return os.Rename(m.relocatedPath(), m.CookieFile)
}

// ensureBackup keeps a read-only snapshot of the bundle next to it. A stale
// snapshot is refreshed so a re-exported bundle (new sign-in) reaches the
// isolated copies without manual cleanup. Runs under the lock.
func (m *Manager) ensureBackup() error {
	data, err := os.ReadFile(m.CookieFile)
	if err != nil {
		return fmt.Errorf("read bundle for backup: %w", err)
	}
	if existing, err := os.ReadFile(m.backupPath()); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
		if err := os.Remove(m.backupPath()); err != nil {
			return fmt.Errorf("refresh bundle backup: %w", err)
		}
		slog.Info("cookies: canonical bundle changed, refreshing backup")
	}
	if err := os.WriteFile(m.backupPath(), data, 0o400); err != nil {
		return fmt.Errorf("write bundle backup: %w", err)
	}
	return nil
}

// copyToIsolated copies the backup snapshot into a fresh private directory.
func (m *Manager) copyToIsolated() (*Handle, error) {
	dir, err := os.MkdirTemp(m.WorkDir, "ytcookies-")
	if err != nil {
		return nil, fmt.Errorf("create isolated dir: %w", err)
	}
	h := &Handle{dir: dir, mgr: m, CookieFile: filepath.Join(dir, "cookies.txt")}
	data, err := os.ReadFile(m.backupPath())
	if err != nil {
		return h, fmt.Errorf("read bundle backup: %w", err)
	}
	if err := os.WriteFile(h.CookieFile, data, 0o600); err != nil {
		return h, fmt.Errorf("write isolated copy: %w", err)
	}
	return h, nil
}

// Release destroys the isolated copy and, if a previous acquire crashed
// mid-sequence, puts the canonical bundle back. Idempotent.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.release.Do(func() {
		h.destroy()
		if h.mgr == nil {
			return
		}
		err := h.mgr.withLock(context.Background(), h.mgr.healRelocation)
		if err != nil {
			slog.Warn("cookies: release heal failed", slog.Any("error", err))
		}
	})
}

// destroy overwrites the isolated copy with zeros and removes the directory.
func (h *Handle) destroy() {
	if h.dir == "" {
		return
	}
	if info, err := os.Stat(h.CookieFile); err == nil {
		zeros := make([]byte, info.Size())
		_ = os.WriteFile(h.CookieFile, zeros, 0o600)
	}
	if err := os.RemoveAll(h.dir); err != nil {
		slog.Warn("cookies: failed to remove isolated dir",
			slog.String("dir", h.dir), slog.Any("error", err))
	}
	h.dir = ""
}

// Bundle parses the isolated copy.
func (h *Handle) Bundle() (Bundle, error) {
	data, err := os.ReadFile(h.CookieFile)
	if err != nil {
		return Bundle{}, fmt.Errorf("read isolated copy: %w", err)
	}
	return ParseBundle(data), nil
}
