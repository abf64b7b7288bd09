package credentials

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, content string) *Manager {
	t.Helper()
	dir := t.TempDir()
	cookieFile := filepath.Join(dir, "cookies.txt")
	if content != "" {
		require.NoError(t, os.WriteFile(cookieFile, []byte(content), 0o600))
	}
	return &Manager{
		CookieFile:  cookieFile,
		WorkDir:     dir,
		LockRetry:   5 * time.Millisecond,
		LockTimeout: 5 * time.Second,
	}
}

func TestAcquireRelease(t *testing.T) {
	m := testManager(t, sampleExport)

	h, err := m.Acquire(context.Background())
	require.NoError(t, err)

	// Isolated copy lives outside the canonical path and matches it byte for byte.
	assert.NotEqual(t, m.CookieFile, h.CookieFile)
	got, err := os.ReadFile(h.CookieFile)
	require.NoError(t, err)
	assert.Equal(t, sampleExport, string(got))

	// Canonical file is back in place before Acquire even returns.
	canonical, err := os.ReadFile(m.CookieFile)
	require.NoError(t, err)
	assert.Equal(t, sampleExport, string(canonical))

	isolatedDir := filepath.Dir(h.CookieFile)
	h.Release()
	_, err = os.Stat(isolatedDir)
	assert.True(t, os.IsNotExist(err), "release must remove the isolated dir")

	// Release is idempotent.
	h.Release()

	_, err = os.Stat(m.relocatedPath())
	assert.True(t, os.IsNotExist(err), "no relocated file may survive")
}

func TestAcquireMissingFile(t *testing.T) {
	m := testManager(t, "")
	h, err := m.Acquire(context.Background())
	require.ErrorIs(t, err, ErrNoCredentialFile)
	assert.Nil(t, h)
}

func TestAcquireCreatesReadOnlyBackup(t *testing.T) {
	m := testManager(t, sampleExport)
	h, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	info, err := os.Stat(m.backupPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), info.Mode().Perm())
	data, err := os.ReadFile(m.backupPath())
	require.NoError(t, err)
	assert.Equal(t, sampleExport, string(data))
}

func TestAcquireRefreshesBackupAfterNewSignIn(t *testing.T) {
	m := testManager(t, sampleExport)

	h, err := m.Acquire(context.Background())
	require.NoError(t, err)
	h.Release()

	// A fresh sign-in replaces the canonical bundle.
	refreshed := sampleExport + ".youtube.com\tTRUE\t/\tTRUE\t1893456000\tSAPISID\tnew\n"
	require.NoError(t, os.WriteFile(m.CookieFile, []byte(refreshed), 0o600))

	h, err = m.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	got, err := os.ReadFile(h.CookieFile)
	require.NoError(t, err)
	assert.Equal(t, refreshed, string(got), "isolated copy must carry the refreshed bundle")

	backup, err := os.ReadFile(m.backupPath())
	require.NoError(t, err)
	assert.Equal(t, refreshed, string(backup))
}

func TestAcquireHealsStaleRelocation(t *testing.T) {
	m := testManager(t, "")
	// Simulate a peer that crashed between relocate and restore.
	require.NoError(t, os.WriteFile(m.relocatedPath(), []byte(sampleExport), 0o600))

	h, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	canonical, err := os.ReadFile(m.CookieFile)
	require.NoError(t, err)
	assert.Equal(t, sampleExport, string(canonical))
}

func TestConcurrentAcquire(t *testing.T) {
	m := testManager(t, sampleExport)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Acquire(context.Background())
			if err != nil {
				errs <- err
				return
			}
			defer h.Release()
			data, err := os.ReadFile(h.CookieFile)
			if err != nil {
				errs <- err
				return
			}
			if string(data) != sampleExport {
				errs <- os.ErrInvalid
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent acquire: %v", err)
	}

	canonical, err := os.ReadFile(m.CookieFile)
	require.NoError(t, err)
	assert.Equal(t, sampleExport, string(canonical), "canonical bundle must survive contention unchanged")
}

func TestHandleBundle(t *testing.T) {
	m := testManager(t, sampleExport)
	h, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Release()

	b, err := h.Bundle()
	require.NoError(t, err)
	assert.Len(t, b.Records, 6)
}

func TestReleaseNilHandle(t *testing.T) {
	var h *Handle
	h.Release() // must not panic
}
