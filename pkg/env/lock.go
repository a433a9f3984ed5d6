package env

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockRetryDelay = 5 * time.Millisecond
	lockWaitLimit  = 10 * time.Second
	lockStaleAfter = 5 * time.Minute
)

// acquireLock takes the advisory install lock for the environment root.
// Writers serialize extract-then-append as one logical operation so two
// concurrent installs never interleave; readers never lock. The lock is
// a lockfile created with O_EXCL; one older than lockStaleAfter is
// presumed abandoned by a dead process and is broken.
func (e *Environment) acquireLock() (release func(), err error) {
	lockPath := filepath.Join(e.Root, ".lock")
	deadline := time.Now().Add(lockWaitLimit)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lock %s: %w", lockPath, err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			e.breakStaleLock(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: timed out after %s", lockPath, lockWaitLimit)
		}
		time.Sleep(lockRetryDelay)
	}
}

// breakStaleLock clears an abandoned lock file. The rename is atomic,
// so of several waiters that all saw a stale lock only one wins it;
// the losers see ENOENT and go back to contending on O_EXCL. If the
// renamed file turns out to be fresh (the lock was broken and re-taken
// between stat and rename) it is put back.
func (e *Environment) breakStaleLock(lockPath string) {
	aside := fmt.Sprintf("%s.stale.%d", lockPath, os.Getpid())
	if err := os.Rename(lockPath, aside); err != nil {
		return
	}
	if info, err := os.Stat(aside); err == nil && time.Since(info.ModTime()) <= lockStaleAfter {
		os.Rename(aside, lockPath)
		return
	}
	os.Remove(aside)
}
