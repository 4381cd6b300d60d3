package directory

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lock takes an advisory single-flight lock on the snapshot directory so
// concurrent backup/restore invocations fail fast instead of interleaving.
// The returned release function removes the lock file. The lock is
// best-effort: it guards this tool against itself, not the store against
// external writers.
func (b *Backend) Lock() (release func(), err error) {
	path := filepath.Join(b.Root, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another backup or restore is in progress (lock file %s exists)", path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}
