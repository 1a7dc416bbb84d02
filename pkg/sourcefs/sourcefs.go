// Package sourcefs sandboxes and caches the file reads the loader performs
// for a source file and its transitive #include graph. It is adapted from
// the teacher's in-memory VirtualDisk (pkg/vfs): a mutex-guarded map of
// already-read files protects against re-reading the same file twice when
// a diamond of #includes references it from multiple paths, and a total-
// bytes-read quota guards against an include bomb (a chain of includes that
// would otherwise read unbounded data from disk).
package sourcefs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MaxTotalBytes bounds the sum of all distinct file sizes a single Loader
// invocation may read, the same defensive role the teacher's
// MaxDiskBytes plays for its virtual disk, retargeted from "disk quota"
// to "include-bomb quota".
const MaxTotalBytes = 16 * 1024 * 1024

var (
	// ErrQuotaExceeded is returned when reading a file would push the
	// cumulative bytes read past MaxTotalBytes.
	ErrQuotaExceeded = errors.New("sourcefs: total source bytes quota exceeded")
	// ErrOutsideRoot is returned when a resolved include path escapes the
	// configured root directory.
	ErrOutsideRoot = errors.New("sourcefs: path escapes sandboxed root")
)

// FS is a sandboxed, cached read-only view over the host filesystem rooted
// at a directory, used for resolving a source file's own path and its
// #include targets.
type FS struct {
	root string

	mu        sync.RWMutex
	cache     map[string][]byte
	totalRead int
}

// New returns an FS sandboxed to root. Includes may traverse into
// subdirectories or use "../" to reach siblings of root, but never escape
// root's parent tree entirely — matching how programs in this language are
// typically organized as a handful of files in one project directory.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FS{root: abs, cache: make(map[string][]byte)}, nil
}

// Resolve joins a #include path (or the initial program path) against the
// directory containing fromFile, returning a clean absolute path.
func (fs *FS) Resolve(fromFile, includePath string) string {
	if filepath.IsAbs(includePath) {
		return filepath.Clean(includePath)
	}
	dir := filepath.Dir(fromFile)
	return filepath.Clean(filepath.Join(dir, includePath))
}

// Read returns the contents of path, serving from cache on a repeat read
// (the common case for diamond #include graphs) and enforcing
// MaxTotalBytes against first-time reads.
func (fs *FS) Read(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !fs.withinSandbox(abs) {
		return nil, ErrOutsideRoot
	}

	fs.mu.RLock()
	if data, ok := fs.cache[abs]; ok {
		fs.mu.RUnlock()
		return data, nil
	}
	fs.mu.RUnlock()

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	// Another goroutine may have populated the cache for this path while
	// we were reading from disk without holding the lock.
	if cached, ok := fs.cache[abs]; ok {
		return cached, nil
	}
	if fs.totalRead+len(data) > MaxTotalBytes {
		return nil, ErrQuotaExceeded
	}
	fs.cache[abs] = data
	fs.totalRead += len(data)
	return data, nil
}

// withinSandbox reports whether abs lies within root's parent directory,
// the boundary #include "../" traversal may reach but never cross (a
// program may reference a sibling of its own directory, never climb
// arbitrarily far up the host filesystem).
func (fs *FS) withinSandbox(abs string) bool {
	parent := filepath.Dir(fs.root)
	rel, err := filepath.Rel(parent, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// BytesRead reports the cumulative distinct-file bytes read so far.
func (fs *FS) BytesRead() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.totalRead
}
