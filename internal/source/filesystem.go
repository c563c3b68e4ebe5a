package source

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider abstracts the file access needed to locate and read exports.
type FileSystemProvider interface {
	// ReadFile reads a specific file at the given path.
	ReadFile(path string) ([]byte, error)

	// ReadDir returns the entries directly under path, sorted by name.
	ReadDir(path string) ([]FileInfo, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}

// OSFileSystem implements FileSystemProvider for the OS filesystem.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem provider.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (p *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (p *OSFileSystem) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get file info for %s: %w", entry.Name(), err)
		}
		result = append(result, info)
	}
	return result, nil
}

func (p *OSFileSystem) Stat(path string) (FileInfo, error) {
	return os.Stat(path)
}

type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

func (f *memoryFileInfo) Mode() fs.FileMode {
	if f.isDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

// MemoryFileSystem is an in-memory FileSystemProvider used by tests.
// Paths use forward slashes; directories exist implicitly.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string][]byte)}
}

func memPath(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// AddFile stores content at p, replacing any previous content.
func (m *MemoryFileSystem) AddFile(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[memPath(p)] = []byte(content)
}

func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[memPath(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryFileSystem) ReadDir(p string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir := memPath(p)
	prefix := dir + "/"
	if dir == "." {
		prefix = ""
	}

	seen := make(map[string]FileInfo)
	for name, content := range m.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		child, _, nested := strings.Cut(rest, "/")
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = &memoryFileInfo{name: child, size: int64(len(content)), isDir: nested}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("failed to read directory: %w", &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist})
	}

	out := make([]FileInfo, 0, len(seen))
	for _, fi := range seen {
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	m.mu.RLock()
	clean := memPath(p)
	if b, ok := m.files[clean]; ok {
		m.mu.RUnlock()
		return &memoryFileInfo{name: path.Base(clean), size: int64(len(b))}, nil
	}
	m.mu.RUnlock()
	if _, err := m.ReadDir(clean); err == nil {
		return &memoryFileInfo{name: path.Base(clean), isDir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}
