// Package sysfs abstracts the attribute tree and character devices the
// harness talks to, so every sysfs path can be served from memory in tests.
package sysfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FS is the attribute filesystem. Names are absolute paths such as
// /sys/bus/iio/devices/iio:device0/name.
type FS interface {
	// ReadFile reads a whole attribute.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes a whole attribute.
	WriteFile(name string, data []byte) error

	// ReadDir returns the sorted entry names of a directory.
	ReadDir(name string) ([]string, error)

	// Exists checks if a file or directory exists.
	Exists(name string) bool

	// Mkdir creates a directory. Used for configfs trigger creation.
	Mkdir(name string) error

	// OpenStream opens a character device for reading sample records.
	OpenStream(name string) (io.ReadCloser, error)
}

// OSFS implements FS on the host filesystem. Root is prefixed to every
// name, which lets a captured sysfs tree be replayed from a directory.
//
// Names are not cleaned: sysfs device directories are symlinks, so a ".."
// element must be resolved by the kernel rather than lexically.
type OSFS struct {
	Root string
}

func (o OSFS) path(name string) string {
	if o.Root == "" {
		return name
	}
	return strings.TrimSuffix(o.Root, string(filepath.Separator)) + name
}

func (o OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(o.path(name))
}

func (o OSFS) WriteFile(name string, data []byte) error {
	return os.WriteFile(o.path(name), data, 0o644)
}

func (o OSFS) ReadDir(name string) ([]string, error) {
	entries, err := os.ReadDir(o.path(name))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (o OSFS) Exists(name string) bool {
	_, err := os.Stat(o.path(name))
	return err == nil
}

func (o OSFS) Mkdir(name string) error {
	return os.Mkdir(o.path(name), 0o755)
}

func (o OSFS) OpenStream(name string) (io.ReadCloser, error) {
	return os.Open(o.path(name))
}

// StreamFunc produces a fresh reader each time a device is opened.
type StreamFunc func() (io.ReadCloser, error)

// WriteHook runs after a successful MemoryFS write. Returning an error
// makes the write fail.
type WriteHook func(m *MemoryFS, data []byte) error

// MemoryFS provides an in-memory attribute tree for testing.
type MemoryFS struct {
	mu      sync.RWMutex
	files   map[string][]byte
	dirs    map[string]bool
	streams map[string]StreamFunc
	hooks   map[string]WriteHook
	fail    map[string]error
	writes  []Write
}

// Write records one attribute write.
type Write struct {
	Name string
	Data string
}

// NewMemoryFS creates an empty in-memory tree.
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files:   make(map[string][]byte),
		dirs:    map[string]bool{"/": true},
		streams: make(map[string]StreamFunc),
		hooks:   make(map[string]WriteHook),
		fail:    make(map[string]error),
	}
}

func (m *MemoryFS) addParents(name string) {
	for p := path.Dir(name); ; p = path.Dir(p) {
		m.dirs[p] = true
		if p == "/" || p == "." {
			return
		}
	}
}

// Set creates or replaces an attribute without recording a write.
func (m *MemoryFS) Set(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean(name)
	m.files[name] = []byte(content)
	m.addParents(name)
}

// Get returns an attribute's content, or "" when absent.
func (m *MemoryFS) Get(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.files[path.Clean(name)])
}

// SetStream registers a character device.
func (m *MemoryFS) SetStream(name string, fn StreamFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean(name)
	m.streams[name] = fn
	m.addParents(name)
}

// OnWrite installs a hook for writes to name.
func (m *MemoryFS) OnWrite(name string, hook WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[path.Clean(name)] = hook
}

// Fail makes every read and write of name return err. A nil err clears it.
func (m *MemoryFS) Fail(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, path.Clean(name))
		return
	}
	m.fail[path.Clean(name)] = err
}

// Writes returns every successful write in order.
func (m *MemoryFS) Writes() []Write {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Write(nil), m.writes...)
}

func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = path.Clean(name)
	if err := m.fail[name]; err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

func (m *MemoryFS) WriteFile(name string, data []byte) error {
	name = path.Clean(name)
	m.mu.Lock()
	if err := m.fail[name]; err != nil {
		m.mu.Unlock()
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}
	if !m.dirs[path.Dir(name)] {
		m.mu.Unlock()
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrNotExist}
	}
	m.files[name] = bytes.Clone(data)
	m.writes = append(m.writes, Write{Name: name, Data: string(data)})
	hook := m.hooks[name]
	m.mu.Unlock()

	if hook != nil {
		if err := hook(m, data); err != nil {
			return &fs.PathError{Op: "write", Path: name, Err: err}
		}
	}
	return nil
}

func (m *MemoryFS) ReadDir(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = path.Clean(name)
	if !m.dirs[name] {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	prefix := strings.TrimSuffix(name, "/") + "/"
	seen := make(map[string]bool)
	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) || p == name {
			return
		}
		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = true
	}
	for p := range m.files {
		collect(p)
	}
	for p := range m.dirs {
		collect(p)
	}
	for p := range m.streams {
		collect(p)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryFS) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = path.Clean(name)
	_, isFile := m.files[name]
	_, isStream := m.streams[name]
	return isFile || isStream || m.dirs[name]
}

func (m *MemoryFS) Mkdir(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean(name)
	if m.dirs[name] {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	if !m.dirs[path.Dir(name)] {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrNotExist}
	}
	m.dirs[name] = true
	return nil
}

func (m *MemoryFS) OpenStream(name string) (io.ReadCloser, error) {
	m.mu.RLock()
	name = path.Clean(name)
	fn, ok := m.streams[name]
	failErr := m.fail[name]
	m.mu.RUnlock()
	if failErr != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: failErr}
	}
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	rc, err := fn()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

// IsNotExist reports whether err means the attribute is absent.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
