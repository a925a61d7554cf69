package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// fileEntry is the on-disk representation of one value. Exactly one of
// the two fields is set.
type fileEntry struct {
	U32 *uint32 `yaml:"u32,omitempty"`
	Str *string `yaml:"str,omitempty"`
}

// File is a Store backed by a single YAML file. Writes accumulate in
// memory until Commit, which replaces the file atomically via a rename.
type File struct {
	mu    sync.Mutex
	path  string
	data  map[string]map[string]fileEntry
	dirty bool
}

// OpenFile opens (or creates on first Commit) the store at path. A
// missing file yields an empty store; a malformed file is an error.
func OpenFile(path string) (*File, error) {
	f := &File{
		path: path,
		data: make(map[string]map[string]fileEntry),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &f.data); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", path, err)
	}
	if f.data == nil {
		f.data = make(map[string]map[string]fileEntry)
	}
	return f, nil
}

func (f *File) lookup(namespace, key string) (fileEntry, bool) {
	ns, ok := f.data[namespace]
	if !ok {
		return fileEntry{}, false
	}
	e, ok := ns[key]
	return e, ok
}

func (f *File) set(namespace, key string, e fileEntry) {
	ns, ok := f.data[namespace]
	if !ok {
		ns = make(map[string]fileEntry)
		f.data[namespace] = ns
	}
	ns[key] = e
	f.dirty = true
}

func (f *File) GetU32(namespace, key string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.lookup(namespace, key)
	if !ok || e.U32 == nil {
		return 0, ErrNotFound
	}
	return *e.U32, nil
}

func (f *File) SetU32(namespace, key string, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(namespace, key, fileEntry{U32: &value})
	return nil
}

func (f *File) GetString(namespace, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.lookup(namespace, key)
	if !ok || e.Str == nil {
		return "", ErrNotFound
	}
	return *e.Str, nil
}

func (f *File) SetString(namespace, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(namespace, key, fileEntry{Str: &value})
	return nil
}

// Commit writes the store to disk. The file is written to a temp path in
// the same directory first so a crash mid-write cannot corrupt it.
func (f *File) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}

	raw, err := yaml.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("storage: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".store-*.yaml")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: rename: %w", err)
	}

	f.dirty = false
	return nil
}
