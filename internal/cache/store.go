package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// ErrNotFound is returned by Clear for unknown keys.
var ErrNotFound = errors.New("cache: key not found")

// Entry is a cached snapshot with its write time.
type Entry struct {
	Content      []byte
	LastModified time.Time
}

// Age is the entry's age relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.LastModified)
}

// Store is a key/value store of JSON snapshots.
type Store interface {
	// Read returns the entry for key; ok is false if none exists.
	Read(key string) (e Entry, ok bool, err error)
	Write(key string, content []byte) error
	Clear(key string) error
}

var keyPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// FileStore keeps one file per key below Dir. The file mtime is the
// entry's LastModified.
type FileStore struct {
	Dir string
}

// NewFileStore creates dir (0700) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		// Development fallback so runs without root permissions work.
		dir = "./var/cache"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", errors.New("cache: invalid key " + key)
	}
	return filepath.Join(f.Dir, key+".json"), nil
}

func (f *FileStore) Read(key string) (Entry, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return Entry{}, false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Content: data, LastModified: info.ModTime()}, true, nil
}

// Write replaces the entry atomically via temp file + rename.
func (f *FileStore) Write(key string, content []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

func (f *FileStore) Clear(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ClearAll removes every cached entry.
func (f *FileStore) ClearAll() error {
	matches, err := filepath.Glob(filepath.Join(f.Dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// MemoryStore is an in-process Store. Now defaults to time.Now.
type MemoryStore struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}}
}

func (m *MemoryStore) Read(key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Write(key string, content []byte) error {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]Entry{}
	}
	m.entries[key] = Entry{Content: append([]byte(nil), content...), LastModified: now()}
	return nil
}

// Put stores an entry with an explicit write time.
func (m *MemoryStore) Put(key string, content []byte, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]Entry{}
	}
	m.entries[key] = Entry{Content: append([]byte(nil), content...), LastModified: lastModified}
}

func (m *MemoryStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return ErrNotFound
	}
	delete(m.entries, key)
	return nil
}

// Encode serializes a snapshot. time.Time values are written as RFC 3339
// strings.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode restores a snapshot written by Encode; RFC 3339 strings come
// back as time.Time in the field types of v.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
