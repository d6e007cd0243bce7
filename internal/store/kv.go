package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MemKV is an in-memory KV for tests and ephemeral sessions.
type MemKV struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemKV creates an empty in-memory KV.
func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (kv *MemKV) Get(key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *MemKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

// FileKV stores each key as a JSON file in a directory.
type FileKV struct {
	dir string
	mu  sync.Mutex
}

// NewFileKV creates a file-backed KV rooted at dir.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

func (kv *FileKV) path(key string) string {
	// Keys are dotted names; keep them filesystem-safe.
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(kv.dir, name+".json")
}

func (kv *FileKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	data, err := os.ReadFile(kv.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (kv *FileKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if err := os.MkdirAll(kv.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(kv.path(key), []byte(value), 0644)
}
