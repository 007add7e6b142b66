// Package cache provides a content-addressed file cache for LLM call results.
// Every expensive call in the analysis pipeline is keyed by a digest of its
// semantic identity (document, regulation, phase, prompt), which makes reruns
// resumable and keeps a changed prompt from ever returning a stale answer.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache stores one JSON-serialized record per key in a flat directory.
// Entries persist until Clear is called; there is no eviction.
//
// Concurrency: writes go to a unique temp file and are renamed into place, so
// concurrent writers to distinct keys never interfere and a crash mid-write
// cannot corrupt an entry a concurrent reader already sees. Writes to the
// same key are last-write-wins, which is acceptable because content is
// deterministic per key.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives the cache key for one analysis call. The prompt text is part of
// the identity: rewording a prompt invalidates prior entries automatically,
// so a cached answer always matches the question actually asked.
func Key(documentName string, regulationNumber string, phase int, prompt string) string {
	var content string
	if prompt != "" {
		content = fmt.Sprintf("%s:%s:phase%d:%s", documentName, regulationNumber, phase, prompt)
	} else {
		content = fmt.Sprintf("%s:%s:phase%d", documentName, regulationNumber, phase)
	}
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Get loads the entry for key into out. It returns false on a miss; a
// missing, unreadable, or corrupt entry is a miss, never a pipeline failure.
func (c *Cache) Get(key string, out interface{}) bool {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// Put writes the entry for key atomically (temp file then rename).
func (c *Cache) Put(key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the cache directory.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
