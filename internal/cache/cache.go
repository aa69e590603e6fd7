// Package cache keeps indexed sessions on disk so a static export can be
// toggled later without re-running the analysis.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"aquascope/internal/facts"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// ErrBadKey is returned for keys that are not session identifiers.
var ErrBadKey = errors.New("cache key is not a session id")

// DiskCache stores one payload per session.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is what a rendered session leaves behind.
type Payload struct {
	Schema uint16

	Session      string
	SourcePath   string
	AnalysisPath string
	Created      time.Time

	Facts   *facts.AnalysisFacts
	Records []facts.ActionFacts
}

// NewPayload fills in the schema version and creation time.
func NewPayload(af *facts.AnalysisFacts, records []facts.ActionFacts) *Payload {
	return &Payload{
		Schema:  schemaVersion,
		Session: af.Session,
		Created: time.Now().UTC(),
		Facts:   af,
		Records: records,
	}
}

// Open initializes and returns a disk cache at the standard location.
func Open(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir opens a cache rooted at dir.
func OpenDir(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(session string) (string, error) {
	id, err := uuid.Parse(session)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadKey, session)
	}
	return filepath.Join(c.dir, "sessions", id.String()+".mp"), nil
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	p, err := c.pathFor(payload.Session)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads a payload. Payloads written with another schema count as misses.
func (c *DiskCache) Get(session string, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	p, err := c.pathFor(session)
	if err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var got Payload
	if err := msgpack.NewDecoder(f).Decode(&got); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	if got.Schema != schemaVersion {
		return false, nil
	}
	*out = got
	return true, nil
}

// Delete removes one session.
func (c *DiskCache) Delete(session string) error {
	if c == nil {
		return nil
	}
	p, err := c.pathFor(session)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
