package lint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/vmihailenco/msgpack/v5"

	"winter/internal/diag"
)

// bump when cachePayload changes shape
const cacheSchemaVersion uint16 = 1

// Cache stores per-file results on disk, addressed by file content, rule-set
// version and index digest. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema      uint16
	Path        string
	RuleSet     string
	IndexDigest string
	Diagnostics []diag.Diagnostic
}

// CacheKey is the content address of one file result.
type CacheKey [sha256.Size]byte

// NewCacheKey combines the inputs that determine a file's diagnostics.
func NewCacheKey(path string, content []byte, ruleSet, indexDigest string) CacheKey {
	h := sha256.New()
	sum := sha256.Sum256(content)
	_, _ = h.Write(sum[:])
	for _, s := range []string{path, ruleSet, indexDigest} {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	var k CacheKey
	copy(k[:], h.Sum(nil))
	return k
}

// OpenCache opens (creating if needed) a cache rooted at dir. An empty dir
// selects $XDG_CACHE_HOME/winter.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, "winter")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key CacheKey) string {
	hexKey := hex.EncodeToString(key[:])
	// двухсимвольный префикс, чтобы не раздувать один каталог
	return filepath.Join(c.dir, "results", hexKey[:2], hexKey+".mp")
}

// Put writes the diagnostics for key atomically.
func (c *Cache) Put(key CacheKey, path, ruleSet, indexDigest string, ds []diag.Diagnostic) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Debugf("failed to remove temp file: %v", rmErr)
		}
	}()

	payload := cachePayload{
		Schema:      cacheSchemaVersion,
		Path:        path,
		RuleSet:     ruleSet,
		IndexDigest: indexDigest,
		Diagnostics: ds,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), p)
}

// Get returns the cached diagnostics for key. A payload written by another
// schema version, or for another path, is a miss.
func (c *Cache) Get(key CacheKey, path string) ([]diag.Diagnostic, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != cacheSchemaVersion || payload.Path != path {
		return nil, false, nil
	}
	return payload.Diagnostics, true, nil
}

// DropAll removes every cached result.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	results := filepath.Join(c.dir, "results")
	old := results + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(results, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}
