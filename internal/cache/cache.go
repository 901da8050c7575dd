package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/qreviewer/qrev/internal/model"
)

// Entry is one cached set of findings for a hunk.
type Entry struct {
	Key       string          `json:"key"`
	Findings  []model.Finding `json:"findings"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       int             `json:"ttl"`
}

// Cache is a file-based store of normalized findings keyed by backend,
// model, and hunk digest. A disabled cache is a no-op on every call.
type Cache struct {
	dir        string
	ttlSeconds int
	enabled    bool
}

// New creates a Cache. If dir is empty, the default cache directory is
// used.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if dir == "" {
		d, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		ttlSeconds: ttlSeconds,
		enabled:    true,
	}, nil
}

// Get retrieves cached findings by key. The second return is false on
// miss or expiry.
func (c *Cache) Get(key string) ([]model.Finding, bool) {
	if !c.enabled {
		return nil, false
	}
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if c.ttlSeconds > 0 && time.Since(entry.CreatedAt) > time.Duration(c.ttlSeconds)*time.Second {
		os.Remove(c.entryPath(key))
		return nil, false
	}
	return entry.Findings, true
}

// Put stores findings under key.
func (c *Cache) Put(key string, findings []model.Finding) error {
	if !c.enabled {
		return nil
	}
	entry := Entry{
		Key:       hashKey(key),
		Findings:  findings,
		CreatedAt: time.Now(),
		TTL:       c.ttlSeconds,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return os.WriteFile(c.entryPath(key), data, 0o644)
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled || c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return nil
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool { return c.enabled }

// Stats summarizes the current cache contents.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"total_bytes"`
}

// GetStats counts the entries on disk.
func (c *Cache) GetStats() (Stats, error) {
	s := Stats{Dir: c.dir}
	if !c.enabled || c.dir == "" {
		return s, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		s.Entries++
		if info, err := e.Info(); err == nil {
			s.TotalBytes += info.Size()
		}
	}
	return s, nil
}

// Key builds the cache key for one hunk review: the backend identity, the
// model, and a digest of the exact hunk text plus guideline text.
func Key(backendName, mod, hunkText, guidelines string) string {
	return fmt.Sprintf("%s:%s:%s", backendName, mod, hashKey(hunkText+"\x00"+guidelines))
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, hashKey(key)+".json")
}

func defaultCacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "qrev"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "qrev"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "qrev", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "qrev", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "qrev"), nil
	}
}
