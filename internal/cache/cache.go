// Package cache is the in-memory change-detection cache. It maps a logical
// entity id to the content hash last written to the scanner log, and tells
// callers whether a freshly fetched payload differs from it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// EntryType tags a scanner log row with the entity family it describes.
type EntryType string

const (
	TypeAllContinents EntryType = "ALL_CONTINENTS"
	TypeAllCountries  EntryType = "ALL_COUNTRIES"
	TypeAllLeagues    EntryType = "ALL_LEAGUES"
	TypeLeague        EntryType = "LEAGUE"
	TypeSeason        EntryType = "SEASON"
	TypeLive          EntryType = "LIVE"
	TypeStandings     EntryType = "STANDINGS"
	TypePlaceholders  EntryType = "PLACEHOLDERS"
)

// Record is the most recent scanner log row of one id.
type Record struct {
	ID        string
	Type      EntryType
	Hash      string
	CreatedAt time.Time
}

// Entry is a scanner log entry about to be written.
type Entry struct {
	Type             EntryType
	ID               string
	JSON             string
	Hash             string
	IsSameAsPrevious bool
	Log              string
}

// HashSource reads the latest scanner log row per id from durable storage.
type HashSource interface {
	LatestHashes(ctx context.Context) ([]Record, error)
}

// Cache is safe for concurrent use by several orchestrators.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Record
	loaded  time.Time

	source  HashSource
	version string
	reloads singleflight.Group
}

// New creates a cache backed by source. A nil source keeps the cache purely
// in memory: Reload is a no-op and only Remember populates it.
func New(source HashSource, version string) *Cache {
	return &Cache{
		entries: make(map[string]Record),
		source:  source,
		version: version,
	}
}

// Reload replaces the cached hashes with the latest rows from the source.
// The new map is built aside and swapped in only when the query succeeded,
// so a failed reload keeps the previous state. Concurrent callers share a
// single query.
func (c *Cache) Reload(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	_, err, _ := c.reloads.Do("reload", func() (interface{}, error) {
		records, err := c.source.LatestHashes(ctx)
		if err != nil {
			return nil, fmt.Errorf("load scanner log: %w", err)
		}
		shadow := make(map[string]Record, len(records))
		for _, r := range records {
			shadow[r.ID] = r
		}
		c.mu.Lock()
		c.entries = shadow
		c.loaded = time.Now()
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// CreateLogEntry hashes the canonical JSON form of data and compares it with
// the cached hash of id.
func (c *Cache) CreateLogEntry(typ EntryType, data any, id string) (Entry, error) {
	payload, hash, err := Hash(data)
	if err != nil {
		return Entry{}, err
	}
	c.mu.RLock()
	prev, ok := c.entries[id]
	c.mu.RUnlock()

	return Entry{
		Type:             typ,
		ID:               id,
		JSON:             payload,
		Hash:             hash,
		IsSameAsPrevious: ok && prev.Hash == hash,
		Log:              "automatic update from scanner " + c.version,
	}, nil
}

// Remember records e as persisted so an identical payload is reported as
// unchanged before the next reload.
func (c *Cache) Remember(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.ID] = Record{ID: e.ID, Type: e.Type, Hash: e.Hash, CreatedAt: time.Now()}
}

// Lookup returns the cached record of id.
func (c *Cache) Lookup(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[id]
	return r, ok
}

// Stats returns cache statistics.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byType := make(map[EntryType]int)
	for _, r := range c.entries {
		byType[r.Type]++
	}
	stats := map[string]interface{}{
		"total_keys": len(c.entries),
		"by_type":    byType,
	}
	if !c.loaded.IsZero() {
		stats["loaded_at"] = c.loaded.UTC().Format(time.RFC3339)
	}
	return stats
}

// Hash returns the canonical JSON of data and its SHA-256 hex digest.
// encoding/json emits struct fields in declaration order and map keys sorted,
// so equal values always produce equal text.
func Hash(data any) (string, string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("encode payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return string(b), hex.EncodeToString(sum[:]), nil
}
