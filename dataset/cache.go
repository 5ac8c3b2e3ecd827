package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache owns the process-wide dataset snapshot. The snapshot is loaded on
// first use and replaced whole on Reload; it is never partially updated.
type Cache struct {
	source Source
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Snapshot
	version uint64
}

func NewCache(source Source, logger *logrus.Logger) *Cache {
	return &Cache{source: source, logger: logger, now: time.Now}
}

// Get returns the cached snapshot, loading it when the cache is empty.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return c.current, nil
	}
	return c.loadLocked(ctx)
}

// Invalidate drops the snapshot; the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.logger.Info("Dataset cache invalidated")
}

// Reload loads a fresh snapshot. On failure the previous snapshot stays in place.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Cache) loadLocked(ctx context.Context) (*Snapshot, error) {
	start := c.now()
	tables, err := c.source.Load(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to load datasets")
		return nil, err
	}

	c.version++
	snap := &Snapshot{
		Orders:   Merge(tables.Orders, tables.Customers),
		Events:   tables.Events,
		Version:  c.version,
		LoadedAt: c.now(),
	}
	c.current = snap

	c.logger.WithFields(logrus.Fields{
		"version":   snap.Version,
		"orders":    len(snap.Orders),
		"customers": len(tables.Customers),
		"events":    len(snap.Events),
		"took":      c.now().Sub(start).String(),
	}).Info("Datasets loaded")
	return snap, nil
}
