// Package dataset loads the order, customer and event tables behind the
// dashboard and keeps one merged snapshot of them in memory.
package dataset

import (
	"context"
	"time"

	"thelook/api/models"
)

// Tables is the raw content of the three input datasets.
type Tables struct {
	Orders    []models.Order
	Customers []models.Customer
	Events    []models.Event
}

// Source loads Tables from some backing store.
type Source interface {
	Load(ctx context.Context) (*Tables, error)
}

// Snapshot is an immutable, merged view of the datasets. Callers must not
// modify the slices.
type Snapshot struct {
	Orders   []models.Order
	Events   []models.Event
	Version  uint64
	LoadedAt time.Time
}
