// Package storage defines interfaces and implementations for feeding event
// storage backends.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/automaticats/feederd/internal/types"
)

// EventStorer is an interface that provides a standardized method for
// various storage backends to consume feeding events.
type EventStorer interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.FeedingEvent
}

// EventRecord is a stored feeding event joined with its cat identity, as
// returned by query-capable stores.
type EventRecord struct {
	CatName     string          `json:"cat_name"`
	Timestamp   time.Time       `json:"timestamp"`
	Kind        types.EventKind `json:"kind"`
	AmountGrams float64         `json:"amount_grams"`
	Source      string          `json:"source"`
}

// CatStats aggregates one cat's eating activity over a query window.
type CatStats struct {
	CatName      string  `json:"cat_name"`
	EatingEvents int     `json:"eating_events"`
	TotalGrams   float64 `json:"total_grams"`
}
