// Package store is the reference persistence adapter for rule packs. The
// engine itself has no file or database API; callers that want durable
// packs wire a PackStore themselves and feed loaded packs to the runtime.
// Packs are stored as opaque serialized documents plus a content hash, so
// the store never needs to understand rule semantics.
package store

import (
	"context"
	"time"
)

// PackRecord is one stored rule pack version.
type PackRecord struct {
	ID          string
	PackID      string
	Version     string
	ContentYAML string
	ContentHash string
	CreatedAt   time.Time
}

// PackStore persists rule packs as opaque data.
type PackStore interface {
	SavePack(ctx context.Context, rec *PackRecord) error
	GetPack(ctx context.Context, packID string) (*PackRecord, error)
	ListPacks(ctx context.Context) ([]*PackRecord, error)
	DeletePack(ctx context.Context, packID string) error
}
