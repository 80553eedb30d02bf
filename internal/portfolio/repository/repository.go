package repository

import (
	"context"
	"errors"

	"github.com/utsingh/portfolio-api/internal/portfolio"
)

var (
	// ErrNotFound is returned when the document, section or item is absent.
	ErrNotFound = errors.New("not found")
	// ErrNotArray is returned when an item is pushed to a path that holds a non-array value.
	ErrNotArray = errors.New("target is not an array")
)

// Repository reads and writes the single portfolio document through
// section and array-field targets. Every write is one store command.
type Repository interface {
	// GetData returns the data mapping, or an empty map when no document exists.
	GetData(ctx context.Context) (map[string]interface{}, error)
	// GetDocument returns the whole document including timestamps.
	GetDocument(ctx context.Context) (*portfolio.Document, error)
	// ReplaceData upserts the document with data as its entire mapping.
	ReplaceData(ctx context.Context, data map[string]interface{}) error
	GetSection(ctx context.Context, t portfolio.Target) (interface{}, error)
	ReplaceSection(ctx context.Context, t portfolio.Target, value interface{}) error
	// AddItem appends item to the array field t, assigning an _id when it has
	// none, and returns the stored item.
	AddItem(ctx context.Context, t portfolio.Target, item map[string]interface{}) (map[string]interface{}, error)
	// RemoveItem pulls every item of t whose _id matches id.
	RemoveItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier) error
	// ReplaceItem overwrites every item of t whose _id matches id with item,
	// keeping the id, and returns the stored item.
	ReplaceItem(ctx context.Context, t portfolio.Target, id portfolio.Identifier, item map[string]interface{}) (map[string]interface{}, error)
	// Seed inserts a document holding data only when none exists yet.
	Seed(ctx context.Context, data map[string]interface{}) (bool, error)
}
