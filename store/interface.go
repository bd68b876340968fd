// Package store provides persistent catalog storage for the vitrine server.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a catalog item id has no matching record.
var ErrNotFound = errors.New("iphone not found")

// Iphone is a catalog item as persisted by the store.
type Iphone struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Price     float64   `json:"price"`
	Storage   string    `json:"storage"`
	Color     string    `json:"color"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IphoneFields holds the full field set for creating a catalog item.
// The id is assigned by the store.
type IphoneFields struct {
	Name    string
	Model   string
	Price   float64
	Storage string
	Color   string
	Image   string
}

// IphoneUpdate holds a partial field set for updating a catalog item.
// Nil fields are left unchanged.
type IphoneUpdate struct {
	Name    *string
	Model   *string
	Price   *float64
	Storage *string
	Color   *string
	Image   *string
}

// Store defines the persistence operations the catalog engine depends on.
// This interface enables mocking for unit tests.
type Store interface {
	// Close closes the database connection.
	Close()

	// ListAll returns the full catalog ordered by ascending id.
	ListAll(ctx context.Context) ([]Iphone, error)
	// Create inserts a new item and returns it with its assigned id.
	Create(ctx context.Context, fields IphoneFields) (*Iphone, error)
	// FindByID returns the item with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Iphone, error)
	// Update applies the non-nil fields to an existing item and returns the
	// refreshed record, or ErrNotFound.
	Update(ctx context.Context, id int64, fields IphoneUpdate) (*Iphone, error)
	// Delete removes the item with the given id, or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
}
