// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/plate-labs/internal/domain"
)

// ErrNotFound is returned when an archived plate does not exist.
var ErrNotFound = errors.New("archived plate not found")

// Repository defines the interface for the closed plate archive.
type Repository interface {
	// ArchivePlate appends the final layout of a closed research.
	ArchivePlate(ctx context.Context, p *domain.ArchivedPlate) error

	// ListArchivedPlates returns the most recently closed plates first.
	ListArchivedPlates(ctx context.Context, limit int) ([]*domain.ArchivedPlate, error)

	// GetArchivedPlate retrieves one archived plate by ID.
	GetArchivedPlate(ctx context.Context, id string) (*domain.ArchivedPlate, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
