package store

import (
	"context"

	"github.com/joescharf/crev/internal/models"
)

// Store defines the persistence interface for review history.
type Store interface {
	// Reviews
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	ListReviews(ctx context.Context, limit int) ([]*models.Review, error)
	DeleteReview(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
