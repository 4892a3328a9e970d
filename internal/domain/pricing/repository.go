package pricing

import "context"

// Repository defines the interface for pricing request persistence
type Repository interface {
	// FindByID finds a pricing request with its items and comments
	FindByID(ctx context.Context, id string) (*PricingRequest, error)

	// FindByCreator lists the requests a Sales Executive created, newest first.
	// A non-empty salesStatus filters on the sales track.
	FindByCreator(ctx context.Context, userID string, salesStatus Status) ([]*PricingRequest, error)

	// FindAvailable lists submitted requests no analyst has claimed.
	// A non-empty analystStatus filters on the analyst track.
	FindAvailable(ctx context.Context, analystStatus Status) ([]*PricingRequest, error)

	// FindAssignedTo lists the requests assigned to an analyst
	FindAssignedTo(ctx context.Context, userID string, analystStatus Status) ([]*PricingRequest, error)

	// Create inserts a new pricing request
	Create(ctx context.Context, pr *PricingRequest) error

	// Save persists changes. It fails with shared.ErrConcurrencyConflict when
	// the stored version no longer matches pr.Version, and bumps pr.Version
	// on success.
	Save(ctx context.Context, pr *PricingRequest) error

	// Delete removes a pricing request with its items and comments
	Delete(ctx context.Context, id string) error
}
