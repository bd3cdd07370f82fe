package claim

import "context"

// DataSource is the read side of the claim store.
type DataSource interface {
	// FindByKey matches claim ids case-insensitively and returns ErrNotFound when nothing matches.
	FindByKey(ctx context.Context, claimID string) (*Claim, error)
	// Keys returns every known claim id in stable order.
	Keys(ctx context.Context) ([]string, error)
	List(ctx context.Context, filter Filter) ([]*Claim, error)
}

// MutationStore applies confirmed status changes.
type MutationStore interface {
	ApplyStatus(ctx context.Context, change StatusChange) (*Claim, error)
}

// Repository is implemented by the postgres claim store.
type Repository interface {
	DataSource
	MutationStore
	Count(ctx context.Context) (int64, error)
	BulkInsert(ctx context.Context, claims []*Claim) error
}
