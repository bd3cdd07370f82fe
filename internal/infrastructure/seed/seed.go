// Package seed loads the bundled demo claims into an empty claim store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/claim"
)

//go:embed claims.json
var claimsJSON []byte

// Claims returns the bundled claim set.
func Claims() ([]*claim.Claim, error) {
	var claims []*claim.Claim
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("decode seed claims: %w", err)
	}
	for _, c := range claims {
		if !c.Status.Valid() {
			return nil, fmt.Errorf("seed claim %s has invalid status %q", c.ClaimID, c.Status)
		}
	}
	return claims, nil
}

// Store is the subset of the claim repository needed for seeding.
type Store interface {
	Count(ctx context.Context) (int64, error)
	BulkInsert(ctx context.Context, claims []*claim.Claim) error
}

// Run inserts the bundled claims when the store is empty.
func Run(ctx context.Context, store Store, log zerolog.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Debug().Int64("claims", count).Msg("claim store already populated, skipping seed")
		return nil
	}

	claims, err := Claims()
	if err != nil {
		return err
	}
	if err := store.BulkInsert(ctx, claims); err != nil {
		return err
	}
	log.Info().Int("claims", len(claims)).Msg("seeded claim store")
	return nil
}
