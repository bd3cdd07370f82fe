package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jan-server/services/claims-api/internal/domain/claim"
)

// LookupOutput is the lookupClaim result. Exactly one field is set.
type LookupOutput struct {
	Claim *claim.Claim `json:"claim,omitempty"`
	Error string       `json:"error,omitempty"`
}

// LookupResolver resolves lookupClaim calls against the claim data source.
type LookupResolver struct {
	source claim.DataSource
}

// NewLookupResolver constructs the lookupClaim resolver.
func NewLookupResolver(source claim.DataSource) *LookupResolver {
	return &LookupResolver{source: source}
}

// Lookup returns the claim, or a not-found payload listing the known ids.
// Only data-source failures are returned as errors.
func (r *LookupResolver) Lookup(ctx context.Context, claimID string) (*LookupOutput, error) {
	found, err := r.source.FindByKey(ctx, claimID)
	if err == nil {
		return &LookupOutput{Claim: found}, nil
	}
	if !errors.Is(err, claim.ErrNotFound) {
		return nil, err
	}

	keys, err := r.source.Keys(ctx)
	if err != nil {
		return nil, err
	}
	return &LookupOutput{
		Error: fmt.Sprintf("Claim %s not found. Available IDs: %s", claimID, strings.Join(keys, ", ")),
	}, nil
}

// Resolve adapts Lookup to the registry Resolver signature.
func (r *LookupResolver) Resolve(ctx context.Context, input Input) (json.RawMessage, error) {
	in, ok := input.(*LookupClaimInput)
	if !ok {
		return nil, fmt.Errorf("lookupClaim: unexpected input %T", input)
	}
	out, err := r.Lookup(ctx, in.ClaimID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
