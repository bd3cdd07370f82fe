package claim

import (
	"context"

	"github.com/rs/zerolog"
)

// Service exposes read access to claims for the HTTP layer.
type Service interface {
	Get(ctx context.Context, claimID string) (*Claim, error)
	List(ctx context.Context, filter Filter) ([]*Claim, error)
}

// ServiceImpl is the default claim Service.
type ServiceImpl struct {
	source DataSource
	log    zerolog.Logger
}

// NewService constructs a claim service backed by the given data source.
func NewService(source DataSource, log zerolog.Logger) *ServiceImpl {
	return &ServiceImpl{
		source: source,
		log:    log.With().Str("component", "claim-service").Logger(),
	}
}

// Get returns a claim by id.
func (s *ServiceImpl) Get(ctx context.Context, claimID string) (*Claim, error) {
	return s.source.FindByKey(ctx, claimID)
}

// List returns claims matching the filter.
func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]*Claim, error) {
	claims, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int("count", len(claims)).Msg("listed claims")
	return claims, nil
}

var _ Service = (*ServiceImpl)(nil)
