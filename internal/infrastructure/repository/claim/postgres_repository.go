package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/infrastructure/database/entities"
	"jan-server/services/claims-api/internal/infrastructure/metrics"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// ClaimGormRepository persists claims in postgres behind an LRU read cache.
type ClaimGormRepository struct {
	db    *gorm.DB
	cache *claimCache
	now   func() time.Time
}

var _ domain.Repository = (*ClaimGormRepository)(nil)

// NewClaimGormRepository constructs the claim repository. cacheSize <= 0 disables caching.
func NewClaimGormRepository(db *gorm.DB, cacheSize int) (*ClaimGormRepository, error) {
	cache, err := newClaimCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create claim cache: %w", err)
	}
	return &ClaimGormRepository{db: db, cache: cache, now: time.Now}, nil
}

// FindByKey matches the claim id case-insensitively.
func (r *ClaimGormRepository) FindByKey(ctx context.Context, claimID string) (*domain.Claim, error) {
	if cached, ok := r.cache.get(claimID); ok {
		metrics.RecordClaimCache(true)
		return cached, nil
	}
	metrics.RecordClaimCache(false)

	var row entities.Claim
	err := r.db.WithContext(ctx).Where("LOWER(claim_id) = LOWER(?)", claimID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("claim %s not found", claimID), domain.ErrNotFound, "claim-find-notfound-001")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load claim", err, "claim-find-db-001")
	}

	found, err := row.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode claim", err, "claim-find-decode-001")
	}
	r.cache.put(found)
	return found, nil
}

// Keys returns every claim id ordered by id.
func (r *ClaimGormRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.WithContext(ctx).Model(&entities.Claim{}).Order("claim_id ASC").Pluck("claim_id", &keys).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list claim ids", err, "claim-keys-db-001")
	}
	return keys, nil
}

// List returns claims ordered by id, optionally narrowed by status.
func (r *ClaimGormRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Claim, error) {
	query := r.db.WithContext(ctx).Model(&entities.Claim{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var rows []entities.Claim
	if err := query.Order("claim_id ASC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list claims", err, "claim-list-db-001")
	}

	claims := make([]*domain.Claim, 0, len(rows))
	for i := range rows {
		c, err := rows[i].EtoD()
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"failed to decode claim", err, "claim-list-decode-001")
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// ApplyStatus mutates a claim under a row lock and records the change in the audit table.
// A change whose SourceCallID is already audited is not applied again; the claim is returned as stored.
func (r *ClaimGormRepository) ApplyStatus(ctx context.Context, change domain.StatusChange) (*domain.Claim, error) {
	var updated *domain.Claim

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entities.Claim
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("LOWER(claim_id) = LOWER(?)", change.ClaimID).
			First(&row).Error
		if err != nil {
			return err
		}

		current, err := row.EtoD()
		if err != nil {
			return err
		}

		if change.SourceCallID != "" {
			var applied int64
			if err := tx.Model(&entities.ClaimStatusChange{}).
				Where("source_call_id = ?", change.SourceCallID).
				Count(&applied).Error; err != nil {
				return err
			}
			if applied > 0 {
				updated = current
				return nil
			}
		}

		from := current.Status
		current.Apply(change, r.now())

		if err := tx.Model(&row).Updates(map[string]any{
			"status":      string(current.Status),
			"notes":       current.Notes,
			"resolved_at": current.ResolvedAt,
		}).Error; err != nil {
			return err
		}

		audit := entities.ClaimStatusChange{
			ClaimID:      current.ClaimID,
			FromStatus:   string(from),
			ToStatus:     string(current.Status),
			Notes:        change.Notes,
			SourceCallID: change.SourceCallID,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		updated = current
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("claim %s not found", change.ClaimID), domain.ErrNotFound, "claim-apply-notfound-001")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to apply claim status", err, "claim-apply-db-001")
	}

	r.cache.invalidate(change.ClaimID)
	return updated, nil
}

// Count returns the number of stored claims.
func (r *ClaimGormRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Claim{}).Count(&count).Error; err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count claims", err, "claim-count-db-001")
	}
	return count, nil
}

// BulkInsert stores claims, skipping ids that already exist.
func (r *ClaimGormRepository) BulkInsert(ctx context.Context, claims []*domain.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	rows := make([]entities.Claim, 0, len(claims))
	for _, c := range claims {
		row, err := entities.NewSchemaClaim(c)
		if err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation,
				fmt.Sprintf("failed to encode claim %s", c.ClaimID), err, "claim-insert-encode-001")
		}
		rows = append(rows, *row)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "claim_id"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to insert claims", err, "claim-insert-db-001")
	}
	return nil
}
