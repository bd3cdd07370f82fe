package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/retry"
	"jan-server/services/claims-api/internal/infrastructure/database/entities"
)

const (
	statusQueued     = "queued"
	statusInProgress = "in_progress"
	statusDelivered  = "delivered"
	statusFailed     = "failed"
)

// Config bounds redelivery.
type Config struct {
	MaxAttempts int
	// Lease is how long a claimed task stays invisible before another worker may retake it.
	Lease time.Duration
}

// PostgresQueue implements TaskQueue on the decision_deliveries table.
type PostgresQueue struct {
	db     *gorm.DB
	cfg    Config
	policy retry.Policy
	now    func() time.Time
	log    zerolog.Logger
}

// NewPostgresQueue creates a new PostgreSQL-backed delivery queue.
func NewPostgresQueue(db *gorm.DB, cfg Config, log zerolog.Logger) *PostgresQueue {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	return &PostgresQueue{
		db:     db,
		cfg:    cfg,
		policy: retry.DeliveryPolicy(cfg.MaxAttempts),
		now:    time.Now,
		log:    log.With().Str("component", "postgres-queue").Logger(),
	}
}

// NotifyDecision enqueues the decision, making the queue usable as the decision notifier.
func (q *PostgresQueue) NotifyDecision(ctx context.Context, record decision.Record) error {
	return q.Enqueue(ctx, record)
}

// Enqueue inserts a queued delivery that is due immediately.
func (q *PostgresQueue) Enqueue(ctx context.Context, record decision.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	entity := &entities.DecisionDelivery{
		CallID:      record.CallID,
		Payload:     datatypes.JSON(payload),
		Status:      statusQueued,
		AvailableAt: q.now().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	q.log.Debug().Str("call_id", record.CallID).Uint("task_id", entity.ID).Msg("decision delivery queued")
	return nil
}

// Dequeue claims the oldest due task. Tasks whose lease expired are retaken.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	now := q.now().UTC()
	var claimed *entities.DecisionDelivery

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.DecisionDelivery
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? AND available_at <= ?) OR (status = ? AND locked_at < ?)",
				statusQueued, now, statusInProgress, now.Add(-q.cfg.Lease)).
			Order("available_at ASC").
			Take(&entity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		entity.Attempts++
		err = tx.Model(&entity).Updates(map[string]interface{}{
			"status":     statusInProgress,
			"attempts":   entity.Attempts,
			"locked_at":  now,
			"updated_at": now,
		}).Error
		if err != nil {
			return err
		}
		claimed = &entity
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	if claimed == nil {
		return nil, nil
	}

	var record decision.Record
	if err := json.Unmarshal(claimed.Payload, &record); err != nil {
		return nil, fmt.Errorf("decode task %d: %w", claimed.ID, err)
	}
	return &Task{
		ID:       claimed.ID,
		CallID:   claimed.CallID,
		Record:   record,
		Attempts: claimed.Attempts,
		QueuedAt: claimed.CreatedAt,
	}, nil
}

// MarkCompleted marks the delivery as done.
func (q *PostgresQueue) MarkCompleted(ctx context.Context, task *Task) error {
	now := q.now().UTC()
	result := q.db.WithContext(ctx).
		Model(&entities.DecisionDelivery{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       statusDelivered,
			"delivered_at": now,
			"locked_at":    nil,
			"updated_at":   now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delivery task not found: %d", task.ID)
	}
	return nil
}

// MarkFailed requeues the task with backoff, or fails it permanently after MaxAttempts.
func (q *PostgresQueue) MarkFailed(ctx context.Context, task *Task, taskErr error) error {
	now := q.now().UTC()
	status, availableAt := q.nextAttempt(task.Attempts, now)
	message := taskErr.Error()

	result := q.db.WithContext(ctx).
		Model(&entities.DecisionDelivery{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":       status,
			"available_at": availableAt,
			"last_error":   message,
			"locked_at":    nil,
			"updated_at":   now,
		})

	if result.Error != nil {
		return fmt.Errorf("mark failed: %w", result.Error)
	}
	if status == statusFailed {
		q.log.Error().Str("call_id", task.CallID).Int("attempts", task.Attempts).Str("error", message).Msg("decision delivery abandoned")
	}
	return nil
}

func (q *PostgresQueue) nextAttempt(attempts int, now time.Time) (string, time.Time) {
	if attempts >= q.cfg.MaxAttempts {
		return statusFailed, now
	}
	return statusQueued, now.Add(q.policy.CalculateDelay(attempts))
}

// GetQueueDepth returns the number of queued or in-flight deliveries.
func (q *PostgresQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.DecisionDelivery{}).
		Where("status IN ?", []string{statusQueued, statusInProgress}).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}

	return count, nil
}

var (
	_ TaskQueue         = (*PostgresQueue)(nil)
	_ decision.Notifier = (*PostgresQueue)(nil)
)
