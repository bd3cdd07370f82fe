package queue

import (
	"context"
	"time"

	"jan-server/services/claims-api/internal/domain/decision"
)

// Task is one claimed decision notification awaiting delivery.
type Task struct {
	ID       uint
	CallID   string
	Record   decision.Record
	Attempts int
	QueuedAt time.Time
}

// TaskQueue defines the interface for the decision delivery outbox.
type TaskQueue interface {
	// Enqueue stores a committed decision for delivery
	Enqueue(ctx context.Context, record decision.Record) error

	// Dequeue claims the next due task using SELECT FOR UPDATE SKIP LOCKED.
	// It returns nil when nothing is due.
	Dequeue(ctx context.Context) (*Task, error)

	// MarkCompleted records a successful delivery
	MarkCompleted(ctx context.Context, task *Task) error

	// MarkFailed schedules a redelivery, or gives up once attempts are exhausted
	MarkFailed(ctx context.Context, task *Task, err error) error

	// GetQueueDepth returns the number of undelivered tasks
	GetQueueDepth(ctx context.Context) (int64, error)
}
