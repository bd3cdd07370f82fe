package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/infrastructure/queue"
	"jan-server/services/claims-api/internal/webhook"
)

// Worker delivers queued decision notifications.
type Worker struct {
	id           int
	queue        queue.TaskQueue
	deliverer    webhook.Service
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
}

// NewWorker creates a new delivery worker.
func NewWorker(
	id int,
	queue queue.TaskQueue,
	deliverer webhook.Service,
	taskTimeout time.Duration,
	pollInterval time.Duration,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		id:           id,
		queue:        queue,
		deliverer:    deliverer,
		taskTimeout:  taskTimeout,
		pollInterval: pollInterval,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start polls the queue until the context ends or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

// drain processes due tasks until the queue has nothing left for this tick.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case <-w.stopChan:
			return
		default:
		}
		if !w.processNextTask(ctx) {
			return
		}
	}
}

// processNextTask reports whether a task was taken.
func (w *Worker) processNextTask(ctx context.Context) bool {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue task")
		return false
	}
	if task == nil {
		return false
	}

	w.log.Debug().
		Str("call_id", task.CallID).
		Int("attempt", task.Attempts).
		Msg("delivering decision notification")

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	if err := w.deliverer.NotifyDecision(taskCtx, task.Record); err != nil {
		w.log.Warn().Err(err).Str("call_id", task.CallID).Int("attempt", task.Attempts).Msg("decision delivery failed")
		if markErr := w.queue.MarkFailed(ctx, task, err); markErr != nil {
			w.log.Error().Err(markErr).Str("call_id", task.CallID).Msg("failed to mark task as failed")
		}
		return true
	}

	if err := w.queue.MarkCompleted(ctx, task); err != nil {
		w.log.Error().Err(err).Str("call_id", task.CallID).Msg("failed to mark task as completed")
	}
	return true
}
