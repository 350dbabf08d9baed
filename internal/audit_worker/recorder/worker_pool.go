package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/warehouse-inventory-ledger/internal/domain/audit"
)

// WorkerPoolRecordingService fans audit recording out over a bounded worker
// pool while keeping the caller synchronous: RecordEntry returns the result
// of the pooled write, so the consumer only commits offsets for recorded
// events.
type WorkerPoolRecordingService struct {
	baseService RecordingService
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	results     map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolRecordingService(
	baseService RecordingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolRecordingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolRecordingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// RecordEntry submits the entry to the worker pool and waits for the result
func (s *WorkerPoolRecordingService) RecordEntry(ctx context.Context, entry *audit.Entry) error {
	logger := s.logger
	if entry.CorrelationID != "" {
		logger = s.logger.With("correlation_id", entry.CorrelationID)
	}

	logger.Debug("Submitting audit entry to worker pool",
		"movement_id", entry.MovementID.String(),
		"status", string(entry.Status),
	)

	resultChan := make(chan error, 1)

	// One in-flight slot per (movement, status) pair
	key := entry.MovementID.String() + ":" + string(entry.Status)
	s.mu.Lock()
	s.results[key] = resultChan
	s.mu.Unlock()

	entryCopy := *entry

	err := s.pool.Submit(func() {
		err := s.baseService.RecordEntry(ctx, &entryCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, key)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit audit entry to worker pool",
			"movement_id", entry.MovementID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolRecordingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolRecordingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolRecordingService) Capacity() int {
	return s.pool.Cap()
}
