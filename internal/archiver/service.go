package archiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/wisatabooks/ledger/internal/domain/ledger"
	"github.com/wisatabooks/ledger/internal/platform/messaging/producers"
)

// RowArchive is the slice of the archive store the consumer writes to.
// Implemented by the MongoDB archive repository.
type RowArchive interface {
	InsertRows(ctx context.Context, rows []*ledger.Row) error
}

// Service consumes committed-rows events and persists the rows to the MongoDB
// archive on a worker pool. Undecodable payloads go to the DLQ instead of
// blocking the partition.
type Service struct {
	archive RowArchive
	dlq     producers.DeadLetterPublisher
	pool    *ants.Pool
	logger  *slog.Logger
	wg      sync.WaitGroup
}

type Config struct {
	WorkerPoolSize int
}

func NewService(
	archive RowArchive,
	dlq producers.DeadLetterPublisher,
	cfg Config,
	logger *slog.Logger,
) (*Service, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Service{
		archive: archive,
		dlq:     dlq,
		pool:    pool,
		logger:  logger,
	}, nil
}

// HandleMessage is the consumer handler for committed-rows events. A non-nil
// return leaves the offset uncommitted.
func (s *Service) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event ledger.CommittedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		s.logger.Error("Failed to decode committed-rows event, sending to DLQ",
			"key", string(key), "error", err,
		)
		if s.dlq != nil {
			if dlqErr := s.dlq.PublishToDLQ(ctx, string(key), value, "unmarshal_failed: "+err.Error()); dlqErr != nil {
				s.logger.Error("Failed to publish undecodable event to DLQ", "key", string(key), "error", dlqErr)
				return dlqErr
			}
		}
		// Parked in the DLQ; commit the offset so the partition moves on
		return nil
	}

	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	resultChan := make(chan error, 1)

	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()
		resultChan <- s.archiveEvent(ctx, &event)
	})
	if err != nil {
		s.wg.Done()
		logger.Error("Failed to submit event to worker pool", "error", err)
		return err
	}

	if err := <-resultChan; err != nil {
		logger.Error("Failed to archive committed rows", "error", err)
		return err
	}

	logger.Info("Archived committed rows",
		"rows", len(event.Rows),
		"accounts", len(event.AccountIDs),
	)
	return nil
}

func (s *Service) archiveEvent(ctx context.Context, event *ledger.CommittedEvent) error {
	if err := s.archive.InsertRows(ctx, event.Rows); err != nil {
		return fmt.Errorf("failed to archive rows: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight archival work and releases the pool
func (s *Service) Shutdown() {
	s.logger.Info("Shutting down archiver worker pool", "running_workers", s.pool.Running())
	s.wg.Wait()
	s.pool.Release()
}
