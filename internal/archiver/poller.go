// Package archiver moves committed ledger rows from the transactional store
// into the MongoDB archive: an outbox poller publishes committed-rows events
// to Kafka, and a consumer persists the rows on a worker pool.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/wisatabooks/ledger/internal/config"
	"github.com/wisatabooks/ledger/internal/domain/outbox"
	"github.com/wisatabooks/ledger/internal/platform/messaging/producers"
)

// Poller publishes pending outbox messages to Kafka. A message is marked
// PROCESSED only after the broker acknowledged the write, so delivery is
// at-least-once and the archive absorbs duplicates.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger
		if event, err := msg.Event(); err == nil && event.CorrelationID != "" {
			logger = p.logger.With("correlation_id", event.CorrelationID)
		}

		if err := p.publishMessage(ctx, msg); err != nil {
			logger.Error("Failed to publish outbox message",
				"outbox_id", msg.ID, "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
					"outbox_id", msg.ID, "attempts_made", msg.Attempts+1,
				)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to update outbox status after max retries", "outbox_id", msg.ID, "error", errUpdate)
				}
			}
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
			// The event was published; the next tick republishes and the
			// archive's unique row index absorbs the duplicate.
			logger.Error("Published but failed to mark outbox message as PROCESSED", "outbox_id", msg.ID, "error", err)
			continue
		}

		logger.Info("Outbox message published and marked as PROCESSED", "outbox_id", msg.ID)
	}
	return nil
}

// publishMessage keys the Kafka message by journal entry so replays of the
// same entry land in one partition
func (p *Poller) publishMessage(ctx context.Context, msg *outbox.Message) error {
	key := strconv.FormatInt(msg.ID, 10)
	if msg.EntryID != nil {
		key = msg.EntryID.String()
	}

	event, err := msg.Event()
	if err != nil {
		return fmt.Errorf("failed to decode outbox payload %d: %w", msg.ID, err)
	}

	return p.publisher.Publish(ctx, key, event)
}
