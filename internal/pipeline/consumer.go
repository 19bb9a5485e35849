package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// LocationReporter handles one decoded location report.
type LocationReporter interface {
	ReportLocation(ctx context.Context, r LocationReport) (LocationResult, error)
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Consumer feeds location reports from a message stream into the pipeline.
type Consumer struct {
	extractor BatchExtractor
	reporter  LocationReporter
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	ready     atomic.Bool
	batchSize int
}

// NewConsumer creates a Consumer. A nil clock uses the real clock.
func NewConsumer(e BatchExtractor, r LocationReporter, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, batchSize int) *Consumer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Consumer{
		extractor: e,
		reporter:  r,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the consumer has handled at least one batch.
func (c *Consumer) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("consumer has not processed any messages yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("location consumer started", "batch_size", c.batchSize)
	c.metrics.ConsumerRunning.Set(1)
	defer c.metrics.ConsumerRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("location consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !c.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-report-commit cycle. Returns false if the consumer should stop.
func (c *Consumer) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := c.clock.Now()

	batch, err := c.extractor.ExtractBatch(ctx, c.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("extract batch failed", "error", err)
		return c.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	c.metrics.MessagesConsumed.Add(float64(len(batch)))
	c.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	for _, msg := range batch {
		if !c.handle(ctx, msg, backoff) {
			return false
		}
	}

	c.metrics.BatchProcessingDuration.Observe(c.clock.Since(start).Seconds())
	c.ready.Store(true)
	return true
}

// handle reports one message, retrying in place while the pipeline's
// upstreams are unavailable so that later offsets are never committed ahead of
// it. Returns false if the consumer should stop.
func (c *Consumer) handle(ctx context.Context, msg domain.RawMessage, backoff *time.Duration) bool {
	var report LocationReport
	if err := json.Unmarshal(msg.Value, &report); err != nil {
		c.skip(ctx, msg, fmt.Errorf("decode location report: %w", err))
		return true
	}

	for {
		res, err := c.reporter.ReportLocation(ctx, report)
		if res.LocationID != "" {
			// A retry must not store the sample a second time.
			report.sampleID = res.LocationID
		}
		switch {
		case err == nil:
			*backoff = initialBackoff
			c.commit(ctx, msg)
			return true
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNotFound):
			c.skip(ctx, msg, err)
			return true
		}

		c.logger.Error("report location failed, retrying",
			"error", err,
			"tourist_id", report.TouristID,
			"offset", msg.Offset,
			"backoff", *backoff,
		)
		if !c.backoffOrStop(ctx, backoff) {
			return false
		}
	}
}

func (c *Consumer) skip(ctx context.Context, msg domain.RawMessage, err error) {
	c.logger.Warn("poison message, skipping",
		"error", err,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	c.metrics.PoisonMessages.Inc()
	c.commit(ctx, msg)
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the consumer should stop.
func (c *Consumer) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !c.sleep(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commit acknowledges the message if a commit function is available.
func (c *Consumer) commit(ctx context.Context, msg domain.RawMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		c.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}
