// Package export drains the factory journal into storage sinks.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/LightmNFT/lightm-market/internal/market"
	"github.com/LightmNFT/lightm-market/internal/metrics"
	"github.com/LightmNFT/lightm-market/internal/model"
	"github.com/LightmNFT/lightm-market/internal/storage"
)

const shutdownFlushTimeout = 5 * time.Second

// Config holds runtime settings for the exporter.
type Config struct {
	FlushInterval time.Duration
	BatchSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Source is the journal the exporter tails.
type Source interface {
	EventsSince(seq uint64) []model.Event
	GetPair(addr common.Address) (market.PairDetail, error)
}

// Exporter ships journal events, and the pair records they announce, to
// every configured sink. The cursor advances only after all sinks took a
// batch, so delivery is at-least-once and sinks must tolerate replays.
type Exporter struct {
	cfg     Config
	source  Source
	sinks   []storage.Sink
	state   StateStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	cursor       uint64
	cursorLoaded bool
}

// NewExporter builds an exporter over the given source and sinks.
func NewExporter(cfg Config, source Source, sinks []storage.Sink, state StateStore, logger *zap.Logger, mtr *metrics.Metrics) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 256
	}
	return &Exporter{
		cfg:     cfg,
		source:  source,
		sinks:   sinks,
		state:   state,
		logger:  logger,
		metrics: mtr,
	}
}

// Run flushes on every interval until ctx is cancelled, then performs one
// final flush so a clean shutdown loses nothing.
func (e *Exporter) Run(ctx context.Context) error {
	if err := e.validate(); err != nil {
		return err
	}

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			defer cancel()
			if err := e.Flush(flushCtx); err != nil {
				e.logger.Warn("final flush failed", zap.Error(err))
			}
			return nil
		case <-ticker.C:
			if err := e.Flush(ctx); err != nil {
				e.logger.Warn("flush failed", zap.Error(err))
			}
		}
	}
}

// Flush exports everything appended since the last saved cursor.
func (e *Exporter) Flush(ctx context.Context) error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := e.loadCursor(ctx); err != nil {
		return err
	}

	pending := e.source.EventsSince(e.cursor)
	for len(pending) > 0 {
		n := e.cfg.BatchSize
		if n > len(pending) {
			n = len(pending)
		}
		chunk := pending[:n]
		pending = pending[n:]

		if err := e.exportBatch(ctx, chunk); err != nil {
			return err
		}

		e.cursor = chunk[len(chunk)-1].Seq
		if err := e.state.Save(ctx, e.cursor); err != nil {
			return fmt.Errorf("save export state: %w", err)
		}

		if e.metrics != nil {
			e.metrics.EventsExported.Add(float64(len(chunk)))
			e.metrics.ExportBatches.Inc()
		}
		e.logger.Info("batch exported", zap.Int("events", len(chunk)), zap.Uint64("through", e.cursor))
	}
	return nil
}

func (e *Exporter) validate() error {
	if e.source == nil {
		return fmt.Errorf("source is nil")
	}
	if e.state == nil {
		return fmt.Errorf("state store is nil")
	}
	if len(e.sinks) == 0 {
		return fmt.Errorf("at least one sink is required")
	}
	return nil
}

func (e *Exporter) loadCursor(ctx context.Context) error {
	if e.cursorLoaded {
		return nil
	}
	seq, ok, err := e.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load export state: %w", err)
	}
	if ok {
		e.cursor = seq
		e.logger.Info("resume from saved cursor", zap.Uint64("last_exported", seq))
	}
	e.cursorLoaded = true
	return nil
}

func (e *Exporter) exportBatch(ctx context.Context, events []model.Event) error {
	pairs := e.pairRecords(events)
	for _, sink := range e.sinks {
		if err := e.putWithRetry(ctx, sink, events); err != nil {
			return fmt.Errorf("put events: %w", err)
		}
		if err := e.upsertWithRetry(ctx, sink, pairs); err != nil {
			return fmt.Errorf("upsert pairs: %w", err)
		}
	}
	return nil
}

// pairRecords resolves the records announced by pair creation events so
// sinks get the full pair row alongside the event.
func (e *Exporter) pairRecords(events []model.Event) []model.PairRecord {
	var records []model.PairRecord
	for _, ev := range events {
		if ev.Type != model.EventNewPair {
			continue
		}
		detail, err := e.source.GetPair(common.HexToAddress(ev.Pair))
		if err != nil {
			e.logger.Warn("pair lookup failed", zap.String("pair", ev.Pair), zap.Error(err))
			continue
		}
		records = append(records, detail.PairRecord)
	}
	return records
}

func (e *Exporter) putWithRetry(ctx context.Context, sink storage.Sink, events []model.Event) error {
	return withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) error {
		err := sink.PutEventBatch(ctx, events)
		if err != nil {
			if e.metrics != nil {
				e.metrics.ExportRetries.Inc()
			}
			e.logger.Warn("event batch write failed", zap.Error(err), zap.Int("events", len(events)))
		}
		return err
	})
}

func (e *Exporter) upsertWithRetry(ctx context.Context, sink storage.Sink, pairs []model.PairRecord) error {
	if len(pairs) == 0 {
		return nil
	}
	return withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) error {
		err := sink.UpsertPairs(ctx, pairs)
		if err != nil {
			if e.metrics != nil {
				e.metrics.ExportRetries.Inc()
			}
			e.logger.Warn("pair upsert failed", zap.Error(err), zap.Int("pairs", len(pairs)))
		}
		return err
	})
}
