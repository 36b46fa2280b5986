// Package storage defines where exported market data lands.
package storage

import (
	"context"

	"github.com/LightmNFT/lightm-market/internal/model"
)

// Sink receives batches from the export pipeline. Batches may be redelivered
// after a partial failure, so implementations must tolerate replays.
type Sink interface {
	PutEventBatch(ctx context.Context, events []model.Event) error
	UpsertPairs(ctx context.Context, pairs []model.PairRecord) error
}
