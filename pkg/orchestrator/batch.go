package orchestrator

import (
	"context"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/provider"
)

// BatchResult collects the outcomes of a sequential batch run.
type BatchResult struct {
	Items          []Result `json:"items" bson:"items"`
	GeneratedCount int      `json:"generated_count" bson:"generated_count"`
}

// GenerateBatch runs count independent requests strictly in sequence, each
// with a fresh seed. A failed item is recorded in the result list and the
// remaining items still run; the batch itself only errors on bad input or
// when another request is already active.
func (o *Orchestrator) GenerateBatch(ctx context.Context, req *provider.GenerationRequest, count int) (*BatchResult, error) {
	if req == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput, "generation request is required")
	}
	if count < 1 {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput, "batch count must be at least 1, got %d", count)
	}
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.release()

	batch := &BatchResult{Items: make([]Result, 0, count)}
	for i := 0; i < count; i++ {
		item := *req
		item.Seed = o.opts.Seed()

		result := o.run(ctx, &item)
		if result.Success {
			batch.GeneratedCount++
		} else {
			o.opts.Logger.Warn("batch item failed",
				"index", i, "code", result.ErrorCode, "err", result.Error)
			if result.ErrorCode == "" {
				result.ErrorCode = string(zferrors.ErrCodeBatchItemFailed)
			}
		}
		batch.Items = append(batch.Items, *result)
	}
	return batch, nil
}
