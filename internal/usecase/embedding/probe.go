package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// ProbeText is embedded once at startup to verify the model and its dimensionality.
const ProbeText = "向量資料庫健康檢查"

// Probe embeds ProbeText and checks the vector length against the configured
// dimensions. An unreachable provider yields ErrModelUnavailable; a length
// mismatch yields ErrDimensionMismatch.
func Probe(ctx context.Context, e domain.Embedder, dimensions int, logger *zap.Logger) error {
	res, err := e.Embed(ctx, ProbeText)
	if err != nil {
		return fmt.Errorf("probe embedding model: %w", err)
	}
	if len(res.Embedding) == 0 {
		return fmt.Errorf("probe embedding model: empty vector: %w", domain.ErrModelUnavailable)
	}
	if len(res.Embedding) != dimensions {
		return fmt.Errorf("probe embedding model: %w", domain.NewDimensionMismatch(dimensions, len(res.Embedding)))
	}

	logger.Info("Embedding model ready", zap.Int("dimensions", dimensions))
	return nil
}
