package tui

import (
	"context"

	"go.uber.org/zap"

	"github.com/verte-zerg/prompter/internal/capture"
	"github.com/verte-zerg/prompter/internal/model"
	"github.com/verte-zerg/prompter/internal/session"
)

// Ledger is the take storage the interface reads and exports from.
type Ledger interface {
	ListTakes(ctx context.Context) ([]model.Take, error)
	LatestTake(ctx context.Context) (model.Take, error)
	ClipData(ctx context.Context, takeID string) ([]byte, error)
	SetExportPath(ctx context.Context, takeID, path string) error
}

// TakeInserter stores finished takes.
type TakeInserter interface {
	InsertTake(ctx context.Context, take model.Take, clip []byte) error
}

// RecordTakes returns a session take handler that stores every take and its
// clip bytes.
func RecordTakes(ledger TakeInserter, logger *zap.Logger) session.TakeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(take model.Take, clip *capture.Clip) {
		var data []byte
		if clip != nil {
			data = clip.Data
		}
		if err := ledger.InsertTake(context.Background(), take, data); err != nil {
			logger.Error("failed to store take", zap.String("take", take.ID), zap.Error(err))
		}
	}
}
