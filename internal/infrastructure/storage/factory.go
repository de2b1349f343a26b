package storage

import (
	"context"
	"fmt"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewArchiveStore builds the store selected by cfg.Driver. It returns nil
// when archiving is disabled.
func NewArchiveStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (appledger.ArchiveStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "s3":
		store, err := NewS3ArchiveStore(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Cash cut archive uses S3", zap.String("bucket", store.Bucket()))
		return store, nil
	case "local", "":
		store, err := NewLocalArchiveStore(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Cash cut archive uses local disk", zap.String("dir", store.Root()))
		return store, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}
