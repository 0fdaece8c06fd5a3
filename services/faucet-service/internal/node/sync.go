package node

import (
	"context"
	"time"

	"github.com/burakmert236/xsgfaucet/common/logger"
	faucetErrors "github.com/burakmert236/xsgfaucet/services/faucet-service/internal/errors"
)

type HeightSource interface {
	GetBlockCount(ctx context.Context) (int64, error)
}

// WaitForSync polls until the local node height reaches the reference height.
// It returns nil once synced and ctx.Err() if ctx ends first.
func WaitForSync(ctx context.Context, local, reference HeightSource, interval time.Duration, log *logger.Logger) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := checkSync(ctx, local, reference)
		if err == nil {
			log.Info("Node is synced")
			return nil
		}
		log.Warn("Waiting for node to sync", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func checkSync(ctx context.Context, local, reference HeightSource) error {
	remoteHeight, err := reference.GetBlockCount(ctx)
	if err != nil {
		return err
	}
	localHeight, err := local.GetBlockCount(ctx)
	if err != nil {
		return err
	}
	if localHeight < remoteHeight {
		return faucetErrors.NodeNotSyncedError(localHeight, remoteHeight)
	}
	return nil
}
