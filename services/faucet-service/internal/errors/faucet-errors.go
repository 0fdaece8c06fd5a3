package errors

import (
	"fmt"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
)

func WrapNodeError(err error, method string) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeNodeCallError, "node call "+method+" failed")
}

func NodeResponseError(method, message string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNodeCallError, "node call "+method+" returned error: "+message)
}

func WrapFeedError(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeEventFetchError, "failed to fetch feed")
}

func WrapNotificationError(err error, kind string) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeEventPublishError, "failed to publish "+kind+" notification")
}

func WrapSocialGraphError(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to query social graph")
}

func WrapPricingError(err error) *apperrors.AppError {
	return apperrors.Transient(err, "failed to read previous day statistics")
}

func EventPanicError(recovered any) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInternalServer, fmt.Sprintf("event processing panicked: %v", recovered))
}

func NodeNotSyncedError(local, remote int64) *apperrors.AppError {
	return apperrors.New(apperrors.CodeServiceUnavailable, fmt.Sprintf("node is behind the explorer: %d < %d", local, remote))
}
