package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burakmert236/xsgfaucet/common/logger"
	"google.golang.org/grpc"
)

func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
			return resp, err
		}
		log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		return resp, err
	}
}

// WaitForGracefulShutdown blocks until SIGINT or SIGTERM and returns the signal.
func WaitForGracefulShutdown() os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	return <-c
}
