package main

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
