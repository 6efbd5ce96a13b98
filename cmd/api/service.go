package main

import (
	"context"

	"github.com/UnendingLoop/Watermarker/internal/transport"
)

// WatermarkAPIService - все, что нужно от сервиса HTTP-слою и фоновому восстановлению задач
type WatermarkAPIService interface {
	transport.WatermarkService
	ReviveOrphans(ctx context.Context, limit int)
}
