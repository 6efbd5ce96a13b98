// Package storage provides a blob storage for source images, watermarks and results
package storage

import (
	"context"
	"log"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

// NewBlobStorage подключается к MinIO, повторяя попытки до успеха или отмены контекста
func NewBlobStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioBlobStorage, error) {
	for {
		log.Println("Connecting to blob-storage...")
		client, err := miniostorage.NewMinioClient(ctx, cfg)
		if err == nil {
			log.Println("Successfully connected blob-storage!")
			return client, nil
		}
		log.Printf("Failed to init connection to blob-storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
