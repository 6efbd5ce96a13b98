// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
)

// ErrObjectNotFound - ключа нет в бакете
var ErrObjectNotFound = errors.New("object not found in storage")

type MinioBlobStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, cfg *config.Config) (*MinioBlobStorage, error) {
	bucket := cfg.GetString("BUCKET_NAME")

	if bucket == "" {
		bucket = "watermarks"
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	user := cfg.GetString("MINIO_USER")
	pass := cfg.GetString("MINIO_PASS")
	addr := cfg.GetString("MINIO_CONTAINER_NAME")

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(addr+":9000", &minio.Options{
		Creds:  credentials.NewStaticV4(user, pass, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, bucket); err != nil {
		log.Println("Failed to create bucket in MinIO:", err)
		return nil, err
	}

	return &MinioBlobStorage{bucket: bucket, client: strg}, nil
}

func (s *MinioBlobStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

// Delete молча игнорирует пустой ключ: у задачи может не быть результата
func (s *MinioBlobStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioBlobStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// GetObject ленивый - реальный запрос уходит на Stat
	resStat, err := res.Stat()
	if err != nil {
		_ = res.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
