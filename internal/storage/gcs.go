package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSArchive struct {
	client     *storage.Client
	bucketName string
}

func NewGCSArchive(bucketName, credentialsFile string) (*GCSArchive, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}

	return &GCSArchive{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *GCSArchive) Save(key string, data []byte) (string, error) {
	ctx := context.Background()
	w := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("写入GCS对象失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("关闭GCS写入器失败: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", c.bucketName, key), nil
}
