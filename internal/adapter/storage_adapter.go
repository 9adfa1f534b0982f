package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"CollabChatAPI/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// StorageAdapter fronts the external blob store. It stores originals and
// thumbnails under chat/ keys and hands back public URLs; thumbnail and
// dimension extraction happen after the owning message is already persisted.
type StorageAdapter struct {
	client       *s3.Client
	bucket       string
	endpoint     string
	publicDomain string
}

func NewStorageAdapter(cfg *config.AppConfig, s3Client *s3.Client) *StorageAdapter {
	return &StorageAdapter{
		client:       s3Client,
		bucket:       cfg.S3Bucket,
		endpoint:     cfg.S3Endpoint,
		publicDomain: cfg.S3PublicDomain,
	}
}

// NewFileKey builds a collision-free chat object key preserving the original
// file extension.
func NewFileKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("chat/%s%s", uuid.New(), ext)
}

func ThumbnailKey(fileKey string) string {
	dir, name := filepath.Split(fileKey)
	return filepath.ToSlash(filepath.Join(dir, "thumb_"+strings.TrimSuffix(name, filepath.Ext(name))+".jpg"))
}

func (s *StorageAdapter) Store(ctx context.Context, file *multipart.FileHeader, key string) error {
	fileOpened, err := file.Open()
	if err != nil {
		return err
	}
	defer fileOpened.Close()

	contentType := file.Header.Get("Content-Type")
	return s.StoreFromReader(ctx, fileOpened, contentType, key)
}

func (s *StorageAdapter) StoreFromReader(ctx context.Context, reader io.Reader, contentType string, key string) error {
	if s.client == nil {
		return errors.New("s3 client is not initialized")
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(filepath.ToSlash(key)),
		Body:        reader,
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *StorageAdapter) StoreBytes(ctx context.Context, data []byte, contentType string, key string) error {
	return s.StoreFromReader(ctx, bytes.NewReader(data), contentType, key)
}

func (s *StorageAdapter) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("s3 client is not initialized")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filepath.ToSlash(key)),
	})
	return err
}

func (s *StorageAdapter) PublicURL(key string) string {
	key = filepath.ToSlash(key)
	if s.publicDomain != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.publicDomain, "/"), key)
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}
