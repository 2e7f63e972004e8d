package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/powder-coating-api/utils"
)

// FileService stores and serves files attached to orders
type FileService interface {
	// UploadOrderFile validates and stores a file for an order, returns the storage key
	UploadOrderFile(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetFileURL generates a URL for accessing a stored file
	GetFileURL(ctx context.Context, key string) (string, error)

	// DeleteFile removes a stored file
	DeleteFile(ctx context.Context, key string) error
}

// S3FileService implements FileService on top of S3
type S3FileService struct {
	s3 S3Interface
}

func NewS3FileService(s3 S3Interface) *S3FileService {
	return &S3FileService{s3: s3}
}

func (s *S3FileService) UploadOrderFile(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateOrderFile(fileHeader); err != nil {
		return "", err
	}

	key, err := s.s3.UploadFile(ctx, fileHeader, fmt.Sprintf("orders/%d", orderID))
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func (s *S3FileService) GetFileURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.s3.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate file URL: %w", err)
	}
	return url, nil
}

func (s *S3FileService) DeleteFile(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.s3.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
