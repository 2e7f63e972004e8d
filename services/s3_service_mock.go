package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sync"

	"github.com/kendall-kelly/powder-coating-api/utils"
)

// StoredObject is what MockS3Service keeps per key
type StoredObject struct {
	Content          []byte
	ContentType      string
	OriginalFilename string
}

// MockS3Service keeps objects in memory and satisfies S3Interface
type MockS3Service struct {
	mu      sync.RWMutex
	objects map[string]StoredObject
}

func NewMockS3Service() *MockS3Service {
	return &MockS3Service{objects: make(map[string]StoredObject)}
}

func (m *MockS3Service) UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	filename := filepath.Base(fileHeader.Filename)
	key := objectKey(prefix, filename)

	m.mu.Lock()
	m.objects[key] = StoredObject{
		Content:          content,
		ContentType:      utils.ContentTypeFor(filename),
		OriginalFilename: filename,
	}
	m.mu.Unlock()

	return key, nil
}

func (m *MockS3Service) GetPresignedURL(_ context.Context, s3Key string) (string, error) {
	if s3Key == "" {
		return "", nil
	}
	if _, ok := m.Object(s3Key); !ok {
		return "", fmt.Errorf("object %q not found", s3Key)
	}
	return "https://mock-bucket.local/" + s3Key + "?signed=1", nil
}

func (m *MockS3Service) DeleteFile(_ context.Context, s3Key string) error {
	m.mu.Lock()
	delete(m.objects, s3Key)
	m.mu.Unlock()
	return nil
}

// Object returns the stored object for key
func (m *MockS3Service) Object(key string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *MockS3Service) FileExists(key string) bool {
	_, ok := m.Object(key)
	return ok
}

func (m *MockS3Service) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
