package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrImageTooLarge        = errors.New("image is too large")
	ErrUploadsDisabled      = errors.New("image uploads are not configured")
)

const MaxImageBytes = 5 << 20

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader хранит баннеры конкурсов и фото профилей и отдаёт публичные URL.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageExtension returns the file extension for an accepted image content type.
func ImageExtension(contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}
	return ext, nil
}

type disabledUploader struct{}

// NewDisabledUploader используется без бакета. Формы тогда принимают только URL изображений.
func NewDisabledUploader() FileUploader { return disabledUploader{} }

func (disabledUploader) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrUploadsDisabled
}

func (disabledUploader) Delete(context.Context, string) error { return ErrUploadsDisabled }

func (disabledUploader) GetPublicURL(string) string { return "" }
