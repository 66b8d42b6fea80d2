package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/contest-hub/storage"
	"github.com/google/uuid"
)

// ImageUpload файл из multipart-формы.
type ImageUpload struct {
	ContentType string
	Size        int64
	Reader      io.Reader
}

// uploadImage сохраняет файл как folder/<uuid><ext> и возвращает публичный URL.
func uploadImage(ctx context.Context, uploader storage.FileUploader, folder string, file ImageUpload) (string, error) {
	if uploader == nil {
		return "", ErrUploadsUnavailable
	}
	ext, err := storage.ImageExtension(strings.ToLower(strings.TrimSpace(file.ContentType)))
	if err != nil {
		return "", &ValidationError{Fields: map[string]string{"image": "only jpeg, png, webp and gif images are accepted"}}
	}
	if file.Size > storage.MaxImageBytes {
		return "", &ValidationError{Fields: map[string]string{"image": "image must be 5 MB or smaller"}}
	}

	key := folder + "/" + uuid.NewString() + ext
	if _, err := uploader.Upload(ctx, key, file.ContentType, io.LimitReader(file.Reader, storage.MaxImageBytes+1)); err != nil {
		if errors.Is(err, storage.ErrUploadsDisabled) {
			return "", ErrUploadsUnavailable
		}
		return "", fmt.Errorf("%w: image upload failed: %v", ErrUpstream, err)
	}
	return uploader.GetPublicURL(key), nil
}
