package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestPublicURL(t *testing.T) {
	base, _ := url.Parse("https://cdn.example.com/media/")

	tests := []struct {
		key  string
		want string
	}{
		{"contests/a.png", "https://cdn.example.com/media/contests/a.png"},
		{"/avatars/b.jpg", "https://cdn.example.com/media/avatars/b.jpg"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := publicURL(base, tc.key); got != tc.want {
			t.Errorf("publicURL(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestImageExtension(t *testing.T) {
	if ext, err := ImageExtension("image/png"); err != nil || ext != ".png" {
		t.Errorf("ImageExtension(png) = %q, %v", ext, err)
	}
	if _, err := ImageExtension("application/pdf"); !errors.Is(err, ErrUnsupportedImageType) {
		t.Errorf("pdf error = %v", err)
	}
}

func TestDisabledUploader(t *testing.T) {
	u := NewDisabledUploader()
	if _, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x")); !errors.Is(err, ErrUploadsDisabled) {
		t.Errorf("Upload() error = %v", err)
	}
	if u.GetPublicURL("k") != "" {
		t.Error("disabled uploader returned a url")
	}
}

func TestNewCloudflareR2UploaderRequiresConfig(t *testing.T) {
	if _, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "a"}); err == nil {
		t.Error("expected error for incomplete config")
	}
}
