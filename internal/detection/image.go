package detection

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// MaxImageBytes is the size ceiling of a single upload.
	MaxImageBytes = 10 << 20
	// MaxBatchImages is the largest number of images accepted by one batch.
	MaxBatchImages = 10
)

var (
	ErrInvalidImage        = errors.New("invalid image")
	ErrNoImages            = errors.New("no image files provided")
	ErrTooManyImages       = errors.New("too many images")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownMedicine     = errors.New("medicine not found")
	ErrUpstream            = errors.New("analysis backend error")
	ErrUpstreamUnavailable = errors.New("analysis backend unavailable")
)

// Image is one uploaded picture of a medicine package or label.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Validate checks the upload is a non-empty image within the size ceiling.
// A missing content type is sniffed from the data.
func (img Image) Validate() error {
	if len(img.Data) == 0 {
		return fmt.Errorf("%w: %q is empty", ErrInvalidImage, img.Filename)
	}
	if len(img.Data) > MaxImageBytes {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidImage, img.Filename, MaxImageBytes)
	}
	if !strings.HasPrefix(img.mediaType(), "image/") {
		return fmt.Errorf("%w: only image files are allowed, got %q", ErrInvalidImage, img.mediaType())
	}
	return nil
}

func (img Image) mediaType() string {
	ct := img.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(img.Data)
	}
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ValidateBatch checks the image count and every image before any backend is called.
func ValidateBatch(images []Image) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	if len(images) > MaxBatchImages {
		return fmt.Errorf("%w: got %d, at most %d allowed", ErrTooManyImages, len(images), MaxBatchImages)
	}
	for i, img := range images {
		if err := img.Validate(); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}
