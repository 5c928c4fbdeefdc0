// Package ocr reads printed label text with the Tesseract engine.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	log "github.com/sirupsen/logrus"
)

// Tesseract recognizes text in images with a fixed set of engine clients.
// A gosseract client is not safe for concurrent use.
type Tesseract struct {
	language string
	clients  chan *gosseract.Client
}

func NewTesseract(language string, workers int) (*Tesseract, error) {
	if language == "" {
		language = "eng"
	}
	if workers < 1 {
		workers = 1
	}
	t := &Tesseract{language: language, clients: make(chan *gosseract.Client, workers)}
	for i := 0; i < workers; i++ {
		client := gosseract.NewClient()
		if err := client.SetLanguage(language); err != nil {
			_ = client.Close()
			_ = t.Close()
			return nil, fmt.Errorf("set OCR language %q: %w", language, err)
		}
		t.clients <- client
	}
	return t, nil
}

// Recognize returns the text found in image. Waiting for a free client honors
// ctx; a pass that has started runs to completion.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	var client *gosseract.Client
	select {
	case client = <-t.clients:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { t.clients <- client }()

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	log.WithFields(log.Fields{"language": t.language, "text_length": len(text)}).Debug("OCR pass complete")
	return text, nil
}

// Close releases every idle engine client. It must not race with Recognize.
func (t *Tesseract) Close() error {
	var errs []error
	for {
		select {
		case client := <-t.clients:
			errs = append(errs, client.Close())
		default:
			return errors.Join(errs...)
		}
	}
}
