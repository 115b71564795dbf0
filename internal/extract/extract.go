// Package extract turns uploaded file bytes into plain text. OCR and PDF
// parsing are delegated to external engines; any engine failure surfaces as
// ErrExtractionFailed rather than crashing the request.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/otiai10/gosseract/v2"
)

var (
	// ErrUnsupportedMediaType marks a client input error (HTTP 400).
	ErrUnsupportedMediaType = errors.New("extract: unsupported media type")
	// ErrExtractionFailed marks a collaborator fault, surfaced generically.
	ErrExtractionFailed = errors.New("extract: extraction failed")
)

// Extractor dispatches on the declared media type of an upload.
type Extractor struct {
	timeout time.Duration
	ocr     ocrEngine
	pdfText func(data []byte) (string, error)
}

// ocrEngine recognises text in a normalised PNG image.
type ocrEngine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// New builds an Extractor backed by tesseract and ledongthuc/pdf. A timeout
// of zero disables the extraction deadline.
func New(timeout time.Duration) *Extractor {
	return &Extractor{timeout: timeout, ocr: tesseractEngine{}, pdfText: pdfPlainText}
}

// Extract returns the text content of the upload. Empty input is not an
// error: it means no file was attached.
func (e *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return e.extractImage(ctx, data)
	case mediaType == "application/pdf":
		text, err := e.pdfText(data)
		if err != nil {
			return "", fmt.Errorf("%w: pdf: %v", ErrExtractionFailed, err)
		}
		return text, nil
	default:
		return "", ErrUnsupportedMediaType
	}
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	normalised, err := normaliseImage(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %v", ErrExtractionFailed, err)
	}

	type ocrResult struct {
		text string
		err  error
	}

	// tesseract has no context support; bound it from the outside.
	done := make(chan ocrResult, 1)
	go func() {
		text, err := e.ocr.Recognize(ctx, normalised)
		done <- ocrResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: ocr: %v", ErrExtractionFailed, res.err)
		}
		return res.text, nil
	}
}

// normaliseImage re-encodes the upload as PNG so the OCR engine sees one
// predictable format regardless of what the client sent.
func normaliseImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

type tesseractEngine struct{}

func (tesseractEngine) Recognize(_ context.Context, png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(png); err != nil {
		return "", err
	}

	return client.Text()
}

func pdfPlainText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	text, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	return string(text), nil
}
