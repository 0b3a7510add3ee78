package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/invoice"
)

// ErrNoPages is returned when a document opens but has nothing to read
var ErrNoPages = errors.New("pdf has no pages")

const defaultDPI = 200

// document is the subset of *fitz.Document the extractor reads
type document interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	ImagePNG(pageNumber int, dpi float64) ([]byte, error)
	Close() error
}

type opener func(data []byte) (document, error)

func openFitz(data []byte) (document, error) {
	return fitz.NewFromMemory(data)
}

// Config controls the OCR fallback
type Config struct {
	DPI      float64
	MaxPages int
}

// TextExtractor implements port.TextExtractor with go-fitz, falling back to OCR
// over rasterized pages when the document has no text layer.
type TextExtractor struct {
	open   opener
	ocr    port.OCREngine
	config Config
	logger *zap.Logger
}

// NewTextExtractor creates a new extractor. ocr may be nil when no engine is available.
func NewTextExtractor(ocr port.OCREngine, config Config, logger *zap.Logger) *TextExtractor {
	if config.DPI <= 0 {
		config.DPI = defaultDPI
	}
	return &TextExtractor{
		open:   openFitz,
		ocr:    ocr,
		config: config,
		logger: logger,
	}
}

// Extract returns the normalized document text, or "" when nothing could be read
func (e *TextExtractor) Extract(ctx context.Context, data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("PDF library panicked", zap.Any("panic", r))
			text = ""
		}
	}()

	doc, err := e.open(data)
	if err != nil {
		e.logger.Warn("Failed to open PDF", zap.Int("size", len(data)), zap.Error(err))
		return ""
	}
	defer doc.Close()

	text, err = e.textLayer(doc)
	if err != nil {
		e.logger.Warn("Failed to read PDF text layer", zap.Error(err))
	}
	if text != "" {
		return text
	}

	if e.ocr == nil {
		e.logger.Debug("PDF has no text layer and OCR is disabled")
		return ""
	}

	text, err = e.recognize(ctx, doc)
	if err != nil {
		e.logger.Warn("OCR fallback failed", zap.String("engine", e.ocr.Name()), zap.Error(err))
		return ""
	}
	return text
}

func (e *TextExtractor) textLayer(doc document) (string, error) {
	pages := doc.NumPage()
	if pages <= 0 {
		return "", ErrNoPages
	}

	var sb strings.Builder
	for i := 0; i < pages; i++ {
		page, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(page)
		sb.WriteString("\n")
	}
	return invoice.Normalize(sb.String()), nil
}

func (e *TextExtractor) recognize(ctx context.Context, doc document) (string, error) {
	pages := doc.NumPage()
	if pages <= 0 {
		return "", ErrNoPages
	}
	if e.config.MaxPages > 0 && pages > e.config.MaxPages {
		pages = e.config.MaxPages
	}

	var sb strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		img, err := doc.ImagePNG(i, e.config.DPI)
		if err != nil {
			return "", fmt.Errorf("failed to render page %d: %w", i, err)
		}

		page, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			return "", fmt.Errorf("failed to recognize page %d: %w", i, err)
		}
		sb.WriteString(page)
		sb.WriteString("\n")
	}

	e.logger.Info("Recognized PDF via OCR",
		zap.String("engine", e.ocr.Name()),
		zap.Int("pages", pages))

	return invoice.Normalize(sb.String()), nil
}

var _ port.TextExtractor = (*TextExtractor)(nil)
