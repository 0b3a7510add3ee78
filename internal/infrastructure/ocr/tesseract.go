package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
)

// ErrUnavailable is returned when the engine cannot run on this host
var ErrUnavailable = errors.New("ocr engine unavailable")

// DefaultLanguages covers Spanish invoices with English boilerplate
var DefaultLanguages = []string{"spa", "eng"}

// TesseractEngine implements port.OCREngine with a local tesseract install
type TesseractEngine struct {
	languages []string
	logger    *zap.Logger
}

// NewTesseractEngine checks that every requested language is installed.
// It returns ErrUnavailable otherwise, so the caller can run without OCR.
func NewTesseractEngine(languages []string, logger *zap.Logger) (*TesseractEngine, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	installed, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	have := make(map[string]bool, len(installed))
	for _, lang := range installed {
		have[lang] = true
	}
	var missing []string
	for _, lang := range languages {
		if !have[lang] {
			missing = append(missing, lang)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing tesseract languages %s", ErrUnavailable, strings.Join(missing, ","))
	}

	logger.Info("Tesseract OCR ready",
		zap.String("version", gosseract.Version()),
		zap.Strings("languages", languages))

	return &TesseractEngine{languages: languages, logger: logger}, nil
}

// Name returns the engine identifier
func (t *TesseractEngine) Name() string {
	return "tesseract"
}

// Recognize returns the text tesseract reads from a PNG page image.
// A client is created per call since gosseract clients are not safe for concurrent use.
func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load page image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		t.logger.Error("Tesseract recognition failed", zap.Error(err))
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}

var _ port.OCREngine = (*TesseractEngine)(nil)
