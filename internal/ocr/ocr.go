// Package ocr adapts external OCR services: word-level detection for
// screenshots (positions for the bounding-box matcher) and plain text
// extraction for PDF menus.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/config"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/resilience"
)

// WordDetector returns word tokens with boxes normalized to
// model.CoordinateSpace on both axes.
type WordDetector interface {
	DetectWords(ctx context.Context, img model.Image) ([]model.WordToken, error)
}

// PDFExtractor extracts text content from PDF bytes.
type PDFExtractor interface {
	ExtractPDF(ctx context.Context, data []byte) (string, error)
}

// NewWordDetector creates a WordDetector based on config. An empty provider
// disables word OCR and returns nil.
func NewWordDetector(cfg config.OCRConfig, retry resilience.RetryConfig) (WordDetector, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "vision":
		if cfg.Key == "" {
			return nil, eris.New("ocr: vision provider requires ocr.key")
		}
		return NewVision(cfg.Key, cfg.Endpoint, retry), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// NewPDFExtractor creates a PDFExtractor based on config.
func NewPDFExtractor(cfg config.OCRConfig) (PDFExtractor, error) {
	switch cfg.PDFProvider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires ocr.mistral_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown pdf provider %q", cfg.PDFProvider)
	}
}
