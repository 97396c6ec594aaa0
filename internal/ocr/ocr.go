// Package ocr turns images into positioned text lines with per-line
// confidence. Engines are interchangeable behind the Engine interface.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
)

// Detection is one recognised text line.
type Detection struct {
	Text       string
	Top        float64 // top edge in pixels of the recognised image
	Confidence float64 // 0..1
}

// Engine recognises text lines in an image. Zero detections with a nil error
// means the image has no readable text. Implementations shipped here allocate
// per-call resources and are safe for concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Detection, error)
}

// ErrEngineNotEnabled is returned when an engine was not compiled in.
var ErrEngineNotEnabled = errors.New("ocr engine not enabled in this build")

type Config struct {
	Engine    string // "tesseract" (default) | "gosseract"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string

	PSM int // e.g., 6 is good for uniform block of text; 11 for sparse card layouts
	OEM int // 1 = LSTM; leave 0 to use default

	HeicConverter    string // "heif-convert" | "magick" | "sips"
	ArtifactCacheDir string
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = "tesseract"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.ArtifactCacheDir == "" {
		c.ArtifactCacheDir = "./tmp"
	}
	return c
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case "tesseract":
		return NewTesseractCLI(cfg, execRunner{}, logger), nil
	case "gosseract":
		return newGosseract(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}
