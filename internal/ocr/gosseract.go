//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract links libtesseract through cgo. Each call owns its client.
type Gosseract struct {
	cfg    Config
	logger *slog.Logger
}

func newGosseract(cfg Config, logger *slog.Logger) (Engine, error) {
	return &Gosseract{cfg: cfg, logger: logger}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			g.logger.Warn("gosseract close failed", "error", err)
		}
	}()
	if g.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(g.cfg.TessdataDir); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(g.cfg.TesseractLang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("gosseract: %w", err)
	}

	dets := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		dets = append(dets, Detection{
			Text:       b.Word,
			Top:        float64(b.Box.Min.Y),
			Confidence: clamp01(b.Confidence / 100),
		})
	}
	return dets, nil
}
