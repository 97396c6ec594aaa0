package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
)

// TesseractCLI runs the tesseract binary in TSV mode.
type TesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseractCLI wires a CLI engine; tests pass a stub Runner.
func NewTesseractCLI(cfg Config, runner Runner, logger *slog.Logger) *TesseractCLI {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &TesseractCLI{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (e *TesseractCLI) Name() string { return "tesseract" }

// Recognize writes img to a temporary PNG and reads tesseract's TSV output.
func (e *TesseractCLI) Recognize(ctx context.Context, img image.Image) ([]Detection, error) {
	f, err := os.CreateTemp("", "cardmate-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to remove temp image", "path", path, "error", err)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp image: %w", err)
	}
	return e.recognizeFile(ctx, path)
}

func (e *TesseractCLI) recognizeFile(ctx context.Context, path string) ([]Detection, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// TSV output
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	dets := ParseTSV(out)
	e.logger.Debug("tesseract recognised lines", "path", path, "lines", len(dets))
	return dets, nil
}
