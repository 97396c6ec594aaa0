//go:build !gosseract

package ocr

import "log/slog"

// newGosseract reports ErrEngineNotEnabled; rebuild with -tags gosseract
// (libtesseract headers required) to link the in-process engine.
func newGosseract(Config, *slog.Logger) (Engine, error) {
	return nil, ErrEngineNotEnabled
}
