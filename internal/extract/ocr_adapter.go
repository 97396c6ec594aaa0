package extract

import (
	"context"
	"image"
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/cardmate/internal/ocr"
)

// OCRAdapter turns engine detections into normalized TextLines.
type OCRAdapter struct {
	engine ocr.Engine
	logger *slog.Logger
}

func NewOCRAdapter(e ocr.Engine, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{engine: e, logger: logger}
}

// ReadLines normalizes text, drops lines left empty, clamps confidence to
// 0..1 and stable-sorts by vertical position.
func (a *OCRAdapter) ReadLines(ctx context.Context, img image.Image) ([]TextLine, error) {
	dets, err := a.engine.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	lines := make([]TextLine, 0, len(dets))
	for _, d := range dets {
		text := ocr.NormalizeLine(d.Text)
		if text == "" {
			continue
		}
		conf := d.Confidence
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		lines = append(lines, TextLine{Content: text, Top: d.Top, Confidence: conf})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Top < lines[j].Top })
	a.logger.Debug("ocr.adapter.lines", "engine", a.engine.Name(), "detections", len(dets), "lines", len(lines))
	return lines, nil
}
