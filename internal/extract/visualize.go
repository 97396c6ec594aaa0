package extract

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// visualize writes <base>_<stage>.png, the best preprocessed image with each
// line's top edge marked, and <base>_lines.txt. Failures are logged only.
func (e *Engine) visualize(base string, res EscalationResult) {
	if e.debugDir == "" || res.BestImage == nil {
		e.logger.Debug("extract.visualize.skipped", "debug_dir", e.debugDir)
		return
	}
	if err := os.MkdirAll(e.debugDir, 0o755); err != nil {
		e.logger.Warn("extract.visualize.failed", "error", err)
		return
	}

	annotated := annotate(res.BestImage, res.Best)
	imgPath := filepath.Join(e.debugDir, fmt.Sprintf("%s_%s.png", base, res.Best.Stage))
	if err := writePNG(imgPath, annotated); err != nil {
		e.logger.Warn("extract.visualize.failed", "path", imgPath, "error", err)
		return
	}

	var b strings.Builder
	for _, a := range res.Attempts {
		fmt.Fprintf(&b, "# stage=%s avg=%.3f lines=%d\n", a.Stage, a.AverageConfidence, len(a.Lines))
		for _, l := range a.Lines {
			fmt.Fprintf(&b, "%6.0f  %.2f  %s\n", l.Top, l.Confidence, l.Content)
		}
	}
	txtPath := filepath.Join(e.debugDir, base+"_lines.txt")
	if err := os.WriteFile(txtPath, []byte(b.String()), 0o644); err != nil {
		e.logger.Warn("extract.visualize.failed", "path", txtPath, "error", err)
		return
	}
	e.logger.Info("extract.visualize.written", "image", imgPath, "lines", txtPath)
}

var markColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}

func annotate(src image.Image, best Attempt) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(markColor), Face: basicfont.Face7x13}
	for _, l := range best.Lines {
		y := int(l.Top)
		if y < 0 || y >= dst.Bounds().Dy() {
			continue
		}
		for x := 0; x < dst.Bounds().Dx(); x++ {
			dst.Set(x, y, markColor)
		}
		d.Dot = fixed.P(2, max(y-2, 12))
		d.DrawString(fmt.Sprintf("%.2f", l.Confidence))
	}
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
