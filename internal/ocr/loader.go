package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sunshineplan/imgconv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
)

// Loader decodes card photos from disk, converting HEIC first.
type Loader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg.withDefaults(), runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner used for HEIC conversion.
func (l *Loader) WithRunner(r Runner) *Loader {
	cp := *l
	cp.runner = r
	return &cp
}

// Load returns the decoded image at path. A missing, unreadable or
// undecodable file yields an error wrapping common.ErrImageNotFound.
func (l *Loader) Load(ctx context.Context, path string) (image.Image, error) {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, path, err)
	}

	src := path
	if constants.IsHEICExt(filepath.Ext(path)) {
		hashHex, ok := contentHashFromCtx(ctx)
		if !ok {
			if hashHex, err = HashFile(path); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, path, err)
			}
		}
		out, cleanup, err := convertHEICtoPNG(ctx, l.runner, l.logger, l.cfg.HeicConverter, path, l.cfg.ArtifactCacheDir, hashHex)
		if err != nil {
			l.logger.Error("heic conversion failed", "path", path, "error", err)
			return nil, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, path, err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		src = out
	}

	img, err := imgconv.Open(src)
	if err != nil {
		l.logger.Warn("image decode failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, path, err)
	}
	return img, nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
