package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/ocr"
	"github.com/joseph-ayodele/cardmate/internal/repository"
)

// FSIngestor reads card images from the local filesystem and recognises
// content that was already scanned.
type FSIngestor struct {
	jobs   repository.ScanJobRepository
	logger *slog.Logger
}

func NewFSIngestor(jobs repository.ScanJobRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{jobs: jobs, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, userID uuid.UUID, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Debug("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, abs, err)
	}
	if st.IsDir() {
		return out, fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, abs)
	}

	sum, err := ocr.HashFile(abs)
	if err != nil {
		i.logger.Warn("hash error", "path", abs, "error", err)
		return out, err
	}

	out = IngestionResult{SourcePath: abs, HashHex: sum, FileExt: ext}
	prev, err := i.jobs.FindByHash(ctx, userID, sum)
	switch {
	case err == nil:
		out.Deduplicated = true
		if prev.CardID != nil {
			out.CardID = prev.CardID.String()
		}
	case !errors.Is(err, common.ErrNotFound):
		return out, err
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	userID uuid.UUID,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, userID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
