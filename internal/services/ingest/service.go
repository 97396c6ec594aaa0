package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/internal/async"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/ingest"
	"github.com/joseph-ayodele/cardmate/internal/repository"
)

// Service feeds card images found on disk into the scan queue.
type Service struct {
	ingestor ingest.Ingestor
	users    repository.UserRepository
	queue    async.Queue
	logger   *slog.Logger
}

// NewService creates a new ingest service.
func NewService(ing ingest.Ingestor, users repository.UserRepository, q async.Queue, logger *slog.Logger) *Service {
	return &Service{
		ingestor: ing,
		users:    users,
		queue:    q,
		logger:   logger,
	}
}

// FileIngestRequest represents file ingestion parameters.
type FileIngestRequest struct {
	UserEmail      string
	Path           string
	SkipDuplicates bool
}

// DirectoryIngestRequest represents directory ingestion parameters.
type DirectoryIngestRequest struct {
	UserEmail      string
	RootPath       string
	SkipHidden     bool
	SkipDuplicates bool
}

// DirectoryIngestResult represents directory ingestion results.
type DirectoryIngestResult struct {
	Statistics ingest.DirStats
	Results    []ingest.IngestionResult
	Queued     int
}

// IngestFile checks a single image and queues it for scanning.
func (s *Service) IngestFile(ctx context.Context, req FileIngestRequest) (ingest.IngestionResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return ingest.IngestionResult{}, fmt.Errorf("%w: path is required", common.ErrInvalidInput)
	}
	userID, err := s.resolveUser(ctx, req.UserEmail)
	if err != nil {
		return ingest.IngestionResult{}, err
	}

	r, err := s.ingestor.IngestPath(ctx, userID, path)
	if err != nil {
		s.logger.Warn("file ingest failed", "path", path, "error", err)
		return r, err
	}
	if _, err := s.process(ctx, userID, r, req.SkipDuplicates); err != nil {
		return r, err
	}
	s.logger.Info("file ingest succeeded", "user_id", userID, "path", r.SourcePath, "deduplicated", r.Deduplicated)
	return r, nil
}

// IngestDirectory queues every card image under a directory.
func (s *Service) IngestDirectory(ctx context.Context, req DirectoryIngestRequest) (*DirectoryIngestResult, error) {
	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		return nil, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}
	userID, err := s.resolveUser(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting directory ingest", "user_id", userID, "root", root, "skip_hidden", req.SkipHidden)
	results, stats, err := s.ingestor.IngestDirectory(ctx, userID, root, req.SkipHidden)
	if err != nil {
		return nil, err
	}

	out := &DirectoryIngestResult{Statistics: stats, Results: results}
	for _, r := range results {
		queued, err := s.process(ctx, userID, r, req.SkipDuplicates)
		if err != nil {
			return out, err
		}
		if queued {
			out.Queued++
		}
	}
	s.logger.Info("directory ingest completed", "user_id", userID, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed, "queued", out.Queued)
	return out, nil
}

// WatchRequest describes a drop folder.
type WatchRequest struct {
	UserEmail   string
	Root        string
	Debounce    time.Duration
	InitialScan bool
}

// Watch queues images as they appear under req.Root until ctx is done.
func (s *Service) Watch(ctx context.Context, req WatchRequest) error {
	userID, err := s.resolveUser(ctx, req.UserEmail)
	if err != nil {
		return err
	}
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{req.Root},
		InitialScan: req.InitialScan,
		Debounce:    req.Debounce,
		SkipHidden:  true,
	}, s.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			r, err := s.ingestor.IngestPath(ctx, userID, path)
			if err != nil {
				s.logger.Warn("watched file rejected", "path", path, "error", err)
				continue
			}
			if _, err := s.process(ctx, userID, r, true); err != nil {
				s.logger.Error("watched file not queued", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok {
				s.logger.Warn("watch error", "root", req.Root, "error", err)
			} else {
				errs = nil
			}
		}
	}
}

// process queues an ingested file unless it failed or is a duplicate that
// should be skipped.
func (s *Service) process(ctx context.Context, userID uuid.UUID, r ingest.IngestionResult, skipDuplicates bool) (bool, error) {
	if r.Err != "" || r.SourcePath == "" {
		return false, nil
	}
	if r.Deduplicated && skipDuplicates {
		s.logger.Info("skipping processing (duplicate)", "path", r.SourcePath, "card_id", r.CardID)
		return false, nil
	}
	if err := s.queue.Enqueue(ctx, async.Job{
		UserID:      userID,
		Path:        r.SourcePath,
		Force:       r.Deduplicated,
		SubmittedAt: time.Now(),
		TraceID:     r.HashHex,
	}); err != nil {
		s.logger.Error("enqueue failed for file", "path", r.SourcePath, "err", err)
		return false, fmt.Errorf("enqueue: %w", err)
	}
	return true, nil
}

func (s *Service) resolveUser(ctx context.Context, email string) (uuid.UUID, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return uuid.Nil, fmt.Errorf("%w: user email is required", common.ErrInvalidInput)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("user not found for ingest", "email", email, "error", err)
		return uuid.Nil, err
	}
	return u.ID, nil
}
