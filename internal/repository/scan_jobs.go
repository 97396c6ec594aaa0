package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
)

type ScanJobRepository interface {
	Start(ctx context.Context, userID uuid.UUID, sourcePath, contentHash string, status constants.JobStatus) (*entity.ScanJob, error)
	SetStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error
	FinishOCR(ctx context.Context, jobID uuid.UUID, stage string, avgConfidence float64, ocrText string) error
	FinishSuccess(ctx context.Context, jobID, cardID uuid.UUID) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ScanJob, error)
	FindByHash(ctx context.Context, userID uuid.UUID, contentHash string) (*entity.ScanJob, error)
}

type scanJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewScanJobRepository(db *DB, log *slog.Logger) ScanJobRepository {
	return &scanJobRepo{db: db, log: log}
}

var scanJobColumns = []string{
	"id", "user_id", "card_id", "source_path", "content_hash", "status", "stage",
	"avg_confidence", "ocr_text", "error_message", "started_at", "finished_at",
}

func (r *scanJobRepo) Start(ctx context.Context, userID uuid.UUID, sourcePath, contentHash string, status constants.JobStatus) (*entity.ScanJob, error) {
	job := &entity.ScanJob{
		ID:          uuid.New(),
		UserID:      userID,
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      string(status),
		StartedAt:   time.Now().UTC(),
	}
	ins := r.db.builder().Insert(scanJobsTable.Name).
		Columns("id", "user_id", "source_path", "content_hash", "status", "stage", "avg_confidence", "ocr_text", "started_at").
		Values(job.ID.String(), userID.String(), sourcePath, contentHash, job.Status, "", 0.0, "", job.StartedAt)
	if _, err := execBuilder(ctx, r.db.drv, ins); err != nil {
		r.log.Error("scan_job start failed", "path", sourcePath, "err", err)
		return nil, fmt.Errorf("start scan job: %w", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("scan_job started", "job_id", job.ID, "path", sourcePath, "status", status)
	return job, nil
}

func (r *scanJobRepo) SetStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error {
	return r.update(ctx, jobID, "status", map[string]any{"status": string(status)})
}

// FinishOCR records the selected attempt and moves the job to OCR_OK.
func (r *scanJobRepo) FinishOCR(ctx context.Context, jobID uuid.UUID, stage string, avgConfidence float64, ocrText string) error {
	err := r.update(ctx, jobID, "ocr", map[string]any{
		"status":         string(constants.JobStatusOCROK),
		"stage":          stage,
		"avg_confidence": avgConfidence,
		"ocr_text":       ocrText,
	})
	if err == nil {
		r.log.Info("scan_job finished (OCR_OK)", "job_id", jobID, "stage", stage, "confidence", avgConfidence)
	}
	return err
}

func (r *scanJobRepo) FinishSuccess(ctx context.Context, jobID, cardID uuid.UUID) error {
	err := r.update(ctx, jobID, "done", map[string]any{
		"status":      string(constants.JobStatusDone),
		"card_id":     cardID.String(),
		"finished_at": time.Now().UTC(),
	})
	if err == nil {
		r.log.Info("scan_job finished (DONE)", "job_id", jobID, "card_id", cardID)
	}
	return err
}

func (r *scanJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, "failed", map[string]any{
		"status":        string(constants.JobStatusFailed),
		"error_message": message,
		"finished_at":   time.Now().UTC(),
	})
	if err == nil {
		r.log.Warn("scan_job finished (FAILED)", "job_id", jobID, "error", message)
	}
	return err
}

func (r *scanJobRepo) update(ctx context.Context, jobID uuid.UUID, op string, values map[string]any) error {
	up := r.db.builder().Update(scanJobsTable.Name)
	// fixed column order keeps the generated statement stable
	for _, col := range scanJobColumns {
		if v, ok := values[col]; ok {
			up.Set(col, v)
		}
	}
	up.Where(entsql.EQ("id", jobID.String()))
	n, err := execBuilder(ctx, r.db.drv, up)
	if err != nil {
		r.log.Error("scan_job update failed", "job_id", jobID, "op", op, "err", err)
		return fmt.Errorf("update scan job: %w", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return fmt.Errorf("scan job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

func (r *scanJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ScanJob, error) {
	b := r.db.builder()
	sel := b.Select(scanJobColumns...).From(b.Table(scanJobsTable.Name)).Where(entsql.EQ("id", jobID.String())).Limit(1)
	return r.one(ctx, sel)
}

// FindByHash returns the user's most recent completed job for an image
// content hash.
func (r *scanJobRepo) FindByHash(ctx context.Context, userID uuid.UUID, contentHash string) (*entity.ScanJob, error) {
	b := r.db.builder()
	sel := b.Select(scanJobColumns...).From(b.Table(scanJobsTable.Name)).
		Where(entsql.And(
			entsql.EQ("user_id", userID.String()),
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.JobStatusDone)),
		)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1)
	return r.one(ctx, sel)
}

func (r *scanJobRepo) one(ctx context.Context, sel *entsql.Selector) (*entity.ScanJob, error) {
	var found *entity.ScanJob
	err := queryBuilder(ctx, r.db.drv, sel, func(rs entsql.ColumnScanner) error {
		var (
			j          entity.ScanJob
			id, userID string
			cardID     sql.NullString
			errMsg     sql.NullString
			finished   sql.NullTime
		)
		if err := rs.Scan(&id, &userID, &cardID, &j.SourcePath, &j.ContentHash, &j.Status, &j.Stage,
			&j.AvgConfidence, &j.OCRText, &errMsg, &j.StartedAt, &finished); err != nil {
			return err
		}
		var err error
		if j.ID, err = uuid.Parse(id); err != nil {
			return err
		}
		if j.UserID, err = uuid.Parse(userID); err != nil {
			return err
		}
		if cardID.Valid {
			cid, err := uuid.Parse(cardID.String)
			if err != nil {
				return err
			}
			j.CardID = &cid
		}
		if errMsg.Valid {
			j.ErrorMessage = &errMsg.String
		}
		if finished.Valid {
			j.FinishedAt = &finished.Time
		}
		found = &j
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get scan job: %w", errors.Join(common.ErrDatabase, err))
	}
	if found == nil {
		return nil, fmt.Errorf("scan job: %w", common.ErrNotFound)
	}
	return found, nil
}
