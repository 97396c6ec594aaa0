// Package cards runs scans for a user and manages the stored contact cards.
package cards

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
	"github.com/joseph-ayodele/cardmate/internal/extract"
	"github.com/joseph-ayodele/cardmate/internal/ocr"
	"github.com/joseph-ayodele/cardmate/internal/patterns"
	"github.com/joseph-ayodele/cardmate/internal/qr"
	"github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/vcard"
)

//go:embed patch_schema.json
var patchSchemaDoc []byte

// Scanner is the part of extract.Engine the service needs.
type Scanner interface {
	Scan(ctx context.Context, path string, visualize bool) (*extract.ScanResult, error)
}

// Service handles card business logic.
type Service struct {
	scanner     Scanner
	cards       repository.CardRepository
	jobs        repository.ScanJobRepository
	patchSchema *jsonschema.Schema
	logger      *slog.Logger
}

// NewService creates a new card service.
func NewService(scanner Scanner, cards repository.CardRepository, jobs repository.ScanJobRepository, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := common.CompileSchema("card_patch.json", patchSchemaDoc)
	if err != nil {
		return nil, err
	}
	return &Service{scanner: scanner, cards: cards, jobs: jobs, patchSchema: schema, logger: logger}, nil
}

// ScanOptions tune a persisted scan.
type ScanOptions struct {
	// SkipDuplicates returns the card of an earlier completed scan of the
	// same image content instead of scanning again.
	SkipDuplicates bool
	Visualize      bool
}

// ScanOutcome is the result of Scan.
type ScanOutcome struct {
	Card      *entity.Card
	JobID     uuid.UUID
	Duplicate bool
	Attempts  []extract.Attempt
}

// Scan extracts a contact from the image at path and stores it as a card of
// userID. Every run is tracked as a scan job.
func (s *Service) Scan(ctx context.Context, userID uuid.UUID, path string, opts ScanOptions) (*ScanOutcome, error) {
	hash, err := ocr.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrImageNotFound, path, err)
	}

	if opts.SkipDuplicates {
		if prev, err := s.jobs.FindByHash(ctx, userID, hash); err == nil && prev.CardID != nil {
			card, err := s.cards.Get(ctx, userID, *prev.CardID)
			if err == nil {
				s.logger.Info("scan.duplicate", "path", path, "card_id", card.ID)
				return &ScanOutcome{Card: card, JobID: prev.ID, Duplicate: true}, nil
			}
			if !errors.Is(err, common.ErrNotFound) {
				return nil, err
			}
		} else if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
	}

	job, err := s.jobs.Start(ctx, userID, path, hash, constants.JobStatusRunning)
	if err != nil {
		return nil, err
	}
	fail := func(cause error) error {
		if ferr := s.jobs.FinishFailure(context.WithoutCancel(ctx), job.ID, cause.Error()); ferr != nil {
			s.logger.Error("scan job failure not recorded", "job_id", job.ID, "error", ferr)
		}
		return cause
	}

	res, err := s.scanner.Scan(ctx, path, opts.Visualize)
	if err != nil {
		return nil, fail(err)
	}
	if err := s.jobs.FinishOCR(ctx, job.ID, string(res.Best.Stage), res.Best.AverageConfidence, res.Text()); err != nil {
		return nil, fail(err)
	}

	card, err := s.cards.Create(ctx, CardFromRecord(userID, res.Record))
	if err != nil {
		return nil, fail(err)
	}
	if err := s.jobs.FinishSuccess(ctx, job.ID, card.ID); err != nil {
		return nil, err
	}
	s.logger.Info("scan.persisted", "card_id", card.ID, "job_id", job.ID, "stage", res.Best.Stage, "confidence", res.Record.OverallConfidence)
	return &ScanOutcome{Card: card, JobID: job.ID, Attempts: res.Attempts}, nil
}

// Preview runs extraction without storing anything.
func (s *Service) Preview(ctx context.Context, path string) (*extract.ScanResult, error) {
	return s.scanner.Scan(ctx, path, false)
}

// CardFromRecord maps an extracted record onto a new card of userID.
func CardFromRecord(userID uuid.UUID, rec extract.ContactRecord) *entity.Card {
	return &entity.Card{
		UserID:           userID,
		Name:             rec.Name,
		Designation:      rec.Designation,
		Company:          rec.Company,
		Phones:           rec.Phones,
		Emails:           rec.Emails,
		Addresses:        rec.Addresses,
		Websites:         rec.Websites,
		OCRAvgConfidence: rec.OverallConfidence,
		Stage:            string(rec.Stage),
		QROverride:       rec.QROverride,
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f repository.CardFilter) ([]*entity.Card, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: negative paging", common.ErrInvalidInput)
	}
	return s.cards.List(ctx, userID, f)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Card, error) {
	return s.cards.Get(ctx, userID, id)
}

// Update applies a JSON merge of editable fields. The document is checked
// against the card patch schema; list fields are cleaned the way extraction
// cleans them.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, raw []byte) (*entity.Card, error) {
	if err := common.ValidateJSONAgainstSchema(s.patchSchema, raw); err != nil {
		return nil, err
	}
	var p entity.CardPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	normalizePatch(&p)
	return s.cards.Update(ctx, userID, id, p)
}

func normalizePatch(p *entity.CardPatch) {
	clean := func(v *[]string, fn func(string) string) {
		if v == nil {
			return
		}
		out := make([]string, 0, len(*v))
		for _, item := range *v {
			out = append(out, fn(item))
		}
		*v = patterns.Dedupe(out)
	}
	trim := func(v *string) {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
	trim(p.Name)
	trim(p.Designation)
	trim(p.Company)
	trim(p.Notes)
	trim(p.EventName)
	trim(p.LocationName)
	clean(p.Phones, patterns.CleanPhone)
	clean(p.Emails, patterns.NormalizeEmail)
	clean(p.Websites, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
	clean(p.Addresses, strings.TrimSpace)
	clean(p.Tags, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.cards.Delete(ctx, userID, id)
}

// SetOwner marks the card as the user's own; any previous owner card is
// unmarked.
func (s *Service) SetOwner(ctx context.Context, userID, id uuid.UUID) error {
	return s.cards.SetOwner(ctx, userID, id)
}

func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.cards.Clear(ctx, userID)
}

// VCard renders the card as a vCard 3.0 document.
func (s *Service) VCard(ctx context.Context, userID, id uuid.UUID) (string, error) {
	c, err := s.cards.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return vcard.Encode(ToVCard(c)), nil
}

// QRCode renders the card's vCard as a PNG QR code of the given size.
func (s *Service) QRCode(ctx context.Context, userID, id uuid.UUID, size int) ([]byte, error) {
	text, err := s.VCard(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = qr.DefaultSize
	}
	if size > 2048 {
		return nil, fmt.Errorf("%w: qr size %d too large", common.ErrInvalidInput, size)
	}
	return qr.EncodePNG(text, size)
}

// ToVCard maps a stored card to vCard fields.
func ToVCard(c *entity.Card) vcard.Card {
	return vcard.Card{
		Name:        c.Name,
		Designation: c.Designation,
		Company:     c.Company,
		Phones:      c.Phones,
		Emails:      c.Emails,
		Addresses:   c.Addresses,
		Websites:    c.Websites,
		Note:        c.Notes,
	}
}
