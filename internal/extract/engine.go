// Package extract turns a business-card photo into a ContactRecord: it
// escalates OCR through progressively stronger preprocessing, classifies the
// recognised lines and merges in any vCard found in a QR code.
package extract

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/cardmate/internal/qr"
	"github.com/joseph-ayodele/cardmate/internal/vcard"
	"github.com/joseph-ayodele/cardmate/internal/vocab"
)

// Engine is safe for concurrent use when its LineReader is.
type Engine struct {
	loader     ImageLoader
	escalation *Escalation
	classifier *Classifier
	decodeQR   QRDecoder
	debugDir   string
	logger     *slog.Logger

	threshold float64
	stages    []StageStep
	reader    LineReader
}

type Option func(*Engine)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) Option { return func(e *Engine) { e.threshold = t } }

// WithStages replaces DefaultStages.
func WithStages(s []StageStep) Option { return func(e *Engine) { e.stages = s } }

// WithQRDecoder replaces qr.Decode; nil disables QR lookup.
func WithQRDecoder(d QRDecoder) Option { return func(e *Engine) { e.decodeQR = d } }

// WithDebugDir sets where visualizations are written.
func WithDebugDir(dir string) Option { return func(e *Engine) { e.debugDir = dir } }

func NewEngine(loader ImageLoader, reader LineReader, v *vocab.Vocabulary, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		loader:     loader,
		reader:     reader,
		classifier: NewClassifier(v),
		decodeQR:   qr.Decode,
		logger:     logger,
		threshold:  DefaultThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.escalation = NewEscalation(e.reader, e.stages, e.threshold, logger)
	return e
}

// ScanResult is a ContactRecord together with the OCR attempts behind it.
type ScanResult struct {
	Record   ContactRecord
	Best     Attempt
	Attempts []Attempt
	QRText   string
}

// Text returns the best attempt's lines joined by newlines.
func (s *ScanResult) Text() string {
	return strings.Join(s.Best.Contents(), "\n")
}

// Extract scans the card image at path. The only error not caused by ctx is
// one wrapping common.ErrImageNotFound; every other problem degrades to empty
// fields. With visualize set, the best preprocessed image and its lines are
// written to the debug directory.
func (e *Engine) Extract(ctx context.Context, path string, visualize bool) (ContactRecord, error) {
	s, err := e.Scan(ctx, path, visualize)
	if err != nil {
		return ContactRecord{}, err
	}
	return s.Record, nil
}

// Scan is Extract with the intermediate attempts kept.
func (e *Engine) Scan(ctx context.Context, path string, visualize bool) (*ScanResult, error) {
	start := time.Now()
	img, err := e.loader.Load(ctx, path)
	if err != nil {
		e.logger.Warn("extract.load.failed", "path", path, "error", err)
		return nil, err
	}
	s, res, err := e.scanImage(ctx, img)
	if err != nil {
		return nil, err
	}
	if visualize {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		e.visualize(base, res)
	}
	e.logger.Info("extract.done",
		"path", path,
		"stage", s.Best.Stage,
		"attempts", len(s.Attempts),
		"confidence", s.Record.OverallConfidence,
		"qr", s.Record.QROverride,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

// ScanImage runs the pipeline on an already decoded image.
func (e *Engine) ScanImage(ctx context.Context, img image.Image) (*ScanResult, error) {
	if img == nil {
		return nil, fmt.Errorf("scan image: nil image")
	}
	s, _, err := e.scanImage(ctx, img)
	return s, err
}

func (e *Engine) scanImage(ctx context.Context, img image.Image) (*ScanResult, EscalationResult, error) {
	res, err := e.escalation.Run(ctx, img)
	if err != nil {
		return nil, res, fmt.Errorf("ocr escalation: %w", err)
	}

	fields := e.classifier.Classify(res.Best.Contents())

	var (
		card   *vcard.Card
		qrText string
	)
	if e.decodeQR != nil {
		if text, ok := e.decodeQR(img); ok {
			qrText = text
			if c, isVCard := vcard.Parse(text); isVCard {
				card = c
			} else {
				e.logger.Debug("extract.qr.not_vcard", "bytes", len(text))
			}
		}
	}

	return &ScanResult{
		Record:   Assemble(fields, card, res.Best),
		Best:     res.Best,
		Attempts: res.Attempts,
		QRText:   qrText,
	}, res, nil
}

// ExtractLines classifies lines that were read elsewhere, skipping OCR and QR.
func (e *Engine) ExtractLines(lines []TextLine) ContactRecord {
	best := NewAttempt(StageRaw, lines)
	return Assemble(e.classifier.Classify(best.Contents()), nil, best)
}
