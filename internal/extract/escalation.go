package extract

import (
	"context"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/cardmate/internal/preprocess"
)

// DefaultThreshold is the average confidence at which escalation stops.
const DefaultThreshold = 0.7

// StageStep pairs a stage with its image transform.
type StageStep struct {
	Stage     Stage
	Transform preprocess.Transform
}

// DefaultStages returns the light, moderate and aggressive transforms in
// escalation order.
func DefaultStages() []StageStep {
	return []StageStep{
		{Stage: StageRaw, Transform: preprocess.Light},
		{Stage: StageMinimal, Transform: preprocess.Moderate},
		{Stage: StageAdvanced, Transform: preprocess.Aggressive},
	}
}

// Escalation runs stages in order until one reaches the threshold or the
// stages run out, then keeps the most confident attempt.
type Escalation struct {
	stages    []StageStep
	reader    LineReader
	threshold float64
	logger    *slog.Logger
}

func NewEscalation(reader LineReader, stages []StageStep, threshold float64, logger *slog.Logger) *Escalation {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Escalation{stages: stages, reader: reader, threshold: threshold, logger: logger}
}

// EscalationResult holds every attempt that ran and the selected one.
type EscalationResult struct {
	Best      Attempt
	BestImage image.Image
	Attempts  []Attempt
}

// Run escalates through the stages. An OCR failure at one stage counts as an
// attempt without lines. Cancellation is checked between stages only; when it
// fires after at least one stage the best attempt so far is returned along
// with ctx.Err().
func (e *Escalation) Run(ctx context.Context, img image.Image) (EscalationResult, error) {
	var res EscalationResult
	images := make([]image.Image, 0, len(e.stages))
	pick := func() {
		if i := bestIndex(res.Attempts); i >= 0 {
			res.Best, res.BestImage = res.Attempts[i], images[i]
		} else {
			res.Best = NewAttempt(StageRaw, nil)
		}
	}

	for _, step := range e.stages {
		if err := ctx.Err(); err != nil {
			pick()
			return res, err
		}

		prepared := step.Transform(img)
		lines, err := e.reader.ReadLines(ctx, prepared)
		if err != nil {
			e.logger.Warn("escalation.stage.ocr_failed", "stage", step.Stage, "error", err)
			lines = nil
		}
		attempt := NewAttempt(step.Stage, lines)
		res.Attempts = append(res.Attempts, attempt)
		images = append(images, prepared)

		e.logger.Debug("escalation.stage.done",
			"stage", step.Stage,
			"lines", len(attempt.Lines),
			"confidence", attempt.AverageConfidence,
		)
		if attempt.AverageConfidence >= e.threshold {
			break
		}
	}

	pick()
	return res, nil
}

// SelectBest returns the attempt with the highest average confidence; ties go
// to the earlier attempt. No attempts yields an empty raw attempt.
func SelectBest(attempts []Attempt) Attempt {
	i := bestIndex(attempts)
	if i < 0 {
		return NewAttempt(StageRaw, nil)
	}
	return attempts[i]
}

func bestIndex(attempts []Attempt) int {
	best := -1
	for i, a := range attempts {
		if best < 0 || a.AverageConfidence > attempts[best].AverageConfidence {
			best = i
		}
	}
	return best
}
