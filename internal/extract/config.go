package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/ocr"
	"github.com/joseph-ayodele/cardmate/internal/vocab"
)

// NewEngineFromConfig wires an Engine from environment settings: the OCR
// engine, the image loader and the heuristic vocabulary.
func NewEngineFromConfig(cfg common.OCRConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ocrCfg := ocr.Config{
		Engine:           cfg.Engine,
		Tesseract:        cfg.Tesseract,
		TesseractLang:    cfg.TesseractLang,
		TessdataDir:      cfg.TessdataDir,
		PSM:              cfg.PSM,
		OEM:              cfg.OEM,
		HeicConverter:    cfg.HeicConverter,
		ArtifactCacheDir: cfg.ArtifactCacheDir,
	}
	engine, err := ocr.NewEngine(ocrCfg, logger)
	if err != nil {
		return nil, err
	}
	v, err := vocab.Load(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	v = v.WithPhonePolicy(vocab.PhonePolicy(cfg.PhonePolicy))

	logger.Info("extraction engine ready",
		"ocr", engine.Name(),
		"threshold", cfg.ConfidenceThreshold,
		"phone_policy", v.PhonePolicy,
	)
	return NewEngine(
		ocr.NewLoader(ocrCfg, logger),
		NewOCRAdapter(engine, logger),
		v,
		logger,
		WithThreshold(cfg.ConfidenceThreshold),
		WithDebugDir(cfg.DebugDir),
	), nil
}
