package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/extract"
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "cardscan",
	Short: "Extract contact details from business card photos",
	Long: `cardscan runs the card extraction engine locally.

OCR settings come from the same environment variables as the server
(OCR_ENGINE, TESSERACT_BIN, TESSDATA_PREFIX, VOCABULARY_PATH, ...);
flags override them.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("engine", "", "OCR engine (tesseract, gosseract)")
	pf.String("vocabulary", "", "heuristic vocabulary JSON file")
	pf.String("phone-policy", "", "phone length policy (strict, tolerant)")
	pf.Float64("threshold", 0, "confidence that stops preprocessing escalation (0..1]")
}

// newEngine builds the extraction engine from environment plus flags.
func newEngine(cmd *cobra.Command, debugDir string) (*extract.Engine, *slog.Logger, error) {
	cfg := common.LoadConfig()
	flags := cmd.Flags()

	level, _ := flags.GetString("log-level")
	cfg.Log.Level = level
	logger := common.NewLogger(cfg.Log, os.Stderr)

	if v, _ := flags.GetString("engine"); v != "" {
		cfg.OCR.Engine = v
	}
	if v, _ := flags.GetString("vocabulary"); v != "" {
		cfg.OCR.VocabularyPath = v
	}
	if v, _ := flags.GetString("phone-policy"); v != "" {
		cfg.OCR.PhonePolicy = v
	}
	if v, _ := flags.GetFloat64("threshold"); v != 0 {
		cfg.OCR.ConfidenceThreshold = v
	}
	if debugDir != "" {
		cfg.OCR.DebugDir = debugDir
	}

	engine, err := extract.NewEngineFromConfig(cfg.OCR, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}
