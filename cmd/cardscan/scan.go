package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// scanCmd prints the contact record of one card image.
var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Extract a contact record from one card image",
	Long: `Extract a contact record from one card image and print it as JSON.

Examples:
  cardscan scan card.jpg
  cardscan scan card.heic --attempts
  cardscan scan card.png --visualize --debug-dir ./debug`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("visualize", false, "write the best preprocessed image with line markers")
	scanCmd.Flags().String("debug-dir", "", "directory for visualizations (default: next to the image)")
	scanCmd.Flags().Bool("attempts", false, "include every OCR attempt in the output")
}

func runScan(cmd *cobra.Command, args []string) error {
	visualize, _ := cmd.Flags().GetBool("visualize")
	debugDir, _ := cmd.Flags().GetString("debug-dir")
	withAttempts, _ := cmd.Flags().GetBool("attempts")

	if debugDir != "" {
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("debug dir: %w", err)
		}
	}

	engine, _, err := newEngine(cmd, debugDir)
	if err != nil {
		return err
	}

	res, err := engine.Scan(cmd.Context(), args[0], visualize)
	if err != nil {
		return err
	}

	var out any = res.Record
	if withAttempts {
		out = map[string]any{
			"record":   res.Record,
			"attempts": res.Attempts,
			"qr_text":  res.QRText,
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
