package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/export"
	"github.com/joseph-ayodele/cardmate/internal/ingest"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
)

const batchUserEmail = "batch@cardscan.local"

// batchCmd scans a directory of card images into an XLSX workbook.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scan every card image in a directory and export an XLSX workbook",
	Long: `Scan every card image in a directory and export an XLSX workbook.

Cards are collected in an in-memory store; identical images are scanned once.

Examples:
  cardscan batch --dir ./cards
  cardscan batch --dir ./cards --out contacts.xlsx --workers 8`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("dir", "", "directory to scan (required)")
	batchCmd.Flags().String("out", "", "output XLSX path (default: <parent of dir>/cards.xlsx)")
	batchCmd.Flags().Int("workers", 4, "concurrent scans")
	batchCmd.Flags().Bool("skip-hidden", true, "skip hidden files and directories")
	_ = batchCmd.MarkFlagRequired("dir")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	out, _ := cmd.Flags().GetString("out")
	workers, _ := cmd.Flags().GetInt("workers")
	skipHidden, _ := cmd.Flags().GetBool("skip-hidden")

	if workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", workers)
	}
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "cards.xlsx")
	}

	engine, logger, err := newEngine(cmd, "")
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := repo.OpenMemory(ctx, logger)
	if err != nil {
		return err
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx, logger); err != nil {
		return err
	}

	users := repo.NewUserRepository(db, logger)
	cardsRepo := repo.NewCardRepository(db, logger)
	jobs := repo.NewScanJobRepository(db, logger)
	user, err := users.Create(ctx, "cardscan", batchUserEmail, "")
	if err != nil {
		return err
	}
	cardService, err := cards.NewService(engine, cardsRepo, jobs, logger)
	if err != nil {
		return err
	}

	results, stats, err := ingest.NewFSIngestor(jobs, logger).IngestDirectory(ctx, user.ID, dir, skipHidden)
	if err != nil {
		return err
	}

	start := time.Now()
	var scanned, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %s\n", r.SourcePath, r.Err)
			continue
		}
		path := r.SourcePath
		g.Go(func() error {
			res, err := cardService.Scan(gctx, user.ID, path, cards.ScanOptions{SkipDuplicates: true})
			switch {
			case errors.Is(err, common.ErrImageNotFound):
				skipped.Add(1)
				fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", path, err)
				return nil
			case err != nil:
				return fmt.Errorf("%s: %w", path, err)
			}
			if !res.Duplicate {
				scanned.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	all, err := cardsRepo.List(ctx, user.ID, repo.CardFilter{})
	if err != nil {
		return err
	}
	data, err := export.WriteXLSX(all)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scanned %d images (%d matched, %d unreadable) in %s; %d cards written to %s\n",
		scanned.Load(), stats.Matched, skipped.Load(), time.Since(start).Round(time.Millisecond), len(all), out)
	return nil
}
