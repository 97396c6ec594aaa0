package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cardmate/internal/entity"
	"github.com/joseph-ayodele/cardmate/internal/repository"
)

func TestExportCardsXLSX(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenMemory(ctx, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	u, err := repository.NewUserRepository(db, logger).Create(ctx, "u", "u@example.com", "h")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	cards := repository.NewCardRepository(db, logger)
	if _, err := cards.Create(ctx, &entity.Card{
		UserID:           u.ID,
		Name:             "Meera Iyer",
		Company:          "ACME CORP",
		Phones:           []string{"9876543210", "04446892301"},
		OCRAvgConfidence: 0.75,
		Stage:            "raw",
		IsOwner:          true,
	}); err != nil {
		t.Fatalf("card: %v", err)
	}

	data, err := NewService(cards, logger).ExportCardsXLSX(ctx, u.ID, repository.CardFilter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "Name" || rows[1][0] != "Meera Iyer" || rows[1][2] != "ACME CORP" {
		t.Fatalf("row = %q", rows[1])
	}
	if rows[1][3] != "9876543210\n04446892301" {
		t.Fatalf("phones cell = %q", rows[1][3])
	}
	if rows[1][13] != "yes" {
		t.Fatalf("owner cell = %q", rows[1][13])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate(strings.Repeat("é", 10), 4); got != "ééé…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
