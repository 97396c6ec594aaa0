package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cardmate/internal/entity"
	"github.com/joseph-ayodele/cardmate/internal/repository"
)

const sheet = "Cards"

var headers = []string{
	"Name",
	"Designation",
	"Company",
	"Phones",
	"Emails",
	"Websites",
	"Addresses",
	"Tags",
	"Event",
	"Notes",
	"OCR Confidence",
	"Stage",
	"From QR",
	"Owner",
	"Scanned At",
}

// Service is a tiny façade over the card repository that produces XLSX bytes.
type Service struct {
	cards  repository.CardRepository
	logger *slog.Logger
}

func NewService(cards repository.CardRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cards: cards, logger: logger}
}

// ExportCardsXLSX returns a workbook with one row per card of the user that
// matches f, newest first.
func (s *Service) ExportCardsXLSX(ctx context.Context, userID uuid.UUID, f repository.CardFilter) ([]byte, error) {
	start := time.Now()
	cards, err := s.cards.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	out, err := WriteXLSX(cards)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(cards),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// WriteXLSX renders cards into workbook bytes. List cells hold one item per
// line.
func WriteXLSX(cards []*entity.Card) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	wrap, _ := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})

	for i, c := range cards {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, c.Name)
		write(2, c.Designation)
		write(3, c.Company)
		write(4, strings.Join(c.Phones, "\n"))
		write(5, strings.Join(c.Emails, "\n"))
		write(6, strings.Join(c.Websites, "\n"))
		write(7, strings.Join(c.Addresses, "\n"))
		write(8, strings.Join(c.Tags, ", "))
		write(9, c.EventName)
		write(10, truncate(c.Notes, 240))
		write(11, c.OCRAvgConfidence)
		write(12, c.Stage)
		write(13, yesNo(c.QROverride))
		write(14, yesNo(c.IsOwner))
		if !c.CreatedAt.IsZero() {
			write(15, c.CreatedAt.UTC().Format(time.RFC3339))
		}
		if wrap != 0 {
			first, _ := excelize.CoordinatesToCellName(4, row)
			last, _ := excelize.CoordinatesToCellName(7, row)
			_ = f.SetCellStyle(sheet, first, last, wrap)
		}
	}

	_ = f.SetColWidth(sheet, "A", "C", 28) // name, designation, company
	_ = f.SetColWidth(sheet, "D", "F", 30) // phones, emails, websites
	_ = f.SetColWidth(sheet, "G", "G", 48) // addresses
	_ = f.SetColWidth(sheet, "H", "J", 24)
	_ = f.SetColWidth(sheet, "K", "N", 12)
	_ = f.SetColWidth(sheet, "O", "O", 22)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
