package cards

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
	"github.com/joseph-ayodele/cardmate/internal/extract"
	"github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/vcard"
)

type fakeScanner struct {
	record extract.ContactRecord
	err    error
	calls  int
}

func (f *fakeScanner) Scan(context.Context, string, bool) (*extract.ScanResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	best := extract.NewAttempt(extract.StageMinimal, []extract.TextLine{
		{Content: f.record.Name, Confidence: f.record.OverallConfidence},
	})
	return &extract.ScanResult{Record: f.record, Best: best, Attempts: []extract.Attempt{best}}, nil
}

type fixture struct {
	svc     *Service
	scanner *fakeScanner
	jobs    repository.ScanJobRepository
	user    *entity.User
	image   string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenMemory(ctx, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := db.Migrate(ctx, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	user, err := repository.NewUserRepository(db, logger).Create(ctx, "u", "u@example.com", "h")
	if err != nil {
		t.Fatalf("user: %v", err)
	}

	img := filepath.Join(t.TempDir(), "card.jpg")
	if err := os.WriteFile(img, []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	scanner := &fakeScanner{record: extract.ContactRecord{
		Name:              "Rajesh Kumar",
		Company:           "FIRSTLIFT LOGISTICS PVT LTD",
		Phones:            []string{"9876543210"},
		Emails:            []string{"rajesh@firstlift.in"},
		Addresses:         []string{},
		Websites:          []string{"www.firstlift.in"},
		OverallConfidence: 0.66,
		Stage:             extract.StageMinimal,
	}}
	jobs := repository.NewScanJobRepository(db, logger)
	svc, err := NewService(scanner, repository.NewCardRepository(db, logger), jobs, logger)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &fixture{svc: svc, scanner: scanner, jobs: jobs, user: user, image: img}
}

func TestScanPersistsCardAndJob(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out, err := f.svc.Scan(ctx, f.user.ID, f.image, ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	c := out.Card
	if c.Name != "Rajesh Kumar" || c.Stage != "minimal" || c.OCRAvgConfidence != 0.66 {
		t.Fatalf("card = %+v", c)
	}
	if !reflect.DeepEqual(c.Phones, []string{"9876543210"}) || len(c.Addresses) != 0 {
		t.Fatalf("lists = %q %q", c.Phones, c.Addresses)
	}
	job, err := f.jobs.Get(ctx, out.JobID)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.Status != string(constants.JobStatusDone) || job.CardID == nil || *job.CardID != c.ID || job.OCRText != "Rajesh Kumar" {
		t.Fatalf("job = %+v", job)
	}

	again, err := f.svc.Scan(ctx, f.user.ID, f.image, ScanOptions{SkipDuplicates: true})
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if !again.Duplicate || again.Card.ID != c.ID || f.scanner.calls != 1 {
		t.Fatalf("duplicate not detected: %+v calls=%d", again, f.scanner.calls)
	}
}

func TestNewServiceDefaultsLogger(t *testing.T) {
	f := setup(t)
	svc, err := NewService(f.scanner, f.svc.cards, f.jobs, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if svc.logger == nil {
		t.Fatalf("nil logger kept")
	}
	if _, err := svc.Scan(context.Background(), f.user.ID, f.image, ScanOptions{}); err != nil {
		t.Fatalf("scan: %v", err)
	}
}

func TestScanFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.Scan(ctx, f.user.ID, filepath.Join(t.TempDir(), "missing.png"), ScanOptions{}); !errors.Is(err, common.ErrImageNotFound) {
		t.Fatalf("missing file err = %v", err)
	}

	f.scanner.err = errors.New("decoder exploded")
	if _, err := f.svc.Scan(ctx, f.user.ID, f.image, ScanOptions{}); err == nil {
		t.Fatalf("scanner error swallowed")
	}
	cards, err := f.svc.List(ctx, f.user.ID, repository.CardFilter{})
	if err != nil || len(cards) != 0 {
		t.Fatalf("failed scan stored a card: %d %v", len(cards), err)
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	out, err := f.svc.Scan(ctx, f.user.ID, f.image, ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	id := out.Card.ID

	c, err := f.svc.Update(ctx, f.user.ID, id, []byte(`{"emails":["rajesh@firstlift .in ","rajesh@firstlift.in"],"tags":[" Expo "],"location_lat":13.08}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reflect.DeepEqual(c.Emails, []string{"rajesh@firstlift.in"}) || !reflect.DeepEqual(c.Tags, []string{"expo"}) {
		t.Fatalf("patched lists = %q %q", c.Emails, c.Tags)
	}

	bad := []string{
		`{}`,
		`{"stage":"raw"}`,
		`{"location_lat":91}`,
		`{"phones":"9876543210"}`,
		`not json`,
	}
	for _, raw := range bad {
		_, err := f.svc.Update(ctx, f.user.ID, id, []byte(raw))
		if !errors.Is(err, common.ErrValidation) && !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("Update(%s) err = %v", raw, err)
		}
	}
	if _, err := f.svc.Update(ctx, uuid.New(), id, []byte(`{"name":"x"}`)); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("foreign update err = %v", err)
	}
}

func TestVCardAndQRCode(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	out, err := f.svc.Scan(ctx, f.user.ID, f.image, ScanOptions{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	text, err := f.svc.VCard(ctx, f.user.ID, out.Card.ID)
	if err != nil {
		t.Fatalf("vcard: %v", err)
	}
	parsed, ok := vcard.Parse(text)
	if !ok || parsed.Name != "Rajesh Kumar" || parsed.Company != "FIRSTLIFT LOGISTICS PVT LTD" {
		t.Fatalf("vcard round trip = %+v", parsed)
	}

	png, err := f.svc.QRCode(ctx, f.user.ID, out.Card.ID, 0)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Fatalf("not a png")
	}
	if _, err := f.svc.QRCode(ctx, f.user.ID, out.Card.ID, 10000); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("oversized qr err = %v", err)
	}
}
