package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/constants"
	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenMemory(ctx, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close(discard()) })
	if err := db.Migrate(ctx, discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newUser(t *testing.T, db *DB, email string) *entity.User {
	t.Helper()
	u, err := NewUserRepository(db, discard()).Create(context.Background(), "tester", email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db, discard())
	ctx := context.Background()

	u, err := repo.Create(ctx, "meera", " Meera@Example.com ", "h")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "meera@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if _, err := repo.Create(ctx, "other", "MEERA@example.com", "h"); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("duplicate email err = %v", err)
	}
	got, err := repo.GetByEmail(ctx, "meera@example.com")
	if err != nil || got.ID != u.ID || got.PasswordHash != "h" {
		t.Fatalf("GetByEmail = %+v, %v", got, err)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
	if err := db.HealthCheck(ctx, 0, discard()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestCardsCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := newUser(t, db, "a@example.com")
	stranger := newUser(t, db, "b@example.com")
	repo := NewCardRepository(db, discard())

	created, err := repo.Create(ctx, &entity.Card{
		UserID:           owner.ID,
		Name:             "Rajesh Kumar",
		Company:          "FIRSTLIFT LOGISTICS PVT LTD",
		Phones:           []string{"9876543210"},
		Emails:           []string{"rajesh@firstlift.in"},
		OCRAvgConfidence: 0.82,
		Stage:            "minimal",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, owner.ID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got.Phones, []string{"9876543210"}) || got.Addresses == nil || len(got.Addresses) != 0 {
		t.Fatalf("lists = %q / %q", got.Phones, got.Addresses)
	}
	if got.OCRAvgConfidence != 0.82 || got.Stage != "minimal" || got.LocationLat != nil {
		t.Fatalf("scalar fields = %+v", got)
	}
	if _, err := repo.Get(ctx, stranger.ID, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("foreign get err = %v", err)
	}

	name, lat := "Rajesh K", 13.08
	tags := []string{"expo", "lead"}
	updated, err := repo.Update(ctx, owner.ID, created.ID, entity.CardPatch{Name: &name, Tags: &tags, LocationLat: &lat})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || !reflect.DeepEqual(updated.Tags, tags) || updated.LocationLat == nil || *updated.LocationLat != lat {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Company != "FIRSTLIFT LOGISTICS PVT LTD" {
		t.Fatalf("untouched field changed: %q", updated.Company)
	}

	list, err := repo.List(ctx, owner.ID, CardFilter{Query: "firstlift"})
	if err != nil || len(list) != 1 {
		t.Fatalf("list by query = %d, %v", len(list), err)
	}
	list, err = repo.List(ctx, owner.ID, CardFilter{Tag: "expo"})
	if err != nil || len(list) != 1 {
		t.Fatalf("list by tag = %d, %v", len(list), err)
	}
	list, err = repo.List(ctx, owner.ID, CardFilter{Tag: "exp"})
	if err != nil || len(list) != 0 {
		t.Fatalf("partial tag should not match: %d, %v", len(list), err)
	}

	if err := repo.Delete(ctx, stranger.ID, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := repo.Delete(ctx, owner.ID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, owner.ID, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("deleted card still present: %v", err)
	}
}

func TestSetOwnerAndClear(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "owner@example.com")
	other := newUser(t, db, "other@example.com")
	repo := NewCardRepository(db, discard())

	var ids []uuid.UUID
	for _, n := range []string{"One", "Two", "Three"} {
		c, err := repo.Create(ctx, &entity.Card{UserID: u.ID, Name: n})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, c.ID)
	}
	foreign, err := repo.Create(ctx, &entity.Card{UserID: other.ID, Name: "Foreign", IsOwner: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, id := range []uuid.UUID{ids[0], ids[2]} {
		if err := repo.SetOwner(ctx, u.ID, id); err != nil {
			t.Fatalf("set owner: %v", err)
		}
	}
	cards, err := repo.List(ctx, u.ID, CardFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	owners := 0
	for _, c := range cards {
		if c.IsOwner {
			owners++
			if c.ID != ids[2] {
				t.Fatalf("wrong owner %s", c.Name)
			}
		}
	}
	if owners != 1 {
		t.Fatalf("owners = %d, want 1", owners)
	}
	if err := repo.SetOwner(ctx, u.ID, foreign.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("foreign set owner err = %v", err)
	}
	f, err := repo.Get(ctx, other.ID, foreign.ID)
	if err != nil || !f.IsOwner {
		t.Fatalf("other user's owner flag touched: %+v, %v", f, err)
	}

	n, err := repo.Clear(ctx, u.ID)
	if err != nil || n != 3 {
		t.Fatalf("clear = %d, %v", n, err)
	}
	if rest, _ := repo.List(ctx, other.ID, CardFilter{}); len(rest) != 1 {
		t.Fatalf("clear removed other user's cards")
	}
}

func TestScanJobs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := newUser(t, db, "jobs@example.com")
	jobs := NewScanJobRepository(db, discard())
	cards := NewCardRepository(db, discard())

	job, err := jobs.Start(ctx, u.ID, "/tmp/card.png", "abc123", constants.JobStatusRunning)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := jobs.FindByHash(ctx, u.ID, "abc123"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("unfinished job should not dedupe: %v", err)
	}
	if err := jobs.FinishOCR(ctx, job.ID, "raw", 0.91, "Rajesh Kumar"); err != nil {
		t.Fatalf("finish ocr: %v", err)
	}
	card, err := cards.Create(ctx, &entity.Card{UserID: u.ID, Name: "Rajesh Kumar"})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if err := jobs.FinishSuccess(ctx, job.ID, card.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	found, err := jobs.FindByHash(ctx, u.ID, "abc123")
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if found.Status != string(constants.JobStatusDone) || found.CardID == nil || *found.CardID != card.ID {
		t.Fatalf("job = %+v", found)
	}
	if found.Stage != "raw" || found.AvgConfidence != 0.91 || found.OCRText != "Rajesh Kumar" || found.FinishedAt == nil {
		t.Fatalf("ocr fields = %+v", found)
	}

	failed, err := jobs.Start(ctx, u.ID, "/tmp/missing.png", "def456", constants.JobStatusQueued)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := jobs.FinishFailure(ctx, failed.ID, "image not found"); err != nil {
		t.Fatalf("finish failure: %v", err)
	}
	got, err := jobs.Get(ctx, failed.ID)
	if err != nil || got.Status != string(constants.JobStatusFailed) || got.ErrorMessage == nil {
		t.Fatalf("failed job = %+v, %v", got, err)
	}
	if err := jobs.SetStatus(ctx, uuid.New(), constants.JobStatusRunning); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("unknown job err = %v", err)
	}
}
