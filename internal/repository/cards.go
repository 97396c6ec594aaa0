package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/entity"
)

// CardFilter narrows List. Zero values match everything.
type CardFilter struct {
	Query  string // case-insensitive match on name, company or designation
	Tag    string
	Limit  int
	Offset int
}

type CardRepository interface {
	Create(ctx context.Context, card *entity.Card) (*entity.Card, error)
	CreateTx(ctx context.Context, tx dialect.ExecQuerier, card *entity.Card) (*entity.Card, error)
	List(ctx context.Context, userID uuid.UUID, f CardFilter) ([]*entity.Card, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*entity.Card, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch entity.CardPatch) (*entity.Card, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetOwner(ctx context.Context, userID, id uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

type cardRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewCardRepository(db *DB, logger *slog.Logger) CardRepository {
	return &cardRepository{db: db, logger: logger}
}

var cardColumns = []string{
	"id", "user_id", "name", "designation", "company",
	"phones", "emails", "addresses", "websites",
	"ocr_avg_confidence", "stage", "qr_override", "is_owner",
	"tags", "notes", "event_name", "location_lat", "location_lng", "location_name",
	"created_at", "updated_at",
}

func (r *cardRepository) Create(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	return r.CreateTx(ctx, r.db.drv, card)
}

// CreateTx inserts card using ex, which may be a transaction. ID and
// timestamps are assigned when unset.
func (r *cardRepository) CreateTx(ctx context.Context, ex dialect.ExecQuerier, card *entity.Card) (*entity.Card, error) {
	c := *card
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	c.Phones, c.Emails, c.Addresses, c.Websites, c.Tags = list(c.Phones), list(c.Emails), list(c.Addresses), list(c.Websites), list(c.Tags)

	ins := r.db.builder().Insert(cardsTable.Name).
		Columns(cardColumns...).
		Values(
			c.ID.String(), c.UserID.String(), c.Name, c.Designation, c.Company,
			jsonList(c.Phones), jsonList(c.Emails), jsonList(c.Addresses), jsonList(c.Websites),
			c.OCRAvgConfidence, c.Stage, c.QROverride, c.IsOwner,
			jsonList(c.Tags), c.Notes, c.EventName, nullFloat(c.LocationLat), nullFloat(c.LocationLng), c.LocationName,
			c.CreatedAt, c.UpdatedAt,
		)
	if _, err := execBuilder(ctx, ex, ins); err != nil {
		r.logger.Error("failed to create card", "user_id", c.UserID, "error", err)
		return nil, fmt.Errorf("create card: %w", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("card created", "card_id", c.ID, "user_id", c.UserID)
	return &c, nil
}

// List returns the user's cards, newest first.
func (r *cardRepository) List(ctx context.Context, userID uuid.UUID, f CardFilter) ([]*entity.Card, error) {
	b := r.db.builder()
	preds := []*entsql.Predicate{entsql.EQ("user_id", userID.String())}
	if f.Query != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("name", f.Query),
			entsql.ContainsFold("company", f.Query),
			entsql.ContainsFold("designation", f.Query),
		))
	}
	if f.Tag != "" {
		preds = append(preds, entsql.Contains("tags", strconv.Quote(f.Tag)))
	}
	sel := b.Select(cardColumns...).
		From(b.Table(cardsTable.Name)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel.Offset(f.Offset)
	}

	cards, err := r.query(ctx, r.db.drv, sel)
	if err != nil {
		r.logger.Error("failed to list cards", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list cards: %w", errors.Join(common.ErrDatabase, err))
	}
	return cards, nil
}

// Get returns the card only when it belongs to userID.
func (r *cardRepository) Get(ctx context.Context, userID, id uuid.UUID) (*entity.Card, error) {
	return r.get(ctx, r.db.drv, userID, id)
}

func (r *cardRepository) get(ctx context.Context, ex dialect.ExecQuerier, userID, id uuid.UUID) (*entity.Card, error) {
	b := r.db.builder()
	sel := b.Select(cardColumns...).
		From(b.Table(cardsTable.Name)).
		Where(entsql.And(entsql.EQ("id", id.String()), entsql.EQ("user_id", userID.String()))).
		Limit(1)
	cards, err := r.query(ctx, ex, sel)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", errors.Join(common.ErrDatabase, err))
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	return cards[0], nil
}

func (r *cardRepository) Update(ctx context.Context, userID, id uuid.UUID, p entity.CardPatch) (*entity.Card, error) {
	var out *entity.Card
	err := r.db.WithTx(ctx, func(tx dialect.Tx) error {
		if _, err := r.get(ctx, tx, userID, id); err != nil {
			return err
		}
		if !p.IsEmpty() {
			up := r.db.builder().Update(cardsTable.Name).Set("updated_at", time.Now().UTC())
			setStr := func(col string, v *string) {
				if v != nil {
					up.Set(col, *v)
				}
			}
			setList := func(col string, v *[]string) {
				if v != nil {
					up.Set(col, jsonList(list(*v)))
				}
			}
			setStr("name", p.Name)
			setStr("designation", p.Designation)
			setStr("company", p.Company)
			setList("phones", p.Phones)
			setList("emails", p.Emails)
			setList("addresses", p.Addresses)
			setList("websites", p.Websites)
			setList("tags", p.Tags)
			setStr("notes", p.Notes)
			setStr("event_name", p.EventName)
			setStr("location_name", p.LocationName)
			if p.LocationLat != nil {
				up.Set("location_lat", *p.LocationLat)
			}
			if p.LocationLng != nil {
				up.Set("location_lng", *p.LocationLng)
			}
			up.Where(entsql.And(entsql.EQ("id", id.String()), entsql.EQ("user_id", userID.String())))
			if _, err := execBuilder(ctx, tx, up); err != nil {
				return fmt.Errorf("update card: %w", errors.Join(common.ErrDatabase, err))
			}
		}
		c, err := r.get(ctx, tx, userID, id)
		out = c
		return err
	})
	if err != nil {
		r.logger.Warn("card update failed", "card_id", id, "error", err)
		return nil, err
	}
	r.logger.Info("card updated", "card_id", id)
	return out, nil
}

func (r *cardRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	del := r.db.builder().Delete(cardsTable.Name).
		Where(entsql.And(entsql.EQ("id", id.String()), entsql.EQ("user_id", userID.String())))
	n, err := execBuilder(ctx, r.db.drv, del)
	if err != nil {
		r.logger.Error("failed to delete card", "card_id", id, "error", err)
		return fmt.Errorf("delete card: %w", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	r.logger.Info("card deleted", "card_id", id)
	return nil
}

// SetOwner marks id as the user's own card and unmarks every other card of
// the user, atomically.
func (r *cardRepository) SetOwner(ctx context.Context, userID, id uuid.UUID) error {
	err := r.db.WithTx(ctx, func(tx dialect.Tx) error {
		if _, err := r.get(ctx, tx, userID, id); err != nil {
			return err
		}
		b := r.db.builder()
		unset := b.Update(cardsTable.Name).Set("is_owner", false).
			Where(entsql.And(entsql.EQ("user_id", userID.String()), entsql.EQ("is_owner", true)))
		if _, err := execBuilder(ctx, tx, unset); err != nil {
			return fmt.Errorf("unset owner: %w", errors.Join(common.ErrDatabase, err))
		}
		set := b.Update(cardsTable.Name).Set("is_owner", true).
			Where(entsql.And(entsql.EQ("id", id.String()), entsql.EQ("user_id", userID.String())))
		if _, err := execBuilder(ctx, tx, set); err != nil {
			return fmt.Errorf("set owner: %w", errors.Join(common.ErrDatabase, err))
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("set owner failed", "card_id", id, "error", err)
		return err
	}
	r.logger.Info("card set as owner", "card_id", id, "user_id", userID)
	return nil
}

// Clear deletes every card of the user and reports how many were removed.
func (r *cardRepository) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	del := r.db.builder().Delete(cardsTable.Name).Where(entsql.EQ("user_id", userID.String()))
	n, err := execBuilder(ctx, r.db.drv, del)
	if err != nil {
		r.logger.Error("failed to clear cards", "user_id", userID, "error", err)
		return 0, fmt.Errorf("clear cards: %w", errors.Join(common.ErrDatabase, err))
	}
	r.logger.Info("cards cleared", "user_id", userID, "count", n)
	return n, nil
}

func (r *cardRepository) query(ctx context.Context, ex dialect.ExecQuerier, sel *entsql.Selector) ([]*entity.Card, error) {
	var cards []*entity.Card
	err := queryBuilder(ctx, ex, sel, func(rs entsql.ColumnScanner) error {
		c, err := scanCard(rs)
		if err != nil {
			return err
		}
		cards = append(cards, c)
		return nil
	})
	return cards, err
}

func scanCard(rs entsql.ColumnScanner) (*entity.Card, error) {
	var (
		c          entity.Card
		id, userID string
		lat, lng   sql.NullFloat64
	)
	var phones, emails, addresses, sites, tags string
	err := rs.Scan(
		&id, &userID, &c.Name, &c.Designation, &c.Company,
		&phones, &emails, &addresses, &sites,
		&c.OCRAvgConfidence, &c.Stage, &c.QROverride, &c.IsOwner,
		&tags, &c.Notes, &c.EventName, &lat, &lng, &c.LocationName,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return nil, err
	}
	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{phones, &c.Phones}, {emails, &c.Emails}, {addresses, &c.Addresses}, {sites, &c.Websites}, {tags, &c.Tags},
	} {
		if *col.dst, err = parseList(col.raw); err != nil {
			return nil, err
		}
	}
	if lat.Valid {
		c.LocationLat = &lat.Float64
	}
	if lng.Valid {
		c.LocationLng = &lng.Float64
	}
	return &c, nil
}

func list(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func jsonList(in []string) string {
	b, err := json.Marshal(list(in))
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parseList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode list column: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
