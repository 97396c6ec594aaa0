package repository

import (
	"context"
	"log/slog"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// textSize makes string columns unbounded (text) on every dialect.
const textSize = 2147483647

var (
	usersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "username", Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "password_hash", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	usersTable = &schema.Table{
		Name:       "users",
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	cardsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString, Size: 36},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "designation", Type: field.TypeString, Default: ""},
		{Name: "company", Type: field.TypeString, Default: ""},
		{Name: "phones", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "emails", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "addresses", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "websites", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "ocr_avg_confidence", Type: field.TypeFloat64, Default: 0},
		{Name: "stage", Type: field.TypeString, Default: ""},
		{Name: "qr_override", Type: field.TypeBool, Default: false},
		{Name: "is_owner", Type: field.TypeBool, Default: false},
		{Name: "tags", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "notes", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "event_name", Type: field.TypeString, Default: ""},
		{Name: "location_lat", Type: field.TypeFloat64, Nullable: true},
		{Name: "location_lng", Type: field.TypeFloat64, Nullable: true},
		{Name: "location_name", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	cardsTable = &schema.Table{
		Name:       "cards",
		Columns:    cardsColumns,
		PrimaryKey: []*schema.Column{cardsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "cards_users_cards",
				Columns:    []*schema.Column{cardsColumns[1]},
				RefColumns: []*schema.Column{usersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "card_user_id_created_at", Columns: []*schema.Column{cardsColumns[1], cardsColumns[19]}},
		},
	}

	scanJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString, Size: 36},
		{Name: "card_id", Type: field.TypeString, Size: 36, Nullable: true},
		{Name: "source_path", Type: field.TypeString, Size: textSize},
		{Name: "content_hash", Type: field.TypeString, Size: 64},
		{Name: "status", Type: field.TypeString},
		{Name: "stage", Type: field.TypeString, Default: ""},
		{Name: "avg_confidence", Type: field.TypeFloat64, Default: 0},
		{Name: "ocr_text", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	scanJobsTable = &schema.Table{
		Name:       "scan_jobs",
		Columns:    scanJobsColumns,
		PrimaryKey: []*schema.Column{scanJobsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "scan_jobs_users_jobs",
				Columns:    []*schema.Column{scanJobsColumns[1]},
				RefColumns: []*schema.Column{usersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "scan_jobs_cards_jobs",
				Columns:    []*schema.Column{scanJobsColumns[2]},
				RefColumns: []*schema.Column{cardsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "scanjob_user_id_content_hash", Columns: []*schema.Column{scanJobsColumns[1], scanJobsColumns[4]}},
		},
	}

	tables = []*schema.Table{usersTable, cardsTable, scanJobsTable}
)

func init() {
	cardsTable.ForeignKeys[0].RefTable = usersTable
	scanJobsTable.ForeignKeys[0].RefTable = usersTable
	scanJobsTable.ForeignKeys[1].RefTable = cardsTable
}

// Migrate creates missing tables, columns and indexes. Existing columns are
// never dropped.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	m, err := schema.NewMigrate(d.drv, schema.WithForeignKeys(true))
	if err != nil {
		return err
	}
	if err := m.Create(ctx, tables...); err != nil {
		logger.Error("schema migration failed", "error", err)
		return err
	}
	logger.Info("schema migrated", "tables", len(tables))
	return nil
}
