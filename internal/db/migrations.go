package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"classroom-photo-sync/internal/logger"
)

const photosTable = "captured_photos"

// OrgPlaceholder fills organisational columns of rows written before those
// columns existed.
const OrgPlaceholder = "unknown"

const createPhotosTable = `
	CREATE TABLE IF NOT EXISTS captured_photos (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		teacherId  TEXT NOT NULL,
		school     TEXT NOT NULL DEFAULT '',
		branch     TEXT NOT NULL DEFAULT '',
		class      TEXT NOT NULL DEFAULT '',
		filePath   TEXT NOT NULL,
		capturedAt INTEGER NOT NULL,
		uploaded   INTEGER NOT NULL DEFAULT 0,
		createdAt  INTEGER DEFAULT (CAST(strftime('%s', 'now') AS INTEGER) * 1000)
	);
`

const createPhotosIndex = `CREATE INDEX IF NOT EXISTS idx_captured_photos_owner ON captured_photos(teacherId, uploaded)`

// photoColumns is the current column set, in table order.
var photoColumns = []string{"id", "teacherId", "school", "branch", "class", "filePath", "capturedAt", "uploaded", "createdAt"}

// orgColumns were introduced after the first release of the table.
var orgColumns = []string{"school", "branch", "class"}

type migration struct {
	name   string
	needed func(cols map[string]bool) bool
	apply  func(ctx context.Context, tx *sql.Tx, cols map[string]bool) error
}

var migrations = []migration{
	{
		name: "add_org_columns",
		needed: func(cols map[string]bool) bool {
			for _, c := range orgColumns {
				if !cols[c] {
					return true
				}
			}
			return false
		},
		apply: rebuildWithOrgColumns,
	},
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createPhotosTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, createPhotosIndex); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	log := logger.Get()

	for _, m := range migrations {
		cols, err := tableColumns(ctx, db, photosTable)
		if err != nil {
			return err
		}
		if !m.needed(cols) {
			continue
		}

		log.Info().Str("migration", m.name).Msg("Applying schema migration")

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := m.apply(ctx, tx, cols); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.name, err)
		}

		log.Info().Str("migration", m.name).Msg("Schema migration applied")
	}
	return nil
}

// tableColumns introspects the live layout of table.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// rebuildWithOrgColumns copies every row aside, recreates the table with the
// current layout and restores the rows. Missing org columns get OrgPlaceholder;
// any other missing column takes its schema default.
func rebuildWithOrgColumns(ctx context.Context, tx *sql.Tx, cols map[string]bool) error {
	const backup = photosTable + "_backup"

	stmts := []string{
		"DROP TABLE IF EXISTS " + backup,
		fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", backup, photosTable),
		"DROP TABLE " + photosTable,
		createPhotosTable,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	isOrg := make(map[string]bool, len(orgColumns))
	for _, c := range orgColumns {
		isOrg[c] = true
	}

	var (
		targets []string
		sources []string
		args    []interface{}
	)
	for _, c := range photoColumns {
		switch {
		case cols[c]:
			targets = append(targets, c)
			sources = append(sources, c)
		case isOrg[c]:
			targets = append(targets, c)
			sources = append(sources, "?")
			args = append(args, OrgPlaceholder)
		}
	}

	restore := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		photosTable, strings.Join(targets, ", "), strings.Join(sources, ", "), backup)
	if _, err := tx.ExecContext(ctx, restore, args...); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, "DROP TABLE "+backup)
	return err
}
