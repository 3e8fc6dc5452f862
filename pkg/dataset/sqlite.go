package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS relations (
    subject TEXT NOT NULL,
    object TEXT NOT NULL,
    relation TEXT
);

CREATE TABLE IF NOT EXISTS characters (
    id TEXT,
    name TEXT NOT NULL,
    status TEXT,
    species TEXT
);
`

// SQLiteSource reads the relations and characters tables of a SQLite
// database.
type SQLiteSource struct {
	DSN string
}

// Load queries both tables. Rows are returned in rowid order.
func (s SQLiteSource) Load(ctx context.Context) (*Raw, error) {
	db, err := sql.Open("sqlite3", s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	raw := &Raw{}
	rows, err := db.QueryContext(ctx,
		`SELECT subject, object, COALESCE(relation, '') FROM relations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Subject, &r.Object, &r.Type); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		raw.Relations = append(raw.Relations, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx,
		`SELECT COALESCE(id, ''), name, COALESCE(status, ''), COALESCE(species, '') FROM characters ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.Species); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		raw.Characters = append(raw.Characters, c)
	}
	return raw, rows.Err()
}

// WriteSQLite stores raw rows in the database at dsn, replacing the content
// of both tables.
func WriteSQLite(ctx context.Context, dsn string, raw *Raw) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM relations`, `DELETE FROM characters`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, r := range raw.Relations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relations (subject, object, relation) VALUES (?, ?, ?)`,
			r.Subject, r.Object, r.Type); err != nil {
			return fmt.Errorf("insert relation: %w", err)
		}
	}
	for _, c := range raw.Characters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO characters (id, name, status, species) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Status, c.Species); err != nil {
			return fmt.Errorf("insert character: %w", err)
		}
	}
	return tx.Commit()
}
