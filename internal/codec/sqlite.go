package codec

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial tables
// 1 - paint order index on strokes
const currentSchemaVersion = 1

// SQLiteCodec stores a document in a SQLite database, one row per stroke.
// Saving replaces the previous content in a single transaction.
type SQLiteCodec struct{}

func (SQLiteCodec) Name() string { return "sqlite" }

func (c SQLiteCodec) Save(ctx context.Context, path string, doc *document.Document, snap *store.Snapshot) error {
	if err := validateDocument("save", path, doc); err != nil {
		return err
	}
	recs, err := recordsFrom(ctx, snap)
	if err != nil {
		return saveError(path, err)
	}
	db, err := openDB(path)
	if err != nil {
		return newError(ErrCodeIO, "save", path, err)
	}
	defer db.Close()

	if err := saveTo(ctx, db, doc, recs, time.Now().UTC()); err != nil {
		return newError(ErrCodeIO, "save", path, err)
	}
	slog.Debug("document saved", "path", path, "codec", c.Name(), "strokes", len(recs))
	return nil
}

func (c SQLiteCodec) Load(ctx context.Context, path string) (*Decoded, error) {
	// sql.Open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, newError(ErrCodeIO, "load", path, err)
	}
	db, err := openReadOnly(path)
	if err != nil {
		return nil, newError(ErrCodeCorrupt, "load", path, err)
	}
	defer db.Close()

	if err := checkSchema(ctx, db); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, newError(ErrCodeCorrupt, "load", path, err)
	}
	dec, err := loadFrom(ctx, db)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, newError(ErrCodeIO, "load", path, err)
	}
	if err := validateDocument("load", path, dec.Document); err != nil {
		return nil, err
	}
	slog.Debug("document loaded", "path", path, "codec", c.Name(), "strokes", dec.Snapshot.Len())
	return dec, nil
}

// openDB opens or creates the database and brings its schema up to date.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// One connection: a save is a single writer and pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// openReadOnly opens an existing database without creating, migrating or
// otherwise writing to it.
func openReadOnly(path string) (*sql.DB, error) {
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return db, nil
}

// checkSchema verifies db was written by this codec at a version it reads.
func checkSchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return newError(ErrCodeVersion, "load", "",
			fmt.Errorf("schema version %d is newer than %d", version, currentSchemaVersion))
	}
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('document', 'strokes')`,
	).Scan(&tables); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if tables != 2 {
		return newError(ErrCodeCorrupt, "load", "", fmt.Errorf("not an inkwell database"))
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than %d", version, currentSchemaVersion)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_strokes_paint ON strokes(layer, chrono_t)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// saveTo replaces all rows inside one transaction. Strokes are written in
// paint order, so seq reproduces it on load.
func saveTo(ctx context.Context, db *sql.DB, doc *document.Document, recs []record, now time.Time) (err error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM strokes`); err != nil {
		return fmt.Errorf("clear strokes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM document`); err != nil {
		return fmt.Errorf("clear document: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO document (id, format, version, data, saved_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, FormatName, FormatVersion, string(data), now.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	for i, r := range recs {
		var layer []byte
		if layer, err = r.Chrono.Layer.MarshalText(); err != nil {
			return fmt.Errorf("stroke %d layer: %w", i, err)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO strokes (seq, kind, data, chrono_t, layer, selected, trashed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i+1, string(r.Stroke.Kind), []byte(r.Stroke.Data), r.Chrono.T, string(layer), r.Selected, r.Trashed,
		); err != nil {
			return fmt.Errorf("insert stroke %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func loadFrom(ctx context.Context, db *sql.DB) (*Decoded, error) {
	var (
		format  string
		version int
		data    string
	)
	err := db.QueryRowContext(ctx, `SELECT format, version, data FROM document LIMIT 1`).Scan(&format, &version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrCodeCorrupt, "load", "", fmt.Errorf("no document row"))
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	if format != FormatName {
		return nil, newError(ErrCodeCorrupt, "load", "", fmt.Errorf("format %q", format))
	}
	if version < 1 || version > FormatVersion {
		return nil, newError(ErrCodeVersion, "load", "", fmt.Errorf("version %d, supported up to %d", version, FormatVersion))
	}
	var doc document.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, newError(ErrCodeCorrupt, "load", "", fmt.Errorf("decode document: %w", err))
	}

	rows, err := db.QueryContext(ctx,
		`SELECT seq, kind, data, chrono_t, layer, selected, trashed FROM strokes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query strokes: %w", err)
	}
	defer rows.Close()

	var entries []store.Entry
	for rows.Next() {
		var (
			seq      int64
			kind     string
			raw      []byte
			t        uint32
			layer    string
			selected bool
			trashed  bool
		)
		if err := rows.Scan(&seq, &kind, &raw, &t, &layer, &selected, &trashed); err != nil {
			return nil, fmt.Errorf("scan stroke: %w", err)
		}
		l, err := store.ParseLayer(layer)
		if err != nil {
			return nil, newError(ErrCodeCorrupt, "load", "", fmt.Errorf("stroke %d: %w", seq, err))
		}
		rec := record{
			Chrono:   store.Chrono{T: t, Layer: l},
			Selected: selected,
			Trashed:  trashed,
			Stroke:   stroke.Envelope{Kind: stroke.Kind(kind), Data: raw},
		}
		e, err := rec.entry()
		if err != nil {
			return nil, newError(ErrCodeCorrupt, "load", "", fmt.Errorf("stroke %d: %w", seq, err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strokes: %w", err)
	}
	return &Decoded{Document: &doc, Snapshot: store.NewSnapshot(entries)}, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func verifyPragma(db *sql.DB, name, expected string) error {
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
