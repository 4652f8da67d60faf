package codec

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/document"
)

func TestOpenDB_Pragmas(t *testing.T) {
	db, err := openDB(filepath.Join(t.TempDir(), "p.inkdb"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, verifyPragma(db, "journal_mode", "wal"))
	require.NoError(t, verifyPragma(db, "synchronous", "1"))
	require.NoError(t, verifyPragma(db, "busy_timeout", "5000"))
	require.NoError(t, verifyPragma(db, "user_version", "1"))
}

func TestOpenDB_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.inkdb")
	for range 2 {
		db, err := openDB(path)
		require.NoError(t, err)

		var n int
		require.NoError(t, db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_strokes_paint'`).Scan(&n))
		assert.Equal(t, 1, n)
		require.NoError(t, db.Close())
	}
}

func TestOpenDB_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.inkdb")
	db, err := openDB(path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 7")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = openDB(path)
	assert.ErrorContains(t, err, "newer")
}

func TestSaveTo_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	doc := document.New("d", document.DefaultFormat, document.LayoutFixed)
	_, snap := sample(t)
	recs, err := recordsFrom(context.Background(), snap)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM strokes").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM document").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document").
		WithArgs("d", FormatName, FormatVersion, sqlmock.AnyArg(), "2026-01-02T03:04:05Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO strokes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO strokes").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err = saveTo(context.Background(), db, doc, recs, now)
	require.ErrorContains(t, err, "insert stroke 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTo_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	doc := document.New("d", document.DefaultFormat, document.LayoutFixed)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM strokes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM document").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO document").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, saveTo(context.Background(), db, doc, nil, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFrom_MissingDocumentRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT format, version, data FROM document").
		WillReturnRows(sqlmock.NewRows([]string{"format", "version", "data"}))

	_, err = loadFrom(context.Background(), db)
	assert.True(t, IsCorrupt(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFrom_BadLayer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT format, version, data FROM document").
		WillReturnRows(sqlmock.NewRows([]string{"format", "version", "data"}).
			AddRow(FormatName, 1, `{"id":"d"}`))
	mock.ExpectQuery("SELECT seq, kind, data, chrono_t, layer, selected, trashed FROM strokes").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "kind", "data", "chrono_t", "layer", "selected", "trashed"}).
			AddRow(1, "brush", []byte(`{"path":[]}`), 1, "basement", false, false))

	_, err = loadFrom(context.Background(), db)
	assert.True(t, IsCorrupt(err))
	assert.ErrorContains(t, err, "stroke 1")
}
