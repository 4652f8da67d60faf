// Package codec persists a document and its strokes.
//
// Two file formats are provided. The JSON codec writes a single document
// file, gzip-compressed for the native ".inkw" extension and plain for
// ".json". The SQLite codec stores one row per stroke and suits large
// documents. Neither format is meant to interoperate with other programs.
//
// Codecs read from a store.Snapshot, so a save can run off the owner
// goroutine while editing continues. Load returns a snapshot for
// Store.ImportSnapshot.
package codec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
)

// FormatName tags every file written by this package.
const FormatName = "inkwell"

// FormatVersion is the current file format version.
const FormatVersion = 1

// Codec saves and loads documents.
type Codec interface {
	Name() string
	Save(ctx context.Context, path string, doc *document.Document, snap *store.Snapshot) error
	Load(ctx context.Context, path string) (*Decoded, error)
}

// Decoded is the result of loading a file.
type Decoded struct {
	Document *document.Document
	Snapshot *store.Snapshot
}

// ForPath picks a codec by file extension.
func ForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".inkw":
		return JSONCodec{Compress: true}, nil
	case ".json":
		return JSONCodec{}, nil
	case ".inkdb", ".db":
		return SQLiteCodec{}, nil
	}
	return nil, newError(ErrCodeUnsupported, "open", path, fmt.Errorf("unknown extension %q", filepath.Ext(path)))
}

// Extensions lists the file extensions ForPath accepts.
func Extensions() []string { return []string{".inkw", ".json", ".inkdb", ".db"} }

// record is the persisted form of one snapshot entry.
type record struct {
	Chrono   store.Chrono    `json:"chrono"`
	Selected bool            `json:"selected,omitempty"`
	Trashed  bool            `json:"trashed,omitempty"`
	Stroke   stroke.Envelope `json:"stroke"`
}

func recordsFrom(ctx context.Context, snap *store.Snapshot) ([]record, error) {
	if snap == nil {
		return nil, nil
	}
	entries := snap.Entries()
	out := make([]record, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		env, err := stroke.Marshal(e.Stroke)
		if err != nil {
			return nil, err
		}
		out = append(out, record{Chrono: e.Chrono, Selected: e.Selected, Trashed: e.Trashed, Stroke: env})
	}
	return out, nil
}

func (r record) entry() (store.Entry, error) {
	st, err := stroke.Unmarshal(r.Stroke)
	if err != nil {
		return store.Entry{}, err
	}
	return store.Entry{Stroke: st, Chrono: r.Chrono, Selected: r.Selected, Trashed: r.Trashed}, nil
}

func validateDocument(op, path string, doc *document.Document) error {
	if doc == nil {
		return newError(ErrCodeCorrupt, op, path, fmt.Errorf("missing document"))
	}
	if err := doc.Validate(); err != nil {
		return newError(ErrCodeCorrupt, op, path, err)
	}
	return nil
}
