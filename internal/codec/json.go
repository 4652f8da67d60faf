package codec

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/inkwell/internal/document"
	"github.com/roach88/inkwell/internal/store"
)

// fileModel is the top-level JSON object of a document file.
type fileModel struct {
	Format   string             `json:"format"`
	Version  int                `json:"version"`
	Document *document.Document `json:"document"`
	Strokes  []record           `json:"strokes"`
}

var gzipMagic = []byte{0x1f, 0x8b}

// JSONCodec writes the whole document as one JSON object.
// Load accepts both compressed and plain files regardless of Compress.
type JSONCodec struct {
	Compress bool
}

func (c JSONCodec) Name() string {
	if c.Compress {
		return "inkw"
	}
	return "json"
}

func (c JSONCodec) Save(ctx context.Context, path string, doc *document.Document, snap *store.Snapshot) error {
	const op = "save"
	if err := validateDocument(op, path, doc); err != nil {
		return err
	}
	recs, err := recordsFrom(ctx, snap)
	if err != nil {
		return saveError(path, err)
	}
	if recs == nil {
		recs = []record{}
	}
	model := fileModel{Format: FormatName, Version: FormatVersion, Document: doc, Strokes: recs}

	err = writeFileAtomic(ctx, path, func(w io.Writer) error {
		if !c.Compress {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(model)
		}
		zw := gzip.NewWriter(w)
		if err := json.NewEncoder(zw).Encode(model); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return saveError(path, err)
	}
	slog.Debug("document saved", "path", path, "codec", c.Name(), "strokes", len(recs))
	return nil
}

func (c JSONCodec) Load(ctx context.Context, path string) (*Decoded, error) {
	const op = "load"
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrCodeIO, op, path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if head, _ := r.(*bufio.Reader).Peek(len(gzipMagic)); bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, newError(ErrCodeCorrupt, op, path, err)
		}
		defer zr.Close()
		r = zr
	}

	var model fileModel
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return nil, newError(ErrCodeCorrupt, op, path, fmt.Errorf("decode: %w", err))
	}
	if model.Format != FormatName {
		return nil, newError(ErrCodeCorrupt, op, path, fmt.Errorf("not an %s file (format %q)", FormatName, model.Format))
	}
	if model.Version < 1 || model.Version > FormatVersion {
		return nil, newError(ErrCodeVersion, op, path, fmt.Errorf("version %d, supported up to %d", model.Version, FormatVersion))
	}
	if err := validateDocument(op, path, model.Document); err != nil {
		return nil, err
	}

	entries := make([]store.Entry, 0, len(model.Strokes))
	for i, rec := range model.Strokes {
		if err := ctx.Err(); err != nil {
			return nil, newError(ErrCodeIO, op, path, err)
		}
		e, err := rec.entry()
		if err != nil {
			return nil, newError(ErrCodeCorrupt, op, path, fmt.Errorf("stroke %d: %w", i, err))
		}
		entries = append(entries, e)
	}
	slog.Debug("document loaded", "path", path, "codec", c.Name(), "strokes", len(entries))
	return &Decoded{Document: model.Document, Snapshot: store.NewSnapshot(entries)}, nil
}

func saveError(path string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return newError(ErrCodeIO, "save", path, err)
}

// writeFileAtomic writes through a temporary file in the target directory
// and renames it over path, so readers never see a partial file.
func writeFileAtomic(ctx context.Context, path string, write func(io.Writer) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				slog.Warn("remove temp file", "path", tmp.Name(), "error", rmErr)
			}
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
