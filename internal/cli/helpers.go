package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/inkwell/internal/codec"
	"github.com/roach88/inkwell/internal/engine"
	"github.com/roach88/inkwell/internal/geom"
)

// parseRect parses "x,y,w,h".
func parseRect(s string) (geom.AABB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.AABB{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.AABB{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = f
	}
	r := geom.Rect(v[0], v[1], v[2], v[3])
	if !r.IsValid() || v[2] <= 0 || v[3] <= 0 {
		return geom.AABB{}, fmt.Errorf("rect %q: width and height must be positive", s)
	}
	return r, nil
}

// openInto loads path into eng, mapping failures to command errors.
func openInto(ctx context.Context, eng *engine.Engine, path string) error {
	if _, err := eng.Open(ctx, path); err != nil {
		if codec.IsUnsupported(err) {
			return WrapExitError(ExitCommandError, "unsupported document", err)
		}
		return WrapExitError(ExitCommandError, "failed to open document", err)
	}
	return nil
}

// await waits for a one-shot result channel.
func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
