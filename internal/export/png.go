package export

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/inkwell/internal/render"
)

func writePNG(ctx context.Context, w io.Writer, sc scene, scale float64) error {
	c := render.NewCanvas(sc.area, scale)
	if sc.background != nil {
		c.Fill(sc.background.RGBA())
	}
	for _, st := range sc.strokes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.Draw(c); err != nil {
			return &Error{Code: ErrCodeRender, Err: fmt.Errorf("draw %s stroke: %w", st.Kind(), err)}
		}
	}
	return render.EncodePNG(w, c.RGBA())
}
