package store

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/roach88/inkwell/internal/stroke"
)

// LayerKind is the coarse paint layer.
type LayerKind uint8

const (
	LayerDocument LayerKind = iota
	LayerImage
	LayerHighlighter
	LayerUser
)

// Layer orders strokes bottom to top:
// Document < Image < Highlighter < User(0) < User(1) < ...
type Layer struct {
	Kind LayerKind
	N    uint32 // only meaningful for LayerUser
}

var (
	DocumentLayer    = Layer{Kind: LayerDocument}
	ImageLayer       = Layer{Kind: LayerImage}
	HighlighterLayer = Layer{Kind: LayerHighlighter}
)

// UserLayer returns user layer n.
func UserLayer(n uint32) Layer { return Layer{Kind: LayerUser, N: n} }

// DefaultLayer returns the layer a stroke is inserted into when the caller
// does not choose one.
func DefaultLayer(s stroke.Stroke) Layer {
	if s.Kind() == stroke.KindImage {
		return ImageLayer
	}
	return UserLayer(0)
}

func (l Layer) Compare(o Layer) int {
	if c := cmp.Compare(l.Kind, o.Kind); c != 0 {
		return c
	}
	if l.Kind != LayerUser {
		return 0
	}
	return cmp.Compare(l.N, o.N)
}

func (l Layer) String() string {
	switch l.Kind {
	case LayerDocument:
		return "document"
	case LayerImage:
		return "image"
	case LayerHighlighter:
		return "highlighter"
	case LayerUser:
		return "user:" + strconv.FormatUint(uint64(l.N), 10)
	default:
		return fmt.Sprintf("layer(%d)", l.Kind)
	}
}

// MarshalText encodes the layer as "document", "image", "highlighter" or
// "user:N".
func (l Layer) MarshalText() ([]byte, error) {
	if l.Kind > LayerUser {
		return nil, fmt.Errorf("invalid layer kind %d", l.Kind)
	}
	return []byte(l.String()), nil
}

func (l *Layer) UnmarshalText(text []byte) error {
	parsed, err := ParseLayer(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLayer parses the MarshalText form. A bare "user" means user layer 0.
func ParseLayer(s string) (Layer, error) {
	switch s {
	case "document":
		return DocumentLayer, nil
	case "image":
		return ImageLayer, nil
	case "highlighter":
		return HighlighterLayer, nil
	case "user":
		return UserLayer(0), nil
	}
	if rest, ok := strings.CutPrefix(s, "user:"); ok {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return Layer{}, fmt.Errorf("parse layer %q: %w", s, err)
		}
		return UserLayer(uint32(n)), nil
	}
	return Layer{}, fmt.Errorf("parse layer %q: unknown layer", s)
}

// Chrono is a stroke's paint-order tag.
type Chrono struct {
	T     uint32 `json:"t" yaml:"t"`
	Layer Layer  `json:"layer" yaml:"layer"`
}

// Compare orders by layer, then by T.
func (c Chrono) Compare(o Chrono) int {
	if r := c.Layer.Compare(o.Layer); r != 0 {
		return r
	}
	return cmp.Compare(c.T, o.T)
}

// chronoCounter hands out chrono T values. Values are strictly increasing
// for the store's whole life; restoring history never lowers it.
type chronoCounter struct {
	t atomic.Uint32
}

func (c *chronoCounter) next() uint32 { return c.t.Add(1) }

func (c *chronoCounter) current() uint32 { return c.t.Load() }

// raise moves the counter to at least t.
func (c *chronoCounter) raise(t uint32) {
	for {
		cur := c.t.Load()
		if cur >= t || c.t.CompareAndSwap(cur, t) {
			return
		}
	}
}

// sortChrono sorts keys in paint order. Keys are first put in Key order and
// then stable-sorted by chrono, so a key with a missing chrono entry (a
// consistency defect) compares equal to everything and keeps its base
// position.
func sortChrono(keys []Key, chrono *table[Chrono]) {
	slices.SortFunc(keys, Key.Compare)
	slices.SortStableFunc(keys, func(a, b Key) int {
		ca, okA := chrono.get(a)
		cb, okB := chrono.get(b)
		if !okA || !okB {
			return 0
		}
		return ca.Compare(cb)
	})
}
