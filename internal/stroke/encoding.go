package stroke

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Envelope is the persisted form of a stroke: its kind plus the JSON of the
// concrete variant.
type Envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Marshal wraps s in an Envelope.
func Marshal(s Stroke) (Envelope, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s stroke: %w", s.Kind(), err)
	}
	return Envelope{Kind: s.Kind(), Data: data}, nil
}

// Unmarshal rebuilds the stroke held by env.
func Unmarshal(env Envelope) (Stroke, error) {
	var s Stroke
	switch env.Kind {
	case KindBrush:
		s = &BrushStroke{}
	case KindShape:
		s = &ShapeStroke{}
	case KindText:
		s = &TextStroke{}
	case KindImage:
		s = &BitmapImage{}
	default:
		return nil, fmt.Errorf("unmarshal stroke: unknown kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, s); err != nil {
		return nil, fmt.Errorf("unmarshal %s stroke: %w", env.Kind, err)
	}

	switch v := s.(type) {
	case *TextStroke:
		v.Text = norm.NFC.String(v.Text)
	case *BitmapImage:
		if err := v.decode(); err != nil {
			return nil, fmt.Errorf("unmarshal image stroke: %w", err)
		}
	}
	return s, nil
}
