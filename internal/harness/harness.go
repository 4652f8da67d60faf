package harness

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/inkwell/internal/config"
	"github.com/roach88/inkwell/internal/engine"
	"github.com/roach88/inkwell/internal/geom"
	"github.com/roach88/inkwell/internal/store"
	"github.com/roach88/inkwell/internal/stroke"
	"github.com/roach88/inkwell/internal/testutil"
)

// DocumentID is the document ID every scenario runs with.
const DocumentID = "scenario-document"

// Harness executes one scenario against a fresh engine.
type Harness struct {
	ctx    context.Context
	engine *engine.Engine
	names  map[string]store.Key
	keys   map[store.Key]string
}

type action func(h *Harness, args map[string]any) (store.Flags, string, error)

var actions = map[string]action{
	"insert":          (*Harness).insert,
	"add":             (*Harness).add,
	"remove":          (*Harness).remove,
	"translate":       (*Harness).translate,
	"select":          (*Harness).selectKeys,
	"trash":           (*Harness).trash,
	"trash_selection": storeCall((*store.Store).TrashSelection),
	"empty_trash":     storeCall((*store.Store).EmptyTrash),
	"to_top":          (*Harness).toTop,
	"set_layer":       (*Harness).setLayer,
	"history_max_len": (*Harness).historyMaxLen,
	"record":          engineCall((*engine.Engine).Record),
	"undo":            engineCall((*engine.Engine).Undo),
	"redo":            engineCall((*engine.Engine).Redo),
	"clear":           engineCall((*engine.Engine).Clear),
	"resize_to_fit":   engineCall((*engine.Engine).ResizeToFitStrokes),
	"viewport":        (*Harness).viewport,
	"render":          (*Harness).render,
}

// Actions lists the step names scenarios may use.
func Actions() []string {
	return slices.Sorted(maps.Keys(actions))
}

func storeCall(fn func(*store.Store) store.Flags) action {
	return func(h *Harness, _ map[string]any) (store.Flags, string, error) {
		return fn(h.engine.Store()), "", nil
	}
}

func engineCall(fn func(*engine.Engine) store.Flags) action {
	return func(h *Harness, _ map[string]any) (store.Flags, string, error) {
		return fn(h.engine), "", nil
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create an engine with the scenario config and a fixed document ID
// 2. Execute setup steps
// 3. Execute flow steps, checking their expect clauses
// 4. Evaluate assertions against the trace and final state
//
// A step that cannot run (unknown stroke name, bad arguments) aborts the
// run with an error. Failed expectations and assertions are reported in
// the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}
	eng := engine.New(
		engine.WithConfig(cfg),
		engine.WithIDGenerator(testutil.NewFixedIDGenerator(DocumentID)),
	)
	defer eng.Close()

	h := &Harness{
		ctx:    ctx,
		engine: eng,
		names:  make(map[string]store.Key),
		keys:   make(map[store.Key]string),
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		if _, err := h.execute(step, result); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Do, err)
		}
	}
	for i, step := range scenario.Flow {
		ev, err := h.execute(step, result)
		if err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Do, err)
		}
		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, ev) {
				result.AddError(fmt.Sprintf("flow step %d (%s): %s", i, step.Do, msg))
			}
		}
	}

	result.State = h.finalState()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario) (config.Config, error) {
	if len(s.Config) == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario config: %w", err)
	}
	cfg, err := config.ParseYAML(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario config: %w", err)
	}
	return cfg, nil
}

func (h *Harness) execute(step Step, result *Result) (TraceEvent, error) {
	fn := actions[step.Do]
	if fn == nil {
		return TraceEvent{}, fmt.Errorf("unknown action %q", step.Do)
	}
	f, name, err := fn(h, step.Args)
	if err != nil {
		return TraceEvent{}, err
	}
	ev := TraceEvent{
		Action: step.Do,
		Args:   step.Args,
		Key:    name,
		Flags:  FlagNames(f),
		Len:    h.engine.Store().Len(),
	}
	result.AddTrace(ev)
	slog.Debug("scenario step", "action", step.Do, "key", name, "flags", ev.Flags, "len", ev.Len)
	return ev, nil
}

func checkExpect(exp *Expect, ev TraceEvent) []string {
	var errs []string
	if exp.Len != nil && *exp.Len != ev.Len {
		errs = append(errs, fmt.Sprintf("expected len %d, got %d", *exp.Len, ev.Len))
	}
	for _, name := range exp.Flags {
		if !slices.Contains(ev.Flags, name) {
			errs = append(errs, fmt.Sprintf("expected flag %s, got %v", name, ev.Flags))
		}
	}
	for _, name := range exp.NoFlags {
		if slices.Contains(ev.Flags, name) {
			errs = append(errs, fmt.Sprintf("unexpected flag %s", name))
		}
	}
	return errs
}

// finalState collects the values final_state assertions match against.
func (h *Harness) finalState() map[string]any {
	s := h.engine.Store()
	doc := h.engine.Document()
	undo, redo := s.HistoryLen()

	visible := s.StrokeKeysAsRendered()
	order := make([]string, len(visible))
	for i, k := range visible {
		order[i] = h.nameOf(k)
	}
	return map[string]any{
		"len":        s.Len(),
		"visible":    len(visible),
		"selected":   len(s.SelectionKeysUnordered()),
		"trashed":    len(s.TrashedKeys()),
		"undo":       undo,
		"redo":       redo,
		"order":      order,
		"layout":     string(doc.Layout),
		"doc_width":  doc.Width,
		"doc_height": doc.Height,
	}
}

func (h *Harness) nameOf(k store.Key) string {
	if name, ok := h.keys[k]; ok {
		return name
	}
	return k.String()
}

func (h *Harness) name(k store.Key, args map[string]any) string {
	name, _ := args["as"].(string)
	if name == "" {
		name = k.String()
	}
	h.names[name] = k
	h.keys[k] = name
	return name
}

// key resolves the "key" argument.
func (h *Harness) key(args map[string]any) (store.Key, error) {
	name, ok := args["key"].(string)
	if !ok {
		return store.Key{}, fmt.Errorf("key argument is required")
	}
	k, ok := h.names[name]
	if !ok {
		return store.Key{}, fmt.Errorf("unknown stroke %q", name)
	}
	return k, nil
}

// keyList resolves the "keys" argument, or "key" when "keys" is absent.
func (h *Harness) keyList(args map[string]any) ([]store.Key, error) {
	raw, ok := args["keys"]
	if !ok {
		k, err := h.key(args)
		if err != nil {
			return nil, err
		}
		return []store.Key{k}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("keys must be a list of stroke names")
	}
	out := make([]store.Key, 0, len(list))
	for _, v := range list {
		name, _ := v.(string)
		k, ok := h.names[name]
		if !ok {
			return nil, fmt.Errorf("unknown stroke %q", v)
		}
		out = append(out, k)
	}
	return out, nil
}

func (h *Harness) insert(args map[string]any) (store.Flags, string, error) {
	st, err := strokeFrom(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	s := h.engine.Store()
	var k store.Key
	if raw, ok := args["layer"].(string); ok {
		layer, err := store.ParseLayer(raw)
		if err != nil {
			return store.Flags{}, "", err
		}
		k = s.InsertStrokeInLayer(st, layer)
	} else {
		k = s.InsertStroke(st)
	}
	return store.Flags{Redraw: true, StoreChanged: true}, h.name(k, args), nil
}

func (h *Harness) add(args map[string]any) (store.Flags, string, error) {
	st, err := strokeFrom(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	k, f := h.engine.AddStroke(st)
	return f, h.name(k, args), nil
}

func (h *Harness) remove(args map[string]any) (store.Flags, string, error) {
	keys, err := h.keyList(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().RemoveStrokes(keys), "", nil
}

func (h *Harness) translate(args map[string]any) (store.Flags, string, error) {
	keys, err := h.keyList(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	offset, err := point(args, "by", geom.Vec2{})
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().TranslateStrokes(keys, offset), "", nil
}

func (h *Harness) selectKeys(args map[string]any) (store.Flags, string, error) {
	keys, err := h.keyList(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().SetSelectedKeys(keys, boolArg(args, "value", true)), "", nil
}

func (h *Harness) trash(args map[string]any) (store.Flags, string, error) {
	keys, err := h.keyList(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().SetTrashedKeys(keys, boolArg(args, "value", true)), "", nil
}

func (h *Harness) toTop(args map[string]any) (store.Flags, string, error) {
	k, err := h.key(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().UpdateChronoToLast(k), "", nil
}

func (h *Harness) setLayer(args map[string]any) (store.Flags, string, error) {
	k, err := h.key(args)
	if err != nil {
		return store.Flags{}, "", err
	}
	raw, _ := args["layer"].(string)
	layer, err := store.ParseLayer(raw)
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.Store().SetLayer(k, layer), "", nil
}

func (h *Harness) historyMaxLen(args map[string]any) (store.Flags, string, error) {
	n, err := number(args, "n", 0)
	if err != nil {
		return store.Flags{}, "", err
	}
	if n < 1 {
		return store.Flags{}, "", fmt.Errorf("n must be at least 1")
	}
	return h.engine.Store().SetHistoryMaxLen(int(n)), "", nil
}

func (h *Harness) viewport(args map[string]any) (store.Flags, string, error) {
	r, err := rect(args, "rect")
	if err != nil {
		return store.Flags{}, "", err
	}
	return h.engine.SetViewport(r), "", nil
}

func (h *Harness) render(map[string]any) (store.Flags, string, error) {
	f := h.engine.UpdateRenderingCurrentViewport()
	ctx, cancel := context.WithTimeout(h.ctx, testutil.WaitTimeout)
	defer cancel()
	wf, err := h.engine.WaitRendered(ctx)
	if err != nil {
		return store.Flags{}, "", err
	}
	return f.Merged(wf), "", nil
}

// strokeFrom builds a stroke from the kind-specific arguments.
func strokeFrom(args map[string]any) (stroke.Stroke, error) {
	kind, _ := args["kind"].(string)
	switch stroke.Kind(kind) {
	case stroke.KindBrush:
		pts, err := points(args, "points")
		if err != nil {
			return nil, err
		}
		width, err := number(args, "width", 2)
		if err != nil {
			return nil, err
		}
		return stroke.NewBrushStroke(stroke.BrushStyle{Width: width, Color: stroke.Black}, pts...), nil
	case stroke.KindShape:
		shape, _ := args["shape"].(string)
		if shape == "" {
			shape = string(stroke.ShapeRectangle)
		}
		start, err := point(args, "start", geom.Vec2{})
		if err != nil {
			return nil, err
		}
		end, err := point(args, "end", geom.Vec2{})
		if err != nil {
			return nil, err
		}
		width, err := number(args, "width", 1)
		if err != nil {
			return nil, err
		}
		style := stroke.ShapeStyle{StrokeWidth: width, StrokeColor: stroke.Black}
		return stroke.NewShapeStroke(stroke.ShapeKind(shape), start, end, style), nil
	case stroke.KindText:
		pos, err := point(args, "pos", geom.Vec2{})
		if err != nil {
			return nil, err
		}
		size, err := number(args, "size", 12)
		if err != nil {
			return nil, err
		}
		text, _ := args["text"].(string)
		return stroke.NewTextStroke(pos, text, size, stroke.Black), nil
	}
	return nil, fmt.Errorf("unsupported stroke kind %q", kind)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func number(args map[string]any, name string, def float64) (float64, error) {
	raw, ok := args[name]
	if !ok {
		return def, nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %T", name, raw)
	}
	return f, nil
}

func boolArg(args map[string]any, name string, def bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return def
}

func floats(v any, n int) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok || len(list) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, e := range list {
		if out[i], ok = toFloat(e); !ok {
			return nil, false
		}
	}
	return out, true
}

func point(args map[string]any, name string, def geom.Vec2) (geom.Vec2, error) {
	raw, ok := args[name]
	if !ok {
		return def, nil
	}
	xy, ok := floats(raw, 2)
	if !ok {
		return geom.Vec2{}, fmt.Errorf("%s must be [x, y]", name)
	}
	return geom.V(xy[0], xy[1]), nil
}

func points(args map[string]any, name string) ([]geom.Vec2, error) {
	list, ok := args[name].([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%s must be a non-empty list of [x, y]", name)
	}
	out := make([]geom.Vec2, len(list))
	for i, e := range list {
		xy, ok := floats(e, 2)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be [x, y]", name, i)
		}
		out[i] = geom.V(xy[0], xy[1])
	}
	return out, nil
}

func rect(args map[string]any, name string) (geom.AABB, error) {
	r, ok := floats(args[name], 4)
	if !ok {
		return geom.AABB{}, fmt.Errorf("%s must be [x, y, w, h]", name)
	}
	return geom.Rect(r[0], r[1], r[2], r[3]), nil
}
