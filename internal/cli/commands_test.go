package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/inkwell/internal/engine"
	"github.com/roach88/inkwell/internal/testutil"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIWith(t, &RootOptions{}, args...)
}

// runCLIWith is runCLI with preset root options.
func runCLIWith(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root := newRootCommand(opts)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// decodeData unmarshals the data of a JSON response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.CLIResponse
}

func newDoc(t *testing.T, name string, strokes string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	_, err := runCLI(t, "new", path, "--strokes", strokes, "--seed", "42")
	require.NoError(t, err)
	return path
}

func TestNewCommand_CreatesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")

	out, err := runCLI(t, "new", path, "--strokes", "12", "--format", "json")
	require.NoError(t, err)

	var res NewResult
	resp := decodeData(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, 12, res.Strokes)
	assert.NotEmpty(t, res.DocumentID)
	assert.FileExists(t, path)
}

func TestNewCommand_TextOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.inkw")
	out, err := runCLI(t, "new", path)
	require.NoError(t, err)
	assert.Equal(t, "Created "+path+" (0 strokes, 794x1123)\n", out)
}

func TestNewCommand_SeedIsDeterministic(t *testing.T) {
	a := newDoc(t, "a.json", "20")
	b := newDoc(t, "b.json", "20")

	bounds := func(path string) []string {
		out, err := runCLI(t, "info", path, "--format", "json")
		require.NoError(t, err)
		var res InfoResult
		decodeData(t, out, &res)
		var got []string
		for _, st := range res.State.Strokes {
			got = append(got, string(st.Kind)+" "+st.Bounds.String())
		}
		return got
	}
	assert.Equal(t, bounds(a), bounds(b))
}

func TestNewCommand_RejectsNegativeCount(t *testing.T) {
	_, err := runCLI(t, "new", filepath.Join(t.TempDir(), "x.inkw"), "--strokes", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewCommand_UnsupportedExtension(t *testing.T) {
	_, err := runCLI(t, "new", filepath.Join(t.TempDir(), "x.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to save document")
}

func TestInfoCommand(t *testing.T) {
	path := newDoc(t, "doc.inkdb", "15")

	out, err := runCLI(t, "info", path, "--format", "json")
	require.NoError(t, err)
	var res InfoResult
	decodeData(t, out, &res)
	assert.Len(t, res.State.Strokes, 15)
	total := 0
	for _, n := range res.Kinds {
		total += n
	}
	assert.Equal(t, 15, total)
	assert.GreaterOrEqual(t, res.Pages, 1)

	out, err = runCLI(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "layout:    infinite")
	assert.Contains(t, out, "strokes:   15 (0 selected, 0 trashed)")
}

func TestInfoCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, "info", filepath.Join(dir, "missing.inkw"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open document")

	_, err = runCLI(t, "info", filepath.Join(dir, "notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document")
}

func TestRenderCommand_DocumentBounds(t *testing.T) {
	path := newDoc(t, "doc.inkw", "0")
	outPNG := filepath.Join(t.TempDir(), "page.png")

	_, err := runCLI(t, "render", path, "--out", outPNG)
	require.NoError(t, err)

	f, err := os.Open(outPNG)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 794, cfg.Width)
	assert.Equal(t, 1123, cfg.Height)
}

func TestRenderCommand_ViewportAndScale(t *testing.T) {
	path := newDoc(t, "doc.json", "30")
	outPNG := filepath.Join(t.TempDir(), "detail.png")

	out, err := runCLI(t, "render", path, "--out", outPNG, "--viewport", "0,0,100,50", "--scale", "2", "--format", "json")
	require.NoError(t, err)
	var res RenderResult
	decodeData(t, out, &res)
	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 100, res.Height)

	f, err := os.Open(outPNG)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestRenderCommand_BadViewport(t *testing.T) {
	path := newDoc(t, "doc.inkw", "1")
	_, err := runCLI(t, "render", path, "--out", filepath.Join(t.TempDir(), "x.png"), "--viewport", "0,0,-1,5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderCommand_CountsOnlyRenderedStrokes(t *testing.T) {
	path := newDoc(t, "doc.inkw", "6")
	outPNG := filepath.Join(t.TempDir(), "page.png")

	out, err := runCLI(t, "render", path, "--out", outPNG, "--format", "json")
	require.NoError(t, err)
	var res RenderResult
	decodeData(t, out, &res)
	assert.Equal(t, 6, res.Rendered)
	assert.Zero(t, res.Unrendered)

	failing := &RootOptions{engineOptions: []engine.EngineOption{
		engine.WithRasterizer(testutil.FailingRasterizer{Err: errors.New("backend down")}),
	}}
	out, err = runCLIWith(t, failing, "render", path, "--out", outPNG, "--format", "json")
	require.NoError(t, err)
	res = RenderResult{}
	decodeData(t, out, &res)
	assert.Zero(t, res.Rendered)
	assert.Equal(t, 6, res.Unrendered)
}

func TestExportCommand_SVG(t *testing.T) {
	path := newDoc(t, "doc.inkw", "10")
	outSVG := filepath.Join(t.TempDir(), "doc.svg")

	out, err := runCLI(t, "export", path, "--out", outSVG)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported doc to "+outSVG+" (svg)")

	data, err := os.ReadFile(outSVG)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestExportCommand_SelectionPNG(t *testing.T) {
	path := newDoc(t, "doc.inkw", "40")
	outPNG := filepath.Join(t.TempDir(), "sel.png")

	_, err := runCLI(t, "export", path, "--out", outPNG, "--target", "selection", "--select", "-10000,-10000,30000,30000")
	require.NoError(t, err)
	assert.FileExists(t, outPNG)
}

func TestExportCommand_WritesMetrics(t *testing.T) {
	path := newDoc(t, "doc.inkw", "4")
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.prom")

	_, err := runCLI(t, "export", path, "--out", filepath.Join(dir, "doc.svg"), "--metrics", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# TYPE inkwell_")
	assert.Contains(t, string(data), `format="svg"`)
}

func TestMetricsFlag_WithoutEngine(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "metrics.prom")
	_, err := runCLI(t, "config", "show", "--metrics", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestExportCommand_EmptySelection(t *testing.T) {
	path := newDoc(t, "doc.inkw", "5")
	_, err := runCLI(t, "export", path, "--out", filepath.Join(t.TempDir(), "sel.svg"), "--target", "selection", "--select", "90000,90000,1,1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing selected")
}

func TestExportCommand_Converts(t *testing.T) {
	src := newDoc(t, "doc.inkw", "8")
	dst := filepath.Join(t.TempDir(), "doc.inkdb")

	out, err := runCLI(t, "export", src, "--out", dst, "--format", "json")
	require.NoError(t, err)
	var res ExportResult
	decodeData(t, out, &res)
	assert.Equal(t, "sqlite", res.Kind)
	assert.Empty(t, res.Target)

	out, err = runCLI(t, "info", dst, "--format", "json")
	require.NoError(t, err)
	var info InfoResult
	decodeData(t, out, &info)
	assert.Len(t, info.State.Strokes, 8)
}

func TestExportCommand_InvalidTarget(t *testing.T) {
	path := newDoc(t, "doc.inkw", "1")
	_, err := runCLI(t, "export", path, "--out", "x.svg", "--target", "page")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExportCommand_UnsupportedOutput(t *testing.T) {
	path := newDoc(t, "doc.inkw", "1")
	_, err := runCLI(t, "export", path, "--out", filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigShow(t *testing.T) {
	out, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "history_max_len: 100")
	assert.Contains(t, out, "layout: infinite")

	path := filepath.Join(t.TempDir(), "inkwell.cue")
	require.NoError(t, os.WriteFile(path, []byte("history_max_len: 7\n"), 0o644))
	out, err = runCLI(t, "config", "show", "--config", path, "--format", "json")
	require.NoError(t, err)
	var cfg map[string]any
	decodeData(t, out, &cfg)
	assert.Equal(t, 7.0, cfg["history_max_len"])
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("workers: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("render_scale: 0\n"), 0o644))

	out, err := runCLI(t, "config", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+good)

	out, err = runCLI(t, "config", "check", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+bad)
}
