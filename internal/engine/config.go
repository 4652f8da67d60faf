package engine

import (
	"log/slog"

	"github.com/roach88/inkwell/internal/config"
	"github.com/roach88/inkwell/internal/store"
)

// EngineConfig returns the active configuration.
func (e *Engine) EngineConfig() config.Config { return e.cfg }

// LoadEngineConfig parses YAML or JSON over the defaults and applies it.
// A changed render scale re-renders the viewport. The worker count takes
// effect for the next engine only.
func (e *Engine) LoadEngineConfig(data []byte) (store.Flags, error) {
	cfg, err := config.ParseYAML(data)
	if err != nil {
		return store.Flags{}, err
	}
	return e.applyConfig(cfg), nil
}

func (e *Engine) applyConfig(cfg config.Config) store.Flags {
	prev := e.cfg
	e.cfg = cfg

	var f store.Flags
	if cfg.HistoryMaxLen != prev.HistoryMaxLen {
		f.Merge(e.store.SetHistoryMaxLen(cfg.HistoryMaxLen))
	}
	if cfg.RenderScale != prev.RenderScale {
		e.store.RegenerateRenderingInViewport(e.tasks, true, e.viewport, cfg.RenderScale)
		f.Redraw = true
	}
	if cfg.Workers != prev.Workers {
		slog.Warn("worker count change applies on restart", "workers", cfg.Workers)
	}
	slog.Debug("engine config applied", "history_max_len", cfg.HistoryMaxLen, "render_scale", cfg.RenderScale)
	return f
}

// SaveEngineConfig renders the active configuration as YAML.
func (e *Engine) SaveEngineConfig() ([]byte, error) {
	return config.Marshal(e.cfg)
}
