package config

import (
	"log/slog"
	"sync/atomic"
)

// Active holds the workspace currently in use. A failed reload leaves the
// previous workspace in place.
type Active struct {
	ws atomic.Pointer[Workspace]
}

// NewActive creates an Active holding ws, which may be nil.
func NewActive(ws *Workspace) *Active {
	a := &Active{}
	if ws != nil {
		a.ws.Store(ws)
	}
	return a
}

// Workspace returns the current workspace, or nil before the first
// successful load.
func (a *Active) Workspace() *Workspace {
	return a.ws.Load()
}

// Reload loads and builds the project at path and installs it. On any
// error the previous workspace stays active and the error is returned.
func (a *Active) Reload(path string) error {
	p, err := LoadProject(path)
	if err == nil {
		err = a.Apply(p)
	}
	if err != nil {
		slog.Warn("project_reload_failed", "path", path, "error", err, "kept_previous", a.ws.Load() != nil)
		return err
	}
	return nil
}

// Apply builds p and installs the result if it is valid.
func (a *Active) Apply(p *Project) error {
	ws, err := p.Build()
	if err != nil {
		return err
	}
	a.ws.Store(ws)
	slog.Info("project_loaded",
		"groups", len(ws.Registry.Groups()),
		"circuits", len(ws.Circuits),
	)
	return nil
}
