// requests.go - Request bodies shared by the session and plotter handlers
package api

import (
	"encoding/json"

	"github.com/plotter-studio/backend/internal/models"
	"github.com/plotter-studio/backend/internal/plotter"
)

type renderSketchRequest struct {
	Params  map[string]any        `json:"params"`
	Context *models.RenderContext `json:"context"`
}

type importSVGRequest struct {
	Name    string                `json:"name"`
	SVG     string                `json:"svg"`
	Context *models.RenderContext `json:"context"`
}

func (r *importSVGRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.SVG == "" {
		return NewValidationError("svg")
	}
	return nil
}

type reimportRequest struct {
	Context *models.RenderContext `json:"context"`
}

type renameDocumentRequest struct {
	Name string `json:"name"`
}

// planRequest selects a layer mode and machine setup. Config fields override
// the named profile, which overrides the server defaults.
type planRequest struct {
	Mode    models.LayerMode `json:"mode"`
	Profile string           `json:"profile"`
	Config  json.RawMessage  `json:"config"`
}

func (r *planRequest) validate() error {
	if r.Mode == "" {
		r.Mode = models.LayerModeOrdered
	}
	if !r.Mode.Valid() {
		return NewValidationError("mode")
	}
	return nil
}

type startJobRequest struct {
	SessionID string `json:"sessionId"`
	planRequest
}

func (r *startJobRequest) validate() error {
	if r.SessionID == "" {
		return NewValidationError("sessionId")
	}
	return r.planRequest.validate()
}

// renderContextOrDefault returns the requested canvas, or the stock one when omitted.
func renderContextOrDefault(ctx *models.RenderContext) models.RenderContext {
	if ctx == nil {
		return models.DefaultRenderContext()
	}
	return *ctx
}

// configResolver builds validated machine configs from request bodies.
type configResolver struct {
	defaults models.PlotterConfig
	profiles []plotter.Profile
}

func (r configResolver) profile(name string) (plotter.Profile, bool) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return plotter.Profile{}, false
}

func (r configResolver) resolve(req planRequest) (models.PlotterConfig, error) {
	cfg := r.defaults
	if req.Profile != "" {
		p, ok := r.profile(req.Profile)
		if !ok {
			return cfg, NewNotFoundError("profile", req.Profile)
		}
		cfg = p.PlotterConfig
	}
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return cfg, NewBadRequestError("invalid config", err)
		}
	}
	if err := plotter.ValidateConfig(cfg); err != nil {
		return cfg, NewBadRequestError("invalid config", err)
	}
	return cfg, nil
}
