package models

// RenderContext is the canvas a sketch renders into.
type RenderContext struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  Unit    `json:"units"`
	Seed   int64   `json:"seed"`
}

// DefaultRenderContext is a letter-ish landscape canvas in inches.
func DefaultRenderContext() RenderContext {
	return RenderContext{Width: 8, Height: 6, Units: UnitInches, Seed: 1}
}

// GeometryLayer is a layer of raw sketch output. Name may be empty.
type GeometryLayer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Polylines []Polyline `json:"polylines"`
}

// OutputKind tags the two shapes of sketch output.
type OutputKind string

const (
	OutputKindGeometry OutputKind = "geometry"
	OutputKindSVG      OutputKind = "svg"
)

// SketchOutput is what a sketch returns: either structured layers or a freeform SVG string.
type SketchOutput struct {
	Kind   OutputKind      `json:"kind"`
	Layers []GeometryLayer `json:"layers,omitempty"`
	SVG    string          `json:"svg,omitempty"`
}

// GeometryOutput wraps structured layers as sketch output.
func GeometryOutput(layers ...GeometryLayer) SketchOutput {
	return SketchOutput{Kind: OutputKindGeometry, Layers: layers}
}

// SVGOutput wraps an SVG document as sketch output.
func SVGOutput(svg string) SketchOutput {
	return SketchOutput{Kind: OutputKindSVG, SVG: svg}
}

// NormalizedLayer carries polylines plus the preview markup generated from them.
type NormalizedLayer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Polylines []Polyline `json:"polylines"`
	SVGMarkup string     `json:"svgMarkup"`
}

// NormalizedDocument is the canonical layered form of one render.
// Width and height come from the render context, never from content bounds.
type NormalizedDocument struct {
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
	Units  Unit              `json:"units"`
	Layers []NormalizedLayer `json:"layers"`
}

// SVGRenderOptions controls preview rendering.
type SVGRenderOptions struct {
	HoveredLayerID string   `json:"hoveredLayerId,omitempty"`
	DimOpacity     *float64 `json:"dimOpacity,omitempty"` // nil uses the default; 0 hides dimmed layers
	Background     string   `json:"background,omitempty"`
}
