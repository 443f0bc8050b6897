package models

// LayerMode is the policy for sequencing layers in a job.
type LayerMode string

const (
	LayerModeOrdered      LayerMode = "ordered"
	LayerModeFlatten      LayerMode = "flatten"
	LayerModePauseBetween LayerMode = "pause-between"
)

// Valid reports whether m is a known layer mode.
func (m LayerMode) Valid() bool {
	switch m {
	case LayerModeOrdered, LayerModeFlatten, LayerModePauseBetween:
		return true
	}
	return false
}

// PlotterModel identifies an AxiDraw hardware variant.
type PlotterModel string

const (
	ModelA4      PlotterModel = "A4"
	ModelA3      PlotterModel = "A3"
	ModelXLX     PlotterModel = "XLX"
	ModelMiniKit PlotterModel = "MiniKit"
	ModelA2      PlotterModel = "A2"
	ModelA1      PlotterModel = "A1"
	ModelB6      PlotterModel = "B6"
)

// Bounds is a machine's physical work area in inches.
type Bounds struct {
	WidthInches  float64 `json:"widthInches"`
	HeightInches float64 `json:"heightInches"`
}

// PlotterConfig holds machine and job parameters.
type PlotterConfig struct {
	Model          PlotterModel `json:"model" yaml:"model"`
	SpeedPenDown   float64      `json:"speedPenDown" yaml:"speed_pen_down"`
	SpeedPenUp     float64      `json:"speedPenUp" yaml:"speed_pen_up"`
	PenUpDelayMs   int          `json:"penUpDelayMs" yaml:"pen_up_delay_ms"`
	PenDownDelayMs int          `json:"penDownDelayMs" yaml:"pen_down_delay_ms"`
	RepeatCount    float64      `json:"repeatCount" yaml:"repeat_count"`
}

// PlannedLayer is a layer after optimization and repeat expansion.
type PlannedLayer struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Polylines []Polyline `json:"polylines"`
}

// PlotJobStats is derived entirely from a plan's layers.
type PlotJobStats struct {
	LayerCount        int     `json:"layerCount"`
	StrokeCount       int     `json:"strokeCount"`
	PointCount        int     `json:"pointCount"`
	DrawDistance      float64 `json:"drawDistance"`
	TravelDistance    float64 `json:"travelDistance"`
	OutOfBoundsPoints int     `json:"outOfBoundsPoints"`
}

// PlotJobPlan is an ordered, optimized job. Regenerate it rather than mutating it.
type PlotJobPlan struct {
	Mode   LayerMode      `json:"mode"`
	Layers []PlannedLayer `json:"layers"`
	Stats  PlotJobStats   `json:"stats"`
}
