package sketch

import (
	"math"

	"github.com/plotter-studio/backend/internal/models"
)

// InsetSquare draws nested rectangular frames with optional diagonals.
type InsetSquare struct{}

func (InsetSquare) Schema() Schema {
	return Schema{
		Number("inset", "Inset", "Border inset from edges.", 1, 0, 4, 0.05),
		Number("ringCount", "Rings", "Number of nested frames.", 4, 1, 24, 1),
		Boolean("showDiagonals", "Diagonals", "Include crossing diagonals in a second layer.", true),
	}
}

func (InsetSquare) Render(params Params, ctx models.RenderContext) (models.SketchOutput, error) {
	short := math.Min(ctx.Width, ctx.Height)
	ringCount := int(math.Max(1, math.Floor(params.Number("ringCount"))))
	maxInset := math.Max(0, short/2-0.05)
	baseInset := math.Max(0, math.Min(maxInset, params.Number("inset")))
	available := math.Max(0, short/2-baseInset)

	ringStep := 0.0
	if ringCount > 1 {
		ringStep = available / float64(ringCount)
	}

	frames := make([]models.Polyline, 0, ringCount)
	for i := 0; i < ringCount; i++ {
		inset := baseInset + float64(i)*ringStep
		frames = append(frames, rectangle(
			inset, inset,
			math.Max(0.01, ctx.Width-inset*2),
			math.Max(0.01, ctx.Height-inset*2),
		))
	}

	guides := []models.Polyline{}
	if params.Bool("showDiagonals") {
		lo, hiX, hiY := baseInset, ctx.Width-baseInset, ctx.Height-baseInset
		guides = append(guides,
			models.Polyline{{X: lo, Y: lo}, {X: hiX, Y: hiY}},
			models.Polyline{{X: hiX, Y: lo}, {X: lo, Y: hiY}},
		)
	}

	return models.GeometryOutput(
		models.GeometryLayer{ID: "frame", Name: "Frame", Polylines: frames},
		models.GeometryLayer{ID: "guides", Name: "Guides", Polylines: guides},
	), nil
}

func rectangle(x, y, w, h float64) models.Polyline {
	return models.Polyline{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
		{X: x, Y: y},
	}
}
