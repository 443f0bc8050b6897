package plotter

import (
	"fmt"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	mmPerInch = 25.4

	flattenedLayerID   = "flattened"
	flattenedLayerName = "Flattened Layer"
)

// Plan converts a document to inches, groups its layers according to mode,
// optimizes each group, expands repeat copies, and computes job stats.
func Plan(doc *models.NormalizedDocument, mode models.LayerMode, cfg models.PlotterConfig) models.PlotJobPlan {
	converted := make([]models.PlannedLayer, len(doc.Layers))
	for i, layer := range doc.Layers {
		polylines := make([]models.Polyline, len(layer.Polylines))
		for j, pl := range layer.Polylines {
			polylines[j] = toInches(pl, doc.Units)
		}
		converted[i] = models.PlannedLayer{ID: layer.ID, Name: layer.Name, Polylines: polylines}
	}

	groups := converted
	if mode == models.LayerModeFlatten {
		var all []models.Polyline
		for _, layer := range converted {
			all = append(all, layer.Polylines...)
		}
		groups = []models.PlannedLayer{{ID: flattenedLayerID, Name: flattenedLayerName, Polylines: all}}
	}

	copies := RepeatCopies(cfg)
	planned := make([]models.PlannedLayer, 0, len(groups)*copies)
	for _, group := range groups {
		optimized := Optimize(group.Polylines, DefaultJoinTolerance)
		if copies == 1 {
			planned = append(planned, models.PlannedLayer{ID: group.ID, Name: group.Name, Polylines: optimized})
			continue
		}
		for n := 1; n <= copies; n++ {
			planned = append(planned, models.PlannedLayer{
				ID:        fmt.Sprintf("%s-copy-%d", group.ID, n),
				Name:      fmt.Sprintf("%s (%d/%d)", group.Name, n, copies),
				Polylines: models.ClonePolylines(optimized),
			})
		}
	}

	return models.PlotJobPlan{
		Mode:   mode,
		Layers: planned,
		Stats:  ComputeStats(planned, cfg.Model),
	}
}

// ComputeStats walks layers in plot order. Travel is only measured between
// strokes of the same layer. Points are out of bounds outside the inclusive
// [0, width] x [0, height] work area of model.
func ComputeStats(layers []models.PlannedLayer, model models.PlotterModel) models.PlotJobStats {
	bounds := ModelBounds[model]
	stats := models.PlotJobStats{LayerCount: len(layers)}

	for _, layer := range layers {
		var cursor *models.Point

		for _, pl := range layer.Polylines {
			if !pl.Drawable() {
				continue
			}

			stats.StrokeCount++
			stats.PointCount += len(pl)
			stats.DrawDistance += pl.Length()

			if cursor != nil {
				stats.TravelDistance += models.Distance(*cursor, pl.Start())
			}
			end := pl.End()
			cursor = &end

			for _, pt := range pl {
				if pt.X < 0 || pt.Y < 0 || pt.X > bounds.WidthInches || pt.Y > bounds.HeightInches {
					stats.OutOfBoundsPoints++
				}
			}
		}
	}

	return stats
}

func toInches(pl models.Polyline, units models.Unit) models.Polyline {
	out := make(models.Polyline, len(pl))
	for i, pt := range pl {
		if units == models.UnitMillimeters {
			pt = models.Point{X: pt.X / mmPerInch, Y: pt.Y / mmPerInch}
		}
		out[i] = pt
	}
	return out
}
