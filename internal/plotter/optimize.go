package plotter

import (
	"math"
	"slices"

	"github.com/plotter-studio/backend/internal/models"
)

// DefaultJoinTolerance is the widest gap, in inches, bridged by joining strokes.
const DefaultJoinTolerance = 0.02

// Optimize reorders polylines with a greedy nearest-endpoint walk, reversing
// strokes whose far end is closer and splicing strokes that start within
// joinTolerance of the previous stroke's end. Polylines with fewer than two
// points are dropped. The input is never modified.
func Optimize(polylines []models.Polyline, joinTolerance float64) []models.Polyline {
	remaining := make([]models.Polyline, 0, len(polylines))
	for _, pl := range polylines {
		if pl.Drawable() {
			remaining = append(remaining, pl.Clone())
		}
	}
	if len(remaining) == 0 {
		return []models.Polyline{}
	}

	ordered := make([]models.Polyline, 0, len(remaining))
	cursor := remaining[0].Start()

	for len(remaining) > 0 {
		bestIndex, bestReverse := nearestEndpoint(remaining, cursor)

		chosen := remaining[bestIndex]
		remaining = slices.Delete(remaining, bestIndex, bestIndex+1)
		if bestReverse {
			chosen = chosen.Reversed()
		}

		if len(ordered) > 0 {
			last := len(ordered) - 1
			if models.Distance(ordered[last].End(), chosen.Start()) <= joinTolerance {
				ordered[last] = append(ordered[last], chosen[1:]...)
				cursor = ordered[last].End()
				continue
			}
		}

		ordered = append(ordered, chosen)
		cursor = chosen.End()
	}

	return ordered
}

// nearestEndpoint scans start then end of each candidate in order; the first
// strictly closer endpoint wins, so ties go to the earlier candidate.
func nearestEndpoint(candidates []models.Polyline, cursor models.Point) (index int, reverse bool) {
	best := math.Inf(1)
	for i, pl := range candidates {
		if d := models.Distance(cursor, pl.Start()); d < best {
			best, index, reverse = d, i, false
		}
		if d := models.Distance(cursor, pl.End()); d < best {
			best, index, reverse = d, i, true
		}
	}
	return index, reverse
}
