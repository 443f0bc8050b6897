package plotter

import (
	"sort"
	"testing"

	"github.com/plotter-studio/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pl(coords ...float64) models.Polyline {
	out := make(models.Polyline, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, models.Point{X: coords[i], Y: coords[i+1]})
	}
	return out
}

func TestOptimize_Empty(t *testing.T) {
	out := Optimize(nil, DefaultJoinTolerance)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestOptimize_DropsDegenerate(t *testing.T) {
	out := Optimize([]models.Polyline{pl(), pl(5, 5), pl(0, 0, 1, 1)}, DefaultJoinTolerance)
	require.Len(t, out, 1)
	assert.Equal(t, pl(0, 0, 1, 1), out[0])
}

func TestOptimize_JoinsTouchingStrokes(t *testing.T) {
	out := Optimize([]models.Polyline{pl(0, 0, 1, 0), pl(1, 0, 2, 0)}, DefaultJoinTolerance)
	require.Len(t, out, 1)
	assert.Equal(t, pl(0, 0, 1, 0, 2, 0), out[0])
}

func TestOptimize_ReversesWhenEndIsNearer(t *testing.T) {
	out := Optimize([]models.Polyline{pl(0, 0, 1, 0), pl(5, 0, 1.5, 0)}, DefaultJoinTolerance)
	require.Len(t, out, 2)
	assert.Equal(t, pl(1.5, 0, 5, 0), out[1])
}

func TestOptimize_JoinToleranceBoundary(t *testing.T) {
	// Gaps are powers of two so the distance equals the tolerance exactly.
	out := Optimize([]models.Polyline{pl(0, 0, 1, 0), pl(1.25, 0, 2, 0)}, 0.25)
	require.Len(t, out, 1, "a gap equal to the tolerance joins")
	assert.Equal(t, pl(0, 0, 1, 0, 2, 0), out[0])

	out = Optimize([]models.Polyline{pl(0, 0, 1, 0), pl(1.25, 0, 2, 0)}, 0.125)
	assert.Len(t, out, 2, "a gap just over the tolerance stays separate")
}

func TestOptimize_TieGoesToFirstCandidate(t *testing.T) {
	// Both remaining strokes start exactly 1 away from (1,0).
	out := Optimize([]models.Polyline{
		pl(0, 0, 1, 0),
		pl(1, 1, 1, 5),
		pl(1, -1, 1, -5),
	}, 0)
	require.Len(t, out, 3)
	assert.Equal(t, pl(1, 1, 1, 5), out[1])
}

func TestOptimize_StartCheckedBeforeEnd(t *testing.T) {
	// A closed loop offers equal start/end distances; it must not be reversed.
	loop := pl(3, 0, 4, 1, 5, 0, 3, 0)
	out := Optimize([]models.Polyline{pl(0, 0, 1, 0), loop}, 0)
	require.Len(t, out, 2)
	assert.Equal(t, loop, out[1])
}

func TestOptimize_DoesNotMutateInput(t *testing.T) {
	input := []models.Polyline{pl(0, 0, 1, 0), pl(5, 0, 1, 0)}
	snapshot := models.ClonePolylines(input)

	out := Optimize(input, DefaultJoinTolerance)
	out[0][0].X = 99

	assert.Equal(t, snapshot, input)
}

func TestOptimize_PreservesPointMultiset(t *testing.T) {
	input := []models.Polyline{
		pl(0, 0, 2, 2, 3, 1),
		pl(9, 9, 8, 8),
		pl(3, 5, 7, 1),
		pl(4, 4, 0, 6, 1, 1),
	}
	out := Optimize(input, 0)

	assert.ElementsMatch(t, flatten(input), flatten(out))
}

func flatten(polylines []models.Polyline) []models.Point {
	var pts []models.Point
	for _, p := range polylines {
		pts = append(pts, p...)
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	return pts
}
