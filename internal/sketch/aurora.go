package sketch

import (
	"math"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	auroraContourSamples = 240
	auroraHaloSegments   = 280
	auroraLocalSeed      = 1
)

// AuroraTopography draws noise-driven contour lines, rippled halo rings and
// a sparse starfield. Its seed is a parameter, so the render context seed is unused.
type AuroraTopography struct{}

func (AuroraTopography) Schema() Schema {
	return Schema{
		Number("seed", "Seed", "Deterministic random seed.", 314, 0, 999999, 1),
		Number("contourCount", "Contours", "Number of flowing contour lines.", 84, 12, 220, 1),
		Number("waveAmplitude", "Wave Amplitude", "Vertical contour movement intensity.", 0.22, 0.02, 0.8, 0.01),
		Number("turbulence", "Turbulence", "Fine-grain turbulence mixed into contours.", 0.42, 0, 1, 0.01),
		Number("haloCount", "Halo Rings", "Concentric rings around the aurora core.", 4, 0, 12, 1),
		Boolean("mirrorContours", "Mirror Contours", "Reflect contour fields for bilateral symmetry.", true),
		Boolean("starfield", "Starfield", "Add sparse star-cross strokes around the scene.", true),
	}
}

func (AuroraTopography) Render(params Params, ctx models.RenderContext) (models.SketchOutput, error) {
	seed := params.Number("seed")
	amplitude := params.Number("waveAmplitude")
	turbulence := params.Number("turbulence")
	random := mulberry32(seedFrom(seed + auroraLocalSeed*13))

	inset := math.Min(ctx.Width, ctx.Height) * 0.06
	minX, maxX := inset, ctx.Width-inset
	minY, maxY := inset, ctx.Height-inset
	innerW, innerH := maxX-minX, maxY-minY

	contourCount := int(math.Max(8, math.Floor(params.Number("contourCount"))))
	contours := make([]models.Polyline, 0, contourCount*2)

	for c := 0; c < contourCount; c++ {
		lineT := float64(c) / math.Max(1, float64(contourCount-1))
		baseline := minY + innerH*lineT
		curve := make(models.Polyline, 0, auroraContourSamples+1)

		for s := 0; s <= auroraContourSamples; s++ {
			sampleT := float64(s) / auroraContourSamples
			x := minX + innerW*sampleT

			nx := sampleT*3.6 + lineT*0.8
			ny := lineT*3.1 + sampleT*0.6

			macro := math.Sin(nx*2.8+seed*0.004) * 0.55
			micro := (fbm(nx+macro, ny-macro, seed) - 0.5) * 2
			shimmer := math.Sin(sampleT*math.Pi*14+seed*0.003+lineT*1.7) * turbulence * 0.12

			offset := innerH * (macro*amplitude*0.35 + micro*amplitude*0.5 + shimmer)
			curve = append(curve, models.Point{X: x, Y: clamp(baseline+offset, minY, maxY)})
		}

		contours = append(contours, curve)
		if params.Bool("mirrorContours") {
			contours = append(contours, mirrorY(curve, minY+innerH*0.5))
		}
	}

	haloCount := int(math.Max(0, math.Floor(params.Number("haloCount"))))
	center := models.Point{X: minX + innerW*0.62, Y: minY + innerH*0.38}
	short := math.Min(innerW, innerH)
	halos := make([]models.Polyline, 0, haloCount)

	for ring := 0; ring < haloCount; ring++ {
		radius := short*0.08 + float64(ring)*short*0.05
		jitter := radius * (0.24 + turbulence*0.6)
		turnBias := random()*2 - 1

		halo := haloRing(center, radius, jitter, seed+float64(ring)*3571, turnBias)
		for i, pt := range halo {
			halo[i] = models.Point{X: clamp(pt.X, minX, maxX), Y: clamp(pt.Y, minY, maxY)}
		}
		halos = append(halos, halo)
	}

	stars := []models.Polyline{}
	if params.Bool("starfield") {
		starCount := 18 + int(math.Floor(turbulence*50))
		for i := 0; i < starCount; i++ {
			x := minX + random()*innerW
			y := minY + random()*innerH
			dx := (0.025 + random()*0.06) * innerW
			dy := (0.02 + random()*0.05) * innerH

			stars = append(stars,
				models.Polyline{{X: clamp(x-dx, minX, maxX), Y: y}, {X: clamp(x+dx, minX, maxX), Y: y}},
				models.Polyline{{X: x, Y: clamp(y-dy, minY, maxY)}, {X: x, Y: clamp(y+dy, minY, maxY)}},
			)
		}
	}

	return models.GeometryOutput(
		models.GeometryLayer{ID: "aurora-contours", Name: "Aurora Contours", Polylines: contours},
		models.GeometryLayer{ID: "halo-rings", Name: "Halo Rings", Polylines: halos},
		models.GeometryLayer{ID: "starfield", Name: "Starfield", Polylines: stars},
	), nil
}

func mirrorY(pl models.Polyline, centerY float64) models.Polyline {
	out := make(models.Polyline, len(pl))
	for i, pt := range pl {
		out[i] = models.Point{X: pt.X, Y: centerY + (centerY - pt.Y)}
	}
	return out
}

func haloRing(center models.Point, radius, jitter, seed, turnBias float64) models.Polyline {
	out := make(models.Polyline, 0, auroraHaloSegments+1)
	for i := 0; i <= auroraHaloSegments; i++ {
		theta := float64(i) / auroraHaloSegments * math.Pi * 2
		radial := fbm(math.Cos(theta)*1.4+turnBias, math.Sin(theta)*1.4-turnBias, seed)
		ripple := math.Sin(theta*3+seed*0.0008) * jitter * 0.5
		r := radius + (radial-0.5)*jitter + ripple

		out = append(out, models.Point{
			X: center.X + math.Cos(theta)*r,
			Y: center.Y + math.Sin(theta)*r,
		})
	}
	return out
}
