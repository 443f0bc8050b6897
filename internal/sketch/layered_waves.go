package sketch

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/plotter-studio/backend/internal/models"
)

const waveSamples = 120

// LayeredWaves emits stacked sine waves as an SVG document with two groups.
type LayeredWaves struct{}

func (LayeredWaves) Schema() Schema {
	return Schema{
		Number("waveCount", "Waves", "Number of horizontal wave lines.", 9, 2, 30, 1),
		Number("amplitude", "Amplitude", "Wave amplitude.", 0.35, 0.05, 2, 0.05),
		Boolean("alternatePhase", "Alternate Phase", "Offset every other line for contrast.", true),
	}
}

func (LayeredWaves) Render(params Params, ctx models.RenderContext) (models.SketchOutput, error) {
	random := mulberry32(uint32(ctx.Seed))
	count := int(math.Max(2, math.Floor(params.Number("waveCount"))))
	spacing := ctx.Height / float64(count+1)
	amplitude := params.Number("amplitude")
	alternate := params.Bool("alternatePhase")

	wavePath := func(line int, tight bool) string {
		baseY := spacing * float64(line+1)
		phase := 0.0
		if alternate && line%2 == 1 {
			phase = math.Pi / 3
		}
		jitter := (random() - 0.5) * 0.2

		cycle, harmonic, amp := 4.0, 7.0, amplitude
		if tight {
			cycle, harmonic, amp = 8, 13, amplitude*0.7
		}

		var d strings.Builder
		for i := 0; i <= waveSamples; i++ {
			t := float64(i) / waveSamples
			x := t * ctx.Width
			y := baseY +
				math.Sin(t*math.Pi*cycle+phase+jitter)*amp +
				math.Sin(t*math.Pi*harmonic)*(amp*0.15)

			if i > 0 {
				d.WriteByte(' ')
			}
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&d, "%s%s %s", cmd, strconv.FormatFloat(x, 'f', 3, 64), strconv.FormatFloat(y, 'f', 3, 64))
		}
		return d.String()
	}

	primary := make([]string, count)
	for i := range primary {
		primary[i] = `<path d="` + wavePath(i, false) + `" />`
	}
	secondary := make([]string, count)
	for i := range secondary {
		if i%2 == 0 {
			secondary[i] = `<path d="` + wavePath(i, true) + `" />`
		}
	}

	w := strconv.FormatFloat(ctx.Width, 'f', -1, 64)
	h := strconv.FormatFloat(ctx.Height, 'f', -1, 64)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 ` + w + ` ` + h + `">
  <g id="primary" data-layer-name="Primary Waves" fill="none" stroke="#121212" stroke-width="0.018">` + strings.Join(primary, "\n") + `</g>
  <g id="secondary" data-layer-name="Secondary Waves" fill="none" stroke="#121212" stroke-width="0.012">` + strings.Join(secondary, "\n") + `</g>
</svg>`

	return models.SVGOutput(svg), nil
}
