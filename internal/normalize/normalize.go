// Package normalize converts raw sketch output into layered polyline documents
// and renders those documents back to SVG for preview.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/plotter-studio/backend/internal/models"
)

const ellipseSegments = 48

// Normalize converts sketch output into a NormalizedDocument sized by ctx.
// Only an SVG document that cannot be decoded at all produces an error;
// individual malformed primitives contribute nothing.
func Normalize(output models.SketchOutput, ctx models.RenderContext) (*models.NormalizedDocument, error) {
	doc := &models.NormalizedDocument{
		Width:  ctx.Width,
		Height: ctx.Height,
		Units:  ctx.Units,
	}

	switch output.Kind {
	case models.OutputKindGeometry:
		doc.Layers = make([]models.NormalizedLayer, 0, len(output.Layers))
		for i, layer := range output.Layers {
			doc.Layers = append(doc.Layers, normalizeGeometryLayer(layer, i))
		}
		return doc, nil

	case models.OutputKindSVG:
		layers, err := normalizeSVG(output.SVG)
		if err != nil {
			return nil, err
		}
		doc.Layers = layers
		return doc, nil
	}

	return nil, fmt.Errorf("unknown sketch output kind %q", output.Kind)
}

// NewLayer builds a normalized layer from polylines, regenerating its markup.
// Use it whenever polylines change so preview markup never drifts from geometry.
func NewLayer(id, name string, polylines []models.Polyline) models.NormalizedLayer {
	kept := make([]models.Polyline, 0, len(polylines))
	for _, pl := range polylines {
		if pl.Drawable() {
			kept = append(kept, pl.Clone())
		}
	}

	paths := make([]string, len(kept))
	for i, pl := range kept {
		paths[i] = `<path d="` + pointsToPath(pl) + `" fill="none" stroke="currentColor" stroke-width="0.012" stroke-linecap="round" stroke-linejoin="round" />`
	}

	return models.NormalizedLayer{
		ID:        id,
		Name:      name,
		Polylines: kept,
		SVGMarkup: strings.Join(paths, "\n"),
	}
}

func normalizeGeometryLayer(layer models.GeometryLayer, index int) models.NormalizedLayer {
	name := strings.TrimSpace(layer.Name)
	if name == "" {
		name = fmt.Sprintf("Layer %d", index+1)
	}
	return NewLayer(layer.ID, name, layer.Polylines)
}

func pointsToPath(pl models.Polyline) string {
	if len(pl) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("M ")
	b.WriteString(formatNumber(pl[0].X))
	b.WriteString(" ")
	b.WriteString(formatNumber(pl[0].Y))
	for _, pt := range pl[1:] {
		b.WriteString(" L ")
		b.WriteString(formatNumber(pt.X))
		b.WriteString(" ")
		b.WriteString(formatNumber(pt.Y))
	}
	return b.String()
}

func normalizeSVG(src string) ([]models.NormalizedLayer, error) {
	root, err := parseSVGTree(src)
	if err != nil {
		return nil, err
	}

	var groups []*node
	for _, child := range root.children {
		if child.name == "g" {
			groups = append(groups, child)
		}
	}
	if len(groups) < 2 {
		groups = []*node{{name: "g", children: root.children}}
	}

	layers := make([]models.NormalizedLayer, 0, len(groups))
	for i, g := range groups {
		layers = append(layers, models.NormalizedLayer{
			ID:        g.attrOr("id", fmt.Sprintf("svg-layer-%d", i+1)),
			Name:      svgLayerName(g, i),
			Polylines: collectPolylines(g),
			SVGMarkup: stringify(g),
		})
	}
	return layers, nil
}

func svgLayerName(g *node, index int) string {
	for _, key := range []string{"data-layer-name", "inkscape:label", "id", "data-name"} {
		if v, ok := g.attr(key); ok {
			return v
		}
	}
	return fmt.Sprintf("Layer %d", index+1)
}

// collectPolylines converts n and all its descendants into polylines.
// Nested groups are flattened into the caller's layer.
func collectPolylines(n *node) []models.Polyline {
	var out []models.Polyline

	switch n.name {
	case "path":
		if pl := samplePath(n.attrOr("d", "")); pl.Drawable() {
			out = append(out, pl)
		}

	case "line":
		out = append(out, models.Polyline{
			{X: parseFloatOr(n.attrOr("x1", ""), 0), Y: parseFloatOr(n.attrOr("y1", ""), 0)},
			{X: parseFloatOr(n.attrOr("x2", ""), 0), Y: parseFloatOr(n.attrOr("y2", ""), 0)},
		})

	case "polyline", "polygon":
		pl := parsePointList(n.attrOr("points", ""))
		if pl.Drawable() {
			if n.name == "polygon" && pl.Start() != pl.End() {
				pl = append(pl, pl.Start())
			}
			out = append(out, pl)
		}

	case "rect":
		x := parseFloatOr(n.attrOr("x", ""), 0)
		y := parseFloatOr(n.attrOr("y", ""), 0)
		w := parseFloatOr(n.attrOr("width", ""), 0)
		h := parseFloatOr(n.attrOr("height", ""), 0)
		if w > 0 && h > 0 {
			out = append(out, models.Polyline{
				{X: x, Y: y},
				{X: x + w, Y: y},
				{X: x + w, Y: y + h},
				{X: x, Y: y + h},
				{X: x, Y: y},
			})
		}

	case "circle":
		cx := parseFloatOr(n.attrOr("cx", ""), 0)
		cy := parseFloatOr(n.attrOr("cy", ""), 0)
		r := parseFloatOr(n.attrOr("r", ""), 0)
		if r > 0 {
			out = append(out, sampleEllipse(cx, cy, r, r))
		}

	case "ellipse":
		cx := parseFloatOr(n.attrOr("cx", ""), 0)
		cy := parseFloatOr(n.attrOr("cy", ""), 0)
		rx := parseFloatOr(n.attrOr("rx", ""), 0)
		ry := parseFloatOr(n.attrOr("ry", ""), 0)
		if rx > 0 && ry > 0 {
			out = append(out, sampleEllipse(cx, cy, rx, ry))
		}
	}

	for _, child := range n.children {
		out = append(out, collectPolylines(child)...)
	}
	return out
}

// parsePointList reads "x,y x,y" or "x y x y" point lists. Unparseable pairs are skipped.
func parsePointList(s string) models.Polyline {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	pl := make(models.Polyline, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		x := parseFloatOr(fields[i], math.NaN())
		y := parseFloatOr(fields[i+1], math.NaN())
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		pl = append(pl, models.Point{X: x, Y: y})
	}
	return pl
}

func sampleEllipse(cx, cy, rx, ry float64) models.Polyline {
	pl := make(models.Polyline, 0, ellipseSegments+1)
	for i := 0; i <= ellipseSegments; i++ {
		theta := math.Pi * 2 * float64(i) / float64(ellipseSegments)
		pl = append(pl, models.Point{X: cx + math.Cos(theta)*rx, Y: cy + math.Sin(theta)*ry})
	}
	return pl
}
