package normalize

import (
	"strings"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	DefaultDimOpacity = 0.15
	DefaultBackground = "#fcf7ef"
)

// RenderSVG composes a document's layer markup into a standalone SVG.
// Every layer other than opts.HoveredLayerID is dimmed when a layer is hovered.
func RenderSVG(doc *models.NormalizedDocument, opts models.SVGRenderOptions) string {
	dim := DefaultDimOpacity
	if opts.DimOpacity != nil {
		dim = *opts.DimOpacity
	}
	background := opts.Background
	if background == "" {
		background = DefaultBackground
	}

	groups := make([]string, len(doc.Layers))
	for i, layer := range doc.Layers {
		opacity := 1.0
		if opts.HoveredLayerID != "" && opts.HoveredLayerID != layer.ID {
			opacity = dim
		}
		groups[i] = `<g data-layer-id="` + escapeAttr(layer.ID) +
			`" data-layer-name="` + escapeAttr(layer.Name) +
			`" opacity="` + formatNumber(opacity) + `">` + layer.SVGMarkup + `</g>`
	}

	w, h := formatNumber(doc.Width), formatNumber(doc.Height)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + w + `" height="` + h + `" viewBox="0 0 ` + w + ` ` + h + `">` + "\n")
	b.WriteString(`  <rect x="0" y="0" width="` + w + `" height="` + h + `" fill="` + escapeAttr(background) + `" />` + "\n")
	b.WriteString(`  <g stroke="#1a1a1a" fill="none">` + "\n")
	b.WriteString("    " + strings.Join(groups, "\n") + "\n")
	b.WriteString("  </g>\n")
	b.WriteString("</svg>")
	return b.String()
}
