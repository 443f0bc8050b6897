package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/plotter-studio/backend/internal/models"
	"golang.org/x/image/vector"
)

const (
	MinThumbnailWidth     = 16
	MaxThumbnailWidth     = 2048
	DefaultThumbnailWidth = 512

	thumbnailStrokePx = 1.25
)

var (
	paperColor = color.RGBA{R: 0xfc, G: 0xf7, B: 0xef, A: 0xff}
	inkColor   = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
)

// RenderPNG rasterizes every layer's polylines into a PNG thumbnail widthPx
// pixels wide. Height follows the document's aspect ratio.
func RenderPNG(doc *models.NormalizedDocument, widthPx int) ([]byte, error) {
	if doc == nil || !(doc.Width > 0) || !(doc.Height > 0) {
		return nil, fmt.Errorf("render png: document has no canvas")
	}
	if widthPx < MinThumbnailWidth || widthPx > MaxThumbnailWidth {
		return nil, fmt.Errorf("render png: width %d outside [%d, %d]", widthPx, MinThumbnailWidth, MaxThumbnailWidth)
	}

	scale := float64(widthPx) / doc.Width
	heightPx := int(math.Ceil(doc.Height * scale))
	if heightPx < 1 {
		heightPx = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	draw.Draw(img, img.Bounds(), image.NewUniform(paperColor), image.Point{}, draw.Src)

	z := vector.NewRasterizer(widthPx, heightPx)
	half := thumbnailStrokePx / 2
	for _, layer := range doc.Layers {
		for _, pl := range layer.Polylines {
			for i := 1; i < len(pl); i++ {
				strokeSegment(z, pl[i-1], pl[i], scale, half)
			}
		}
	}
	z.Draw(img, img.Bounds(), image.NewUniform(inkColor), image.Point{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return buf.Bytes(), nil
}

// strokeSegment adds a segment as a quad. Quads always wind the same way
// relative to their direction, so overlaps accumulate instead of cancelling.
func strokeSegment(z *vector.Rasterizer, a, b models.Point, scale, half float64) {
	ax, ay := a.X*scale, a.Y*scale
	bx, by := b.X*scale, b.Y*scale
	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	if length == 0 {
		// A dot: draw a square so zero-length segments stay visible
		dx, dy, length = 1, 0, 1
		ax -= half
		bx += half
	}
	nx, ny := -dy/length*half, dx/length*half

	z.MoveTo(float32(ax+nx), float32(ay+ny))
	z.LineTo(float32(bx+nx), float32(by+ny))
	z.LineTo(float32(bx-nx), float32(by-ny))
	z.LineTo(float32(ax-nx), float32(ay-ny))
	z.ClosePath()
}
