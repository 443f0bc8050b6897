package models

import "time"

// RenderSessionSource records where a session's document came from.
type RenderSessionSource string

const (
	SourceSketch RenderSessionSource = "sketch"
	SourceSVG    RenderSessionSource = "svg"
)

// RenderSession is one rendered, normalized document held by the server.
type RenderSession struct {
	ID         string              `json:"id"`
	Source     RenderSessionSource `json:"source"`
	SketchSlug string              `json:"sketchSlug,omitempty"`
	FileID     string              `json:"fileId,omitempty"`
	Params     map[string]any      `json:"params,omitempty"`
	Context    RenderContext       `json:"context"`
	Document   *NormalizedDocument `json:"document"`
	RenderMs   int64               `json:"renderMs"`
	CreatedAt  time.Time           `json:"createdAt"`
}
