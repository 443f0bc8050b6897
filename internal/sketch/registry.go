package sketch

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ErrNotFound is returned for unknown slugs.
var ErrNotFound = errors.New("sketch not found")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Manifest is the catalog entry for a sketch.
type Manifest struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Order       int      `json:"order"`
}

// Validate checks the manifest's required fields.
func (m Manifest) Validate() error {
	if !slugPattern.MatchString(m.Slug) {
		return fmt.Errorf("invalid sketch slug %q", m.Slug)
	}
	if m.Title == "" {
		return fmt.Errorf("sketch %q has no title", m.Slug)
	}
	return nil
}

// Factory builds a fresh sketch instance.
type Factory func() Sketch

type entry struct {
	manifest Manifest
	factory  Factory
}

// Registry maps slugs to sketch factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

var (
	builtinOnce     sync.Once
	builtinRegistry *Registry
)

// Builtin returns the registry of sketches that ship with the server.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r := NewRegistry()
		r.MustRegister(Manifest{
			Slug:        "inset-square",
			Title:       "Inset Square",
			Description: "Nested frames with optional crossing diagonals.",
			Tags:        []string{"geometry", "starter"},
			Order:       1,
		}, func() Sketch { return InsetSquare{} })
		r.MustRegister(Manifest{
			Slug:        "layered-waves",
			Title:       "Layered Waves",
			Description: "Stacked sine waves emitted as SVG groups.",
			Tags:        []string{"svg", "waves"},
			Order:       2,
		}, func() Sketch { return LayeredWaves{} })
		r.MustRegister(Manifest{
			Slug:        "aurora-topography",
			Title:       "Aurora Topography",
			Description: "Noise-driven contours with halo rings and a starfield.",
			Tags:        []string{"noise", "contours"},
			Order:       3,
		}, func() Sketch { return AuroraTopography{} })
		builtinRegistry = r
	})
	return builtinRegistry
}

// Register adds a sketch. Slugs must be unique.
func (r *Registry) Register(m Manifest, factory Factory) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("sketch %q has no factory", m.Slug)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[m.Slug]; exists {
		return fmt.Errorf("sketch %q already registered", m.Slug)
	}
	r.entries[m.Slug] = entry{manifest: m, factory: factory}
	return nil
}

// MustRegister is Register for static catalogs.
func (r *Registry) MustRegister(m Manifest, factory Factory) {
	if err := r.Register(m, factory); err != nil {
		panic(err)
	}
}

// List returns manifests sorted by order, then slug.
func (r *Registry) List() []Manifest {
	r.mu.RLock()
	out := make([]Manifest, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.manifest)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Get builds the sketch registered under slug.
func (r *Registry) Get(slug string) (Sketch, Manifest, error) {
	r.mu.RLock()
	e, ok := r.entries[slug]
	r.mu.RUnlock()
	if !ok {
		return nil, Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return e.factory(), e.manifest, nil
}
