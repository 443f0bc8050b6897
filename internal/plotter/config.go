// Package plotter turns normalized documents into optimized plot plans and
// AxiDraw EBB command packets.
package plotter

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/plotter-studio/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ModelBounds are the physical work areas of each AxiDraw variant, in inches.
var ModelBounds = map[models.PlotterModel]models.Bounds{
	models.ModelA4:      {WidthInches: 11.81, HeightInches: 8.58},
	models.ModelA3:      {WidthInches: 16.93, HeightInches: 11.69},
	models.ModelXLX:     {WidthInches: 23.42, HeightInches: 8.58},
	models.ModelMiniKit: {WidthInches: 6.3, HeightInches: 4.0},
	models.ModelA2:      {WidthInches: 23.39, HeightInches: 17.01},
	models.ModelA1:      {WidthInches: 34.02, HeightInches: 23.39},
	models.ModelB6:      {WidthInches: 7.48, HeightInches: 5.51},
}

// BoundsFor returns the work area for model.
func BoundsFor(model models.PlotterModel) (models.Bounds, bool) {
	b, ok := ModelBounds[model]
	return b, ok
}

// DefaultConfig returns the stock job settings.
func DefaultConfig() models.PlotterConfig {
	return models.PlotterConfig{
		Model:          models.ModelA4,
		SpeedPenDown:   35,
		SpeedPenUp:     65,
		PenUpDelayMs:   140,
		PenDownDelayMs: 170,
		RepeatCount:    1,
	}
}

// RepeatCopies floors the configured repeat count, treating anything below one as one.
func RepeatCopies(cfg models.PlotterConfig) int {
	n := math.Floor(cfg.RepeatCount)
	if math.IsNaN(n) || n < 1 {
		return 1
	}
	return int(n)
}

// ClampPercent limits a speed percentage to [1, 100].
func ClampPercent(percent float64) float64 {
	if math.IsNaN(percent) {
		return 1
	}
	return math.Max(1, math.Min(100, percent))
}

// ValidateConfig rejects configurations that cannot be planned.
func ValidateConfig(cfg models.PlotterConfig) error {
	if _, ok := ModelBounds[cfg.Model]; !ok {
		return fmt.Errorf("unknown plotter model %q", cfg.Model)
	}
	if cfg.PenUpDelayMs < 0 || cfg.PenDownDelayMs < 0 {
		return fmt.Errorf("pen delays must not be negative")
	}
	return nil
}

// Profile is a named machine preset.
type Profile struct {
	Name                 string `json:"name" yaml:"name"`
	models.PlotterConfig `yaml:",inline"`
}

// LoadProfiles reads machine presets from a YAML file. A missing file yields no profiles.
func LoadProfiles(path string) ([]Profile, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening profiles: %w", err)
	}
	defer file.Close()

	return ParseProfiles(file)
}

// ParseProfiles decodes machine presets. Omitted fields take the stock defaults.
func ParseProfiles(r io.Reader) ([]Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Profiles []yaml.Node `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}

	profiles := make([]Profile, 0, len(raw.Profiles))
	for i := range raw.Profiles {
		p := Profile{PlotterConfig: DefaultConfig()}
		if err := raw.Profiles[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("parsing profile %d: %w", i+1, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i+1)
		}
		if err := ValidateConfig(p.PlotterConfig); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
		profiles = append(profiles, p)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}
