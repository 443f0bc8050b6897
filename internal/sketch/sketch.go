// Package sketch defines parametric drawing generators and the registry that serves them.
package sketch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/plotter-studio/backend/internal/models"
)

// Sketch renders line art from coerced parameters.
type Sketch interface {
	Schema() Schema
	Render(params Params, ctx models.RenderContext) (models.SketchOutput, error)
}

// ParamType is the kind of value a parameter holds.
type ParamType string

const (
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// ParamDefinition describes one sketch parameter. Min, Max and Step apply to numbers only.
type ParamDefinition struct {
	Key         string    `json:"key"`
	Type        ParamType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
}

// Number defines a numeric parameter.
func Number(key, label, description string, def, min, max, step float64) ParamDefinition {
	return ParamDefinition{
		Key:         key,
		Type:        ParamNumber,
		Label:       label,
		Description: description,
		Default:     def,
		Min:         &min,
		Max:         &max,
		Step:        &step,
	}
}

// Boolean defines a toggle parameter.
func Boolean(key, label, description string, def bool) ParamDefinition {
	return ParamDefinition{
		Key:         key,
		Type:        ParamBoolean,
		Label:       label,
		Description: description,
		Default:     def,
	}
}

// Schema is an ordered list of parameter definitions.
type Schema []ParamDefinition

// Params maps parameter keys to float64 or bool values.
type Params map[string]any

// Number returns a numeric parameter, or zero if absent.
func (p Params) Number(key string) float64 {
	v, _ := p[key].(float64)
	return v
}

// Bool returns a boolean parameter, or false if absent.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Defaults returns every parameter at its default value.
func (s Schema) Defaults() Params {
	out := make(Params, len(s))
	for _, def := range s {
		out[def.Key] = def.Default
	}
	return out
}

// Coerce fills a complete parameter set from arbitrary input. Numbers are
// clamped to [min, max], snapped to the nearest step and rounded to six
// decimals; unparseable numbers take the default. A missing boolean takes
// the default, anything else is judged by truthiness. Unknown keys are dropped.
func (s Schema) Coerce(input map[string]any) Params {
	out := make(Params, len(s))
	for _, def := range s {
		raw, present := input[def.Key]
		switch def.Type {
		case ParamNumber:
			out[def.Key] = coerceNumber(def, raw, present)
		case ParamBoolean:
			if !present || raw == nil {
				out[def.Key] = def.Default
			} else {
				out[def.Key] = truthy(raw)
			}
		}
	}
	return out
}

func coerceNumber(def ParamDefinition, raw any, present bool) float64 {
	fallback, _ := def.Default.(float64)

	v, ok := toNumber(raw)
	if !present || !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		v = fallback
	}

	v = math.Min(*def.Max, math.Max(*def.Min, v))
	if step := *def.Step; step > 0 {
		v = math.Floor(v/step+0.5) * step
	}

	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 6, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}

// toNumber converts loosely typed input the way a form field would be read.
func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		return v != ""
	case json.Number:
		return v.String() != "0" && v.String() != ""
	}
	return true
}
