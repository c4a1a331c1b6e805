// Package controls implements the Controls Mapper: a deterministic, pure
// function from Metrics to Controls, table-driven like a linear/exponential
// hex-to-physical parameter mapping.
package controls

import (
	"log"
	"math"

	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/model"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

func validate(name string, v float64, present bool) error {
	if !present {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return corerr.New(corerr.InvalidMetric, "metric "+name+" must be finite and within [0,1]")
	}
	return nil
}

// Map computes Controls from Metrics via a linear-map-then-clamp table,
// then applies any caller overrides after clamping.
func Map(m model.Metrics, override *model.ControlsOverride) (model.Controls, error) {
	fields := []struct {
		name string
		ptr  *float64
	}{
		{"ctr", m.CTR},
		{"impressions", m.Impressions},
		{"position", m.Position},
		{"clicks", m.Clicks},
		{"volatility_index", m.VolatilityIndex},
	}
	for _, f := range fields {
		if f.ptr == nil {
			continue
		}
		if err := validate(f.name, *f.ptr, true); err != nil {
			return model.Controls{}, err
		}
	}

	ctr, _ := m.Get("ctr")
	impressions, _ := m.Get("impressions")
	position, _ := m.Get("position")
	clicks, _ := m.Get("clicks")

	c := model.Controls{
		TempoBPM:   clamp(roundInt(60+ctr*120), 60, 180),
		Velocity:   clamp(roundInt(40+impressions*87), 1, 127),
		Transpose:  clamp(roundInt((position-0.5)*24), -12, 12),
		FilterCC74: clamp(roundInt(clicks*127), 0, 127),
		ReverbCC91: clamp(roundInt(((ctr+clicks)/2)*127), 0, 127),
	}

	if override != nil {
		if override.TempoBPM != nil {
			c.TempoBPM = clamp(*override.TempoBPM, 60, 180)
		}
		if override.Velocity != nil {
			c.Velocity = clamp(*override.Velocity, 1, 127)
		}
		if override.Transpose != nil {
			c.Transpose = clamp(*override.Transpose, -12, 12)
		}
		if override.Bars != nil {
			c.Bars = *override.Bars
		}
	}

	log.Printf("[CONTROLS] mapped tempo=%d velocity=%d transpose=%d filter_cc74=%d reverb_cc91=%d",
		c.TempoBPM, c.Velocity, c.Transpose, c.FilterCC74, c.ReverbCC91)

	return c, nil
}
