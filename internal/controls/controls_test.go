package controls

import (
	"testing"

	"github.com/schollz/sonifycore/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestMapMidpointMetricsYieldMidpointControls(t *testing.T) {
	m := model.Metrics{CTR: ptr(0.5), Impressions: ptr(0.5), Position: ptr(0.5), Clicks: ptr(0.5)}
	c, err := Map(m, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if c.TempoBPM != 120 {
		t.Errorf("TempoBPM = %d, want 120", c.TempoBPM)
	}
	if c.Velocity != 84 {
		t.Errorf("Velocity = %d, want 84", c.Velocity)
	}
	if c.Transpose != 0 {
		t.Errorf("Transpose = %d, want 0", c.Transpose)
	}
}

func TestMapMaxCTRYieldsMaxTempo(t *testing.T) {
	m := model.Metrics{CTR: ptr(1.0)}
	c, err := Map(m, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if c.TempoBPM != 180 {
		t.Errorf("TempoBPM = %d, want 180", c.TempoBPM)
	}
}

func TestMapRejectsOutOfRangeMetric(t *testing.T) {
	m := model.Metrics{CTR: ptr(1.5)}
	if _, err := Map(m, nil); err == nil {
		t.Fatal("expected error for ctr=1.5, got nil")
	}
}

func TestMapRejectsNaN(t *testing.T) {
	m := model.Metrics{Position: ptr(nanValue())}
	if _, err := Map(m, nil); err == nil {
		t.Fatal("expected error for NaN metric, got nil")
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestMapAppliesOverrideAfterClamp(t *testing.T) {
	m := model.Metrics{CTR: ptr(0.5)}
	tempo := 200
	override := &model.ControlsOverride{TempoBPM: &tempo}
	c, err := Map(m, override)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if c.TempoBPM != 180 {
		t.Errorf("TempoBPM = %d, want override clamped to 180", c.TempoBPM)
	}
}

func TestMapAppliesBarsOverrideUnclamped(t *testing.T) {
	m := model.Metrics{CTR: ptr(0.5)}
	bars := 32
	override := &model.ControlsOverride{Bars: &bars}
	c, err := Map(m, override)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if c.Bars != 32 {
		t.Errorf("Bars = %d, want 32", c.Bars)
	}
}

func TestMapDefaultsMissingMetricsToMidpoint(t *testing.T) {
	c1, err := Map(model.Metrics{}, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	c2, err := Map(model.Metrics{CTR: ptr(0.5), Impressions: ptr(0.5), Position: ptr(0.5), Clicks: ptr(0.5)}, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if c1 != c2 {
		t.Errorf("missing-metric Controls %+v != explicit-midpoint Controls %+v", c1, c2)
	}
}
