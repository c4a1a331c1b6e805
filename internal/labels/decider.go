package labels

import (
	"log"
	"math"

	"github.com/schollz/sonifycore/internal/model"
)

// Predictor is the opaque learned-model interface. The feature-vector
// schema is fixed: five canonical metric values in a set order (see
// FeatureVector).
type Predictor interface {
	Predict(features []float64) (string, error)
}

// FeatureVector builds the provisional feature vector for a Predictor call:
// ctr, impressions, position, clicks, volatility_index, in that order, with
// missing metrics defaulted to 0.5 the same way Metrics.Get does.
func FeatureVector(m model.Metrics) []float64 {
	get := func(name string) float64 {
		v, _ := m.Get(name)
		return v
	}
	return []float64{
		get("ctr"), get("impressions"), get("position"), get("clicks"), get("volatility_index"),
	}
}

// Decider evaluates a RuleSet and, optionally, falls back to a learned model
// when rules resolve to NEUTRAL and ml override is allowed.
type Decider struct {
	Rules           RuleSet
	Predictor       Predictor
	AllowMLOverride bool
}

// Decide returns the primary label for a job. A ModelError from the
// predictor is logged and downgraded to the rules result, never surfaced as
// a failure.
func (d Decider) Decide(m model.Metrics) model.Label {
	label := d.Rules.Evaluate(m)
	if label != model.Neutral || !d.AllowMLOverride || d.Predictor == nil {
		return label
	}

	out, err := d.Predictor.Predict(FeatureVector(m))
	if err != nil {
		log.Printf("[LABELS] model error, falling back to rules result: %v", err)
		return label
	}
	predicted := model.Label(out)
	if !predicted.IsValid() {
		log.Printf("[LABELS] model returned unknown label %q, degrading to NEUTRAL", out)
		return model.Neutral
	}
	return predicted
}

// BandLabel derives a per-band label from a momentum score and the delta
// versus the previous band's score.
func BandLabel(score, prevScore float64, hasPrev bool) model.Label {
	// Spike takes priority: it is a stricter version of "|score| large" that
	// also requires a sharp jump, so it must be tested before the plain
	// momentum thresholds or a spike would always read as POS/NEG instead.
	if hasPrev && math.Abs(score) > 0.7 && math.Abs(score-prevScore) >= 0.6 {
		return model.VolatileSpike
	}
	switch {
	case score >= 0.4:
		return model.MomentumPos
	case score <= -0.4:
		return model.MomentumNeg
	}
	return model.Neutral
}
