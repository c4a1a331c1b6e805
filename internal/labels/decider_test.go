package labels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/sonifycore/internal/model"
)

type stubPredictor struct {
	label string
	err   error
}

func (s stubPredictor) Predict(features []float64) (string, error) {
	return s.label, s.err
}

func TestFeatureVectorOrderAndDefaults(t *testing.T) {
	m := model.Metrics{CTR: ptr(0.8)}
	fv := FeatureVector(m)
	assert.Len(t, fv, 5)
	assert.Equal(t, 0.8, fv[0])
	assert.Equal(t, 0.5, fv[1]) // impressions defaults to midpoint
}

func TestDecideReturnsRulesResultWhenNotNeutral(t *testing.T) {
	d := Decider{Rules: DefaultRuleSet(), Predictor: stubPredictor{label: "MOMENTUM_NEG"}, AllowMLOverride: true}
	lbl := d.Decide(model.Metrics{CTR: ptr(0.9), Position: ptr(0.9)})
	assert.Equal(t, model.MomentumPos, lbl) // rules already matched, predictor never consulted
}

func TestDecideFallsBackToPredictorOnNeutral(t *testing.T) {
	d := Decider{Rules: DefaultRuleSet(), Predictor: stubPredictor{label: "MOMENTUM_NEG"}, AllowMLOverride: true}
	lbl := d.Decide(model.Metrics{})
	assert.Equal(t, model.MomentumNeg, lbl)
}

func TestDecideIgnoresPredictorWhenOverrideDisabled(t *testing.T) {
	d := Decider{Rules: DefaultRuleSet(), Predictor: stubPredictor{label: "MOMENTUM_NEG"}, AllowMLOverride: false}
	lbl := d.Decide(model.Metrics{})
	assert.Equal(t, model.Neutral, lbl)
}

func TestDecideDowngradesModelErrorToRulesResult(t *testing.T) {
	d := Decider{Rules: DefaultRuleSet(), Predictor: stubPredictor{err: errors.New("model unavailable")}, AllowMLOverride: true}
	lbl := d.Decide(model.Metrics{})
	assert.Equal(t, model.Neutral, lbl)
}

func TestDecideDowngradesUnknownPredictedLabelToNeutral(t *testing.T) {
	d := Decider{Rules: DefaultRuleSet(), Predictor: stubPredictor{label: "NOT_A_LABEL"}, AllowMLOverride: true}
	lbl := d.Decide(model.Metrics{})
	assert.Equal(t, model.Neutral, lbl)
}

func TestBandLabelSpikeTakesPriorityOverMomentum(t *testing.T) {
	lbl := BandLabel(0.9, 0.2, true)
	assert.Equal(t, model.VolatileSpike, lbl)
}

func TestBandLabelPlainMomentumThresholds(t *testing.T) {
	assert.Equal(t, model.MomentumPos, BandLabel(0.5, 0, true))
	assert.Equal(t, model.MomentumNeg, BandLabel(-0.5, 0, true))
	assert.Equal(t, model.Neutral, BandLabel(0.1, 0, true))
}

func TestBandLabelNoPreviousScoreNeverSpikes(t *testing.T) {
	lbl := BandLabel(0.95, 0, false)
	assert.NotEqual(t, model.VolatileSpike, lbl)
	assert.Equal(t, model.MomentumPos, lbl)
}
