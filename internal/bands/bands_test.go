package bands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/sonifycore/internal/model"
)

func TestExtractProducesNMinus1ContiguousBands(t *testing.T) {
	series := model.Series{0.1, 0.2, 0.3, 0.4, 0.5}
	out := Extract(series, 10.0)
	assert.Len(t, out, 4)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, out[i-1].T1, out[i].T0, "band %d should start exactly where band %d ends", i, i-1)
	}
	assert.Equal(t, 0.0, out[0].T0)
	assert.Equal(t, 10.0, out[len(out)-1].T1)
}

func TestExtractShortSeriesReturnsNil(t *testing.T) {
	assert.Nil(t, Extract(model.Series{0.5}, 10.0))
	assert.Nil(t, Extract(model.Series{}, 10.0))
}

func TestExtractLabelsRisingSeriesMomentumPos(t *testing.T) {
	series := model.Series{0.1, 0.9}
	out := Extract(series, 2.0)
	assert.Equal(t, model.MomentumPos, out[0].Label)
	assert.InDelta(t, 1.0, out[0].Score, 1e-9) // clamp(2*(0.9-0.1),-1,1) = clamp(1.6,-1,1) = 1
}

func TestExtractLabelsFallingSeriesMomentumNeg(t *testing.T) {
	series := model.Series{0.9, 0.1}
	out := Extract(series, 2.0)
	assert.Equal(t, model.MomentumNeg, out[0].Label)
}

func TestExtractFlatSeriesNeutral(t *testing.T) {
	series := model.Series{0.5, 0.5, 0.5}
	out := Extract(series, 4.0)
	for _, b := range out {
		assert.Equal(t, model.Neutral, b.Label)
		assert.Equal(t, 0.0, b.Score)
	}
}

func TestExtractScoreClampedToUnitRange(t *testing.T) {
	series := model.Series{0.0, 1.0}
	out := Extract(series, 2.0)
	assert.LessOrEqual(t, out[0].Score, 1.0)
	assert.GreaterOrEqual(t, out[0].Score, -1.0)
}
