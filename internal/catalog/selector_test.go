package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/sonifycore/internal/model"
)

func sections(labels ...model.Label) []model.Section {
	out := make([]model.Section, len(labels))
	for i, l := range labels {
		out[i] = model.Section{StartBar: i * 4, LengthBars: 4, Label: l}
	}
	return out
}

func TestSelectForSectionsPicksMatchingLabel(t *testing.T) {
	cat := Builtin()
	secs := sections(model.MomentumPos)
	sel := SelectForSections(secs, 120, cat, "fp-a", "C")
	require.Len(t, sel, 1)
	assert.Equal(t, model.MomentumPos, sel[0].Motif.Label)
	assert.Equal(t, SourceCatalog, sel[0].Source)
}

func TestSelectForSectionsFallsBackToNeutralThenSynthetic(t *testing.T) {
	emptyForLabel := model.MotifCatalog{
		Version: "t1",
		Motifs:  []model.Motif{{ID: "n1", Label: model.Neutral, Bars: 4}},
	}
	secs := sections(model.MomentumPos) // no MOMENTUM_POS motif; NEUTRAL exists
	sel := SelectForSections(secs, 120, emptyForLabel, "fp-b", "C")
	require.Len(t, sel, 1)
	assert.Equal(t, SourceFallback, sel[0].Source)
	assert.Equal(t, "n1", sel[0].MotifID)

	fullyEmpty := model.MotifCatalog{Version: "t2"}
	sel2 := SelectForSections(secs, 120, fullyEmpty, "fp-c", "C")
	require.Len(t, sel2, 1)
	assert.Equal(t, SourceSynthetic, sel2[0].Source)
}

func TestSelectForSectionsAvoidsImmediateRepeatWhenPoolHasChoices(t *testing.T) {
	cat := model.MotifCatalog{
		Version: "t3",
		Motifs: []model.Motif{
			{ID: "neutral-a", Label: model.Neutral, Bars: 4},
			{ID: "neutral-b", Label: model.Neutral, Bars: 4},
		},
	}
	secs := sections(model.Neutral, model.Neutral, model.Neutral)
	sel := SelectForSections(secs, 100, cat, "fp-d", "C")
	require.Len(t, sel, 3)
	for i := 1; i < len(sel); i++ {
		assert.NotEqual(t, sel[i-1].MotifID, sel[i].MotifID, "section %d repeated the previous motif", i)
	}
}

func TestSelectForSectionsAllowsRepeatWithSingleCandidate(t *testing.T) {
	cat := model.MotifCatalog{
		Version: "t4",
		Motifs:  []model.Motif{{ID: "only-one", Label: model.Neutral, Bars: 4}},
	}
	secs := sections(model.Neutral, model.Neutral)
	sel := SelectForSections(secs, 100, cat, "fp-e", "C")
	require.Len(t, sel, 2)
	assert.Equal(t, "only-one", sel[0].MotifID)
	assert.Equal(t, "only-one", sel[1].MotifID)
}

func TestSelectForSectionsIsDeterministicForSameFingerprint(t *testing.T) {
	cat := Builtin()
	secs := sections(model.Neutral, model.MomentumPos, model.MomentumNeg)
	a := SelectForSections(secs, 120, cat, "same-fp", "C")
	b := SelectForSections(secs, 120, cat, "same-fp", "C")
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].MotifID, b[i].MotifID)
	}
}

func TestSyntheticMotifIsQuantizedAndHasRequestedLength(t *testing.T) {
	m := syntheticMotif(model.MomentumPos, 2, "D")
	assert.Equal(t, 2, m.Bars)
	assert.Equal(t, model.MomentumPos, m.Label)
	assert.NotEmpty(t, m.Events)
}

func TestSyntheticMotifClampsBarsToAtLeastOne(t *testing.T) {
	m := syntheticMotif(model.Neutral, 0, "C")
	assert.Equal(t, 1, m.Bars)
}
