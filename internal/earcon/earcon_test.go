package earcon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/sonifycore/internal/model"
)

func testPalette() model.Palette {
	return model.Palette{
		Slug: "test", Key: "C", Mode: "major",
		EarconBank: map[string]string{
			"volatility_spike": "volatility_spike",
			"momentum_up":      "momentum_up",
			"momentum_down":    "momentum_down",
			"section_start":    "section_start",
		},
	}
}

func TestDeriveFromPlanEmitsOnLabelTransitionsOnly(t *testing.T) {
	plan := model.SongPlan{
		Sections: []model.Section{
			{StartBar: 0, LengthBars: 4, Label: model.Neutral, Tempo: 120},
			{StartBar: 4, LengthBars: 4, Label: model.VolatileSpike, Tempo: 120},
			{StartBar: 8, LengthBars: 4, Label: model.VolatileSpike, Tempo: 120}, // same label, no repeat emission
			{StartBar: 12, LengthBars: 4, Label: model.MomentumPos, Tempo: 120},
		},
	}
	events := DeriveFromPlan(plan, 2.0)
	require.Len(t, events, 2)
	assert.Equal(t, "volatility_spike", events[0].Kind)
	assert.Equal(t, "momentum_up", events[1].Kind)
}

func TestDeriveFromPlanFirstSectionNeverEmits(t *testing.T) {
	plan := model.SongPlan{
		Sections: []model.Section{
			{StartBar: 0, LengthBars: 4, Label: model.VolatileSpike, Tempo: 120},
		},
	}
	assert.Empty(t, DeriveFromPlan(plan, 2.0))
}

func TestScheduleSnapsToSixteenthNoteGrid(t *testing.T) {
	plan := model.SongPlan{Sections: []model.Section{{StartBar: 0, LengthBars: 8, Tempo: 120}}}
	events := []Event{{TimeSec: 0.05, Kind: "section_start", Intensity: 1.0}}
	out := Schedule(events, plan, testPalette())
	require.Len(t, out, 1)
	// grid16 should be a multiple of 0.25 beats
	assert.InDelta(t, 0, out[0].TimeBeats-float64(int(out[0].TimeBeats*4))/4, 1e-9)
}

func TestScheduleAppliesMinVelocityFloor(t *testing.T) {
	plan := model.SongPlan{Sections: []model.Section{{StartBar: 0, LengthBars: 8, Tempo: 120}}}
	events := []Event{{TimeSec: 0, Kind: "momentum_up", Intensity: 0.01}}
	out := Schedule(events, plan, testPalette())
	require.Len(t, out, 1)
	assert.GreaterOrEqual(t, out[0].Velocity, minVelocity)
}

func TestScheduleCollapsesSameSlotKeepingHigherIntensity(t *testing.T) {
	plan := model.SongPlan{Sections: []model.Section{{StartBar: 0, LengthBars: 8, Tempo: 120}}}
	events := []Event{
		{TimeSec: 0, Kind: "momentum_up", Intensity: 0.5},
		{TimeSec: 0, Kind: "momentum_down", Intensity: 0.9},
	}
	out := Schedule(events, plan, testPalette())
	require.Len(t, out, 1)
	assert.Equal(t, "momentum_down", out[0].Kind)
}

func TestScheduleSkipsUnknownEarconID(t *testing.T) {
	plan := model.SongPlan{Sections: []model.Section{{StartBar: 0, LengthBars: 8, Tempo: 120}}}
	events := []Event{{TimeSec: 0, Kind: "no-such-kind", Intensity: 1.0}}
	out := Schedule(events, plan, testPalette())
	assert.Empty(t, out)
}

func TestScheduleResultsAreOrderedByTimeBeats(t *testing.T) {
	plan := model.SongPlan{Sections: []model.Section{{StartBar: 0, LengthBars: 8, Tempo: 120}}}
	events := []Event{
		{TimeSec: 1.0, Kind: "section_start", Intensity: 1.0},
		{TimeSec: 0.0, Kind: "momentum_up", Intensity: 1.0},
	}
	out := Schedule(events, plan, testPalette())
	require.Len(t, out, 2)
	assert.LessOrEqual(t, out[0].TimeBeats, out[1].TimeBeats)
}

func TestBeatAndTempoAtWalksSections(t *testing.T) {
	plan := model.SongPlan{
		Sections: []model.Section{
			{StartBar: 0, LengthBars: 4, Tempo: 120},
			{StartBar: 4, LengthBars: 4, Tempo: 60},
		},
	}
	// first section lasts 4 bars * 4 beats/bar * (60/120)s/beat = 8s.
	beat, tempo := beatAndTempoAt(9.0, plan)
	assert.Equal(t, 60, tempo)
	assert.Greater(t, beat, 16.0) // into the second section, which starts at bar 4 = beat 16
}
