package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPitchClassSharpAndFlatSpellings(t *testing.T) {
	pc, err := PitchClass("F#")
	assert.NoError(t, err)
	assert.Equal(t, 6, pc)

	pc, err = PitchClass("Gb")
	assert.NoError(t, err)
	assert.Equal(t, 6, pc)
}

func TestPitchClassUnknownKey(t *testing.T) {
	_, err := PitchClass("H")
	assert.Error(t, err)
}

func TestRelativeMinorOfCMajorIsA(t *testing.T) {
	rel, err := RelativeMinor("C")
	assert.NoError(t, err)
	assert.Equal(t, "A", rel)
}

func TestQuantizeToScaleSnapsOutOfScaleNote(t *testing.T) {
	// C major scale, root pitch class 0: pitch 61 (C#4) should snap to 60 or 62.
	q := QuantizeToScale(61, 0, "major")
	assert.Contains(t, []int{60, 62}, q)
}

func TestQuantizeToScaleLeavesInScaleNoteUnchanged(t *testing.T) {
	q := QuantizeToScale(64, 0, "major") // E, in C major
	assert.Equal(t, 64, q)
}

func TestQuantizeToScaleFallsBackToMajorForUnknownScale(t *testing.T) {
	q := QuantizeToScale(64, 0, "not-a-real-scale")
	assert.Equal(t, 64, q)
}

func TestNoteNameMiddleC(t *testing.T) {
	assert.Equal(t, "c-1", NoteName(0))
	assert.Equal(t, "c-4", NoteName(60))
	assert.Equal(t, "c#4", NoteName(61))
}

func TestNoteNameOutOfRange(t *testing.T) {
	assert.Equal(t, "---", NoteName(-1))
	assert.Equal(t, "---", NoteName(128))
}

func TestChordIntervalsQualities(t *testing.T) {
	assert.Equal(t, []int{0, 4, 7}, ChordIntervals("maj"))
	assert.Equal(t, []int{0, 3, 7}, ChordIntervals("min"))
	assert.Equal(t, []int{0, 3, 6}, ChordIntervals("dim"))
}
