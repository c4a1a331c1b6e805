package midiassembler

import (
	"strings"

	"github.com/schollz/sonifycore/internal/model"
	"github.com/schollz/sonifycore/internal/theory"
)

// romanDegree maps a roman-numeral scale degree (case distinguishes quality:
// upper = major, lower = minor) to a 0-based scale-degree index and an
// explicit quality override, covering the templates in
// internal/arranger.chordTemplates.
var romanDegree = map[string]struct {
	degree  int
	quality string
}{
	"I": {0, "maj"}, "i": {0, "min"},
	"II": {1, "maj"}, "ii": {1, "min"},
	"III": {2, "maj"}, "iii": {2, "min"},
	"IV": {3, "maj"}, "iv": {3, "min"},
	"V": {4, "maj"}, "v": {4, "min"},
	"VI": {5, "maj"}, "vi": {5, "min"},
	"VII": {6, "maj"}, "vii": {6, "min"},
	"bVII": {6, "maj"}, "bVI": {5, "maj"},
}

// majorScaleSteps are semitone offsets of the 7 diatonic degrees of a major
// scale, used as the reference for roman-numeral degree lookups regardless
// of the section's actual mode (borrowed/modal chords are expressed via the
// quality field, not by re-deriving the scale).
var majorScaleSteps = []int{0, 2, 4, 5, 7, 9, 11}

// ChordPitches resolves a ChordSymbol against a section's key and mode into
// a root-position triad of absolute MIDI pitches centered near octave 4
// (root in [48,59]). Borrowed degrees (bVII, bVI) are flattened off the
// major-scale reference and then snapped back onto the section's actual
// mode, so a borrowed chord voices tones that belong to the mode in use
// rather than a raw chromatic flat.
func ChordPitches(sym model.ChordSymbol, key string, mode string) []int {
	s := string(sym)
	flat := strings.HasPrefix(s, "b")
	info, ok := romanDegree[s]
	if !ok {
		info = romanDegree["I"]
	}
	rootPC, err := theory.PitchClass(key)
	if err != nil {
		rootPC = 0
	}
	degreeOffset := majorScaleSteps[info.degree%7]
	if flat {
		degreeOffset--
	}
	root := 48 + ((rootPC+degreeOffset)%12+12)%12
	if flat {
		root = theory.QuantizeToScale(root, rootPC, mode)
	}
	intervals := theory.ChordIntervals(info.quality)
	pitches := make([]int, len(intervals))
	for i, iv := range intervals {
		pitches[i] = root + iv
	}
	return pitches
}
