// Package theory holds scale/pitch-class tables and a note-name renderer,
// used to constrain synthesized filler motifs and borrowed-chord voicings
// to the active palette mode.
package theory

import (
	"fmt"
	"strings"
)

// Scale is a named set of semitone offsets within an octave.
type Scale struct {
	Name  string
	Notes []int
}

// Scales is the set of interval tables available for quantization and
// key/mode selection.
var Scales = map[string]Scale{
	"major": {
		Name:  "Major",
		Notes: []int{0, 2, 4, 5, 7, 9, 11},
	},
	"minor": {
		Name:  "Minor",
		Notes: []int{0, 2, 3, 5, 7, 8, 10},
	},
	"dorian": {
		Name:  "Dorian",
		Notes: []int{0, 2, 3, 5, 7, 9, 10},
	},
	"lydian": {
		Name:  "Lydian",
		Notes: []int{0, 2, 4, 6, 7, 9, 11},
	},
	"mixolydian": {
		Name:  "Mixolydian",
		Notes: []int{0, 2, 4, 5, 7, 9, 10},
	},
	"pentatonic": {
		Name:  "Pentatonic",
		Notes: []int{0, 2, 4, 7, 9},
	},
	"blues": {
		Name:  "Blues",
		Notes: []int{0, 3, 5, 6, 7, 10},
	},
	"chromatic": {
		Name:  "Chromatic",
		Notes: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	},
}

// NoteNames are the twelve pitch classes, sharps preferred.
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClass returns the 0-11 pitch class for a key name like "C", "F#",
// "Bb" (flats normalized to the equivalent sharp spelling).
func PitchClass(key string) (int, error) {
	flats := map[string]string{
		"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	}
	k := key
	if sharp, ok := flats[key]; ok {
		k = sharp
	}
	for i, n := range NoteNames {
		if strings.EqualFold(n, k) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("theory: unknown key %q", key)
}

// RelativeMinor returns the key name a major key's relative minor sits at
// (down a minor third, i.e. -3 semitones, wrapped into the octave).
func RelativeMinor(majorKey string) (string, error) {
	pc, err := PitchClass(majorKey)
	if err != nil {
		return "", err
	}
	return NoteNames[((pc-3)%12+12)%12], nil
}

// QuantizeToScale nudges a MIDI pitch to the nearest note in the named
// scale rooted at rootPitchClass (0-11), preferring the lower neighbor on
// ties the way a filler-motif generator that must stay inside range would.
func QuantizeToScale(pitch int, rootPitchClass int, scaleName string) int {
	scale, ok := Scales[scaleName]
	if !ok {
		scale = Scales["major"]
	}
	pc := ((pitch-rootPitchClass)%12 + 12) % 12
	best := scale.Notes[0]
	bestDist := 99
	for _, n := range scale.Notes {
		d := pc - n
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	// The root an octave up can be nearer than any note below it.
	if d := 12 - pc; d < bestDist {
		best = 12
		bestDist = d
	}
	return pitch - pc + best
}

// NoteName converts a MIDI note number (0-127) to a note name like "c-1",
// "c#4".
func NoteName(midiNote int) string {
	if midiNote < 0 || midiNote > 127 {
		return "---"
	}
	names := []string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}
	octave := (midiNote / 12) - 1
	name := names[midiNote%12]
	if strings.Contains(name, "#") {
		if octave < 0 {
			return fmt.Sprintf("%s%d", name, -octave)
		}
		return fmt.Sprintf("%s%d", name, octave)
	}
	if octave < 0 {
		return fmt.Sprintf("%s-%d", name, -octave)
	}
	return fmt.Sprintf("%s-%d", name, octave)
}

// ChordIntervals returns the semitone offsets (from a root) of a major,
// minor or diminished-ish triad named by a roman-numeral-style quality tag:
// "maj", "min", "dim".
func ChordIntervals(quality string) []int {
	switch quality {
	case "min":
		return []int{0, 3, 7}
	case "dim":
		return []int{0, 3, 6}
	default:
		return []int{0, 4, 7}
	}
}
