// Package midiassembler implements the MIDI Assembler: SongPlan + selected
// motifs + earcon emissions + Controls become a Standard MIDI File
// (format 1, PPQ 480) byte stream, built with gitlab.com/gomidi/midi/v2
// and its smf sub-package.
package midiassembler

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/schollz/sonifycore/internal/catalog"
	"github.com/schollz/sonifycore/internal/model"
)

// PPQ is the ticks-per-quarter-note resolution the assembler always emits.
const PPQ = 480

const (
	trackMeta   = 0
	trackLead   = 1
	trackPad    = 2
	trackBass   = 3
	trackEarcon = 4
)

const (
	chanLead = 0
	chanPad  = 1
	chanBass = 2
)

const minPitch = 21
const maxPitch = 108

// timedEvent orders same-tick events deterministically: no wall-clock
// timestamps are ever consulted, only (tick, priority), with insertion order
// breaking remaining ties.
type timedEvent struct {
	tick     int64
	priority int
	msg      midi.Message
}

const (
	prioMeta = iota
	prioProgramChange
	prioControlChange
	prioNoteOff
	prioNoteOn
)

// Input bundles everything the assembler needs.
type Input struct {
	Plan           model.SongPlan
	Selections     []catalog.Selection
	Earcons        []model.EarconEmission
	Controls       model.Controls
	PaletteSlug    string
	PaletteKey     string
	CatalogVersion string
	FingerprintHex string
	Instruments    model.Instruments
}

// Assemble builds the Standard MIDI File bytes for the given input. Given
// identical Input values, Assemble always produces byte-identical output:
// every randomized choice has already been made upstream (motif selection,
// synthesis), and event ordering here is purely tick/priority based.
func Assemble(in Input) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(PPQ)

	metaEvents := buildMetaTrack(in)
	leadEvents := buildLeadTrack(in)
	padEvents := buildPadTrack(in)
	bassEvents := buildBassTrack(in)
	earconEvents := buildEarconTrack(in)

	for _, evs := range [][]timedEvent{metaEvents, leadEvents, padEvents, bassEvents, earconEvents} {
		tr := toTrack(evs)
		s.Add(tr)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("midiassembler: encode SMF: %w", err)
	}

	log.Printf("[ASSEMBLER] assembled %d bytes for palette=%s version=%s fingerprint=%s",
		buf.Len(), in.PaletteSlug, in.CatalogVersion, in.FingerprintHex)

	return buf.Bytes(), nil
}

// toTrack sorts events by (tick, priority) for determinism, then converts
// absolute ticks to the delta-time encoding smf.Track requires.
func toTrack(events []timedEvent) smf.Track {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].priority < events[j].priority
	})

	var tr smf.Track
	var lastTick int64
	for _, e := range events {
		delta := uint32(e.tick - lastTick)
		tr.Add(delta, e.msg)
		lastTick = e.tick
	}
	tr.Close(0)
	return tr
}

func barTick(bar int) int64 {
	return int64(bar) * 4 * PPQ
}

func beatTick(beat float64) int64 {
	return int64(beat * float64(PPQ))
}

// foldToRange octave-folds a pitch into [minPitch,maxPitch].
func foldToRange(pitch int) int {
	for pitch < minPitch {
		pitch += 12
	}
	for pitch > maxPitch {
		pitch -= 12
	}
	return pitch
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}

func u8(v int) uint8 {
	return uint8(v)
}

func fingerprintHexPrefix16(fp string) string {
	if len(fp) >= 16 {
		return fp[:16]
	}
	padded := fp + hex.EncodeToString(make([]byte, 8))
	if len(padded) >= 16 {
		return padded[:16]
	}
	return padded
}
