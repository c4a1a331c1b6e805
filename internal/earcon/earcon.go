// Package earcon implements the Earcon Engine: discrete events (explicit,
// or derived from SongPlan transitions) become scheduled EarconEmissions
// layered on the arrangement.
package earcon

import (
	"log"
	"math"
	"sort"

	"github.com/schollz/sonifycore/internal/model"
)

// DrumChannel and MelodicChannel are the two reserved MIDI channels earcons
// schedule onto, 0-indexed.
const (
	DrumChannel    = 9
	MelodicChannel = 15
)

// minVelocity is the floor applied after intensity scaling so earcons stay
// audible.
const minVelocity = 30

// Event is a discrete input event: a kind, a time in seconds, and an
// intensity in [0,1].
type Event struct {
	TimeSec   float64
	Kind      string
	Intensity float64
}

// pattern is a palette-defined earcon asset: a short sequence of relative
// note offsets from a base pitch, a nominal velocity, and whether it is
// percussive (schedules on the drum channel) or melodic.
type pattern struct {
	Instrument int
	BasePitch  int
	Offsets    []int
	DurBeats   float64
	Velocity   int
	Percussive bool
}

// builtinPatterns resolves palette earcon_bank ids to concrete patterns.
// Palettes reference these ids from their earcon_bank map.
var builtinPatterns = map[string]pattern{
	"volatility_spike": {Instrument: 0, BasePitch: 76, Offsets: []int{0, -2, 0}, DurBeats: 0.25, Velocity: 110, Percussive: true},
	"momentum_up":      {Instrument: 0, BasePitch: 60, Offsets: []int{0, 4, 7}, DurBeats: 0.5, Velocity: 90, Percussive: false},
	"momentum_down":    {Instrument: 0, BasePitch: 60, Offsets: []int{0, -3, -7}, DurBeats: 0.5, Velocity: 90, Percussive: false},
	"section_start":    {Instrument: 0, BasePitch: 84, Offsets: []int{0}, DurBeats: 0.125, Velocity: 70, Percussive: true},
}

// DeriveFromPlan synthesizes Events for transitions a SongPlan implies: at
// the section boundary, a transition into VOLATILE_SPIKE emits a
// volatility_spike earcon, into MOMENTUM_POS a momentum_up earcon, and into
// MOMENTUM_NEG a momentum_down earcon.
func DeriveFromPlan(plan model.SongPlan, barDurSec float64) []Event {
	var events []Event
	var prevLabel model.Label
	for i, s := range plan.Sections {
		boundarySec := float64(s.StartBar) * barDurSec
		if i > 0 && s.Label == model.VolatileSpike && prevLabel != model.VolatileSpike {
			events = append(events, Event{TimeSec: boundarySec, Kind: "volatility_spike", Intensity: 1.0})
		}
		if i > 0 && s.Label == model.MomentumPos && prevLabel != model.MomentumPos {
			events = append(events, Event{TimeSec: boundarySec, Kind: "momentum_up", Intensity: 0.7})
		}
		if i > 0 && s.Label == model.MomentumNeg && prevLabel != model.MomentumNeg {
			events = append(events, Event{TimeSec: boundarySec, Kind: "momentum_down", Intensity: 0.7})
		}
		prevLabel = s.Label
	}
	return events
}

// Schedule resolves events against the palette's earcon bank, snaps each to
// the nearest 16th-note grid of the tempo active at that time, and collapses
// same-slot collisions keeping the higher intensity. Ties keep the kind whose
// earcon_bank key sorts first; the bank is a map, so the order in which the
// palette defines its entries is not kept and not used.
func Schedule(events []Event, plan model.SongPlan, p model.Palette) []model.EarconEmission {
	type scheduled struct {
		model.EarconEmission
		order     int
		intensity float64
	}
	slots := map[int]scheduled{}
	order := 0

	bankKinds := make([]string, 0, len(p.EarconBank))
	for id := range p.EarconBank {
		bankKinds = append(bankKinds, id)
	}
	sort.Strings(bankKinds)
	paletteOrder := make(map[string]int, len(bankKinds))
	for i, id := range bankKinds {
		paletteOrder[id] = i
	}

	for _, ev := range events {
		earconID, ok := p.EarconBank[ev.Kind]
		if !ok {
			earconID = ev.Kind
		}
		pat, ok := builtinPatterns[earconID]
		if !ok {
			log.Printf("[EARCON] no pattern for earcon id %q (kind %q), skipping", earconID, ev.Kind)
			continue
		}

		beat, tempo := beatAndTempoAt(ev.TimeSec, plan)
		grid16 := math.Round(beat*4) / 4
		vel := int(math.Round(float64(pat.Velocity) * ev.Intensity))
		if vel < minVelocity {
			vel = minVelocity
		}

		chan_ := MelodicChannel
		if pat.Percussive {
			chan_ = DrumChannel
		}

		pitches := make([]int, len(pat.Offsets))
		for j, off := range pat.Offsets {
			pitches[j] = pat.BasePitch + off
		}

		slotKey := int(math.Round(grid16 * 4)) // quantized to 16th-note units
		candidate := scheduled{
			EarconEmission: model.EarconEmission{
				TimeBeats:  grid16,
				Kind:       ev.Kind,
				Instrument: pat.Instrument,
				Channel:    chan_,
				Pitches:    pitches,
				DurBeats:   pat.DurBeats,
				Velocity:   vel,
			},
			order:     order,
			intensity: ev.Intensity,
		}
		order++
		_ = tempo

		existing, exists := slots[slotKey]
		if !exists {
			slots[slotKey] = candidate
			continue
		}
		if candidate.intensity > existing.intensity {
			slots[slotKey] = candidate
		} else if candidate.intensity == existing.intensity {
			// Keep whichever kind's earcon_bank key sorts first; fall back
			// to first-scheduled on a tie.
			ei := paletteOrder[existing.Kind]
			ci := paletteOrder[ev.Kind]
			if ci < ei {
				slots[slotKey] = candidate
			}
		}
	}

	result := make([]scheduled, 0, len(slots))
	for _, s := range slots {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimeBeats != result[j].TimeBeats {
			return result[i].TimeBeats < result[j].TimeBeats
		}
		return result[i].order < result[j].order
	})

	out := make([]model.EarconEmission, len(result))
	for i, s := range result {
		out[i] = s.EarconEmission
	}
	return out
}

// beatAndTempoAt returns the beat position (4 beats/bar) and active tempo
// for a time in seconds, walking the plan's sections in order.
func beatAndTempoAt(timeSec float64, plan model.SongPlan) (beat float64, tempo int) {
	elapsed := 0.0
	for i, s := range plan.Sections {
		secPerBeat := 60.0 / float64(s.Tempo)
		sectionDur := float64(s.LengthBars) * 4 * secPerBeat
		isLast := i == len(plan.Sections)-1
		if timeSec <= elapsed+sectionDur || isLast {
			into := timeSec - elapsed
			return float64(s.StartBar)*4 + into/secPerBeat, s.Tempo
		}
		elapsed += sectionDur
	}
	return 0, 120
}
