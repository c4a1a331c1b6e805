package midiassembler

import (
	"github.com/schollz/sonifycore/internal/model"
)

const ticksPerBar = 4 * PPQ

// buildMetaTrack emits the track name, time signature, program changes (on
// their respective channels, so they land on track 0 alongside the tempo
// map the way a single "housekeeping" track typically carries them), the
// initial filter/reverb CC pair, and the tempo map with section-start jumps
// ramped over the first half-bar of the new section.
func buildMetaTrack(in Input) []timedEvent {
	var events []timedEvent

	name := "palette=" + in.PaletteSlug + ";version=" + in.CatalogVersion + ";fingerprint=" + fingerprintHexPrefix16(in.FingerprintHex)
	events = append(events, timedEvent{tick: 0, priority: prioMeta, msg: metaTrackName(name)})
	events = append(events, timedEvent{tick: 0, priority: prioMeta, msg: metaTimeSignature(4, 4)})

	events = append(events, timedEvent{tick: 0, priority: prioControlChange, msg: controlChange(chanLead, 74, clampCC(in.Controls.FilterCC74))})
	events = append(events, timedEvent{tick: 0, priority: prioControlChange, msg: controlChange(chanLead, 91, clampCC(in.Controls.ReverbCC91))})

	prevTempo := 0
	for i, sec := range in.Plan.Sections {
		startTick := barTick(sec.StartBar)
		if i == 0 {
			events = append(events, timedEvent{tick: startTick, priority: prioMeta, msg: metaTempo(sec.Tempo)})
			prevTempo = sec.Tempo
			continue
		}
		if sec.Tempo == prevTempo {
			continue
		}
		events = append(events, rampTempo(startTick, prevTempo, sec.Tempo)...)
		prevTempo = sec.Tempo
	}

	var prevLead, prevPad, prevBass = -1, -1, -1
	for _, sec := range in.Plan.Sections {
		startTick := barTick(sec.StartBar)
		if in.Instruments.Lead != prevLead {
			events = append(events, timedEvent{tick: startTick, priority: prioProgramChange, msg: programChange(chanLead, in.Instruments.Lead)})
			prevLead = in.Instruments.Lead
		}
		if in.Instruments.Pad != prevPad {
			events = append(events, timedEvent{tick: startTick, priority: prioProgramChange, msg: programChange(chanPad, in.Instruments.Pad)})
			prevPad = in.Instruments.Pad
		}
		if in.Instruments.Bass != prevBass {
			events = append(events, timedEvent{tick: startTick, priority: prioProgramChange, msg: programChange(chanBass, in.Instruments.Bass)})
			prevBass = in.Instruments.Bass
		}
		events = append(events, timedEvent{tick: startTick, priority: prioControlChange, msg: controlChange(chanLead, 11, expressionFor(sec.Dynamics))})
	}

	return events
}

// rampTempo synthesizes up to 8 intermediate Set Tempo events linearly
// interpolating from-to over the first half-bar of the section starting at
// startTick.
func rampTempo(startTick int64, from, to int) []timedEvent {
	const steps = 8
	halfBar := int64(ticksPerBar / 2)
	var out []timedEvent
	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		tick := startTick + int64(frac*float64(halfBar))
		bpm := from + int((float64(to-from))*frac+0.5)
		out = append(out, timedEvent{tick: tick, priority: prioMeta, msg: metaTempo(bpm)})
	}
	return out
}

func expressionFor(d model.Dynamics) int {
	switch d {
	case model.DynPP:
		return 40
	case model.DynP:
		return 60
	case model.DynMF:
		return 85
	case model.DynF:
		return 105
	case model.DynFF:
		return 120
	}
	return 85
}

// buildLeadTrack lays the selected motif for each section into absolute
// ticks, looping short motifs and truncating long ones to fit the
// section's bar length, with the uniform transpose applied and pitches
// folded into [21,108].
func buildLeadTrack(in Input) []timedEvent {
	var events []timedEvent
	for i, sec := range in.Plan.Sections {
		if i >= len(in.Selections) {
			continue
		}
		motif := in.Selections[i].Motif
		sectionTicks := int64(sec.LengthBars) * ticksPerBar
		sectionStart := barTick(sec.StartBar)
		motifBeats := float64(motif.Bars) * 4
		if motifBeats <= 0 {
			continue
		}
		motifTicks := beatTick(motifBeats)

		offset := int64(0)
		for offset < sectionTicks {
			for _, ev := range motif.Events {
				evTick := offset + beatTick(ev.T)
				if evTick >= sectionTicks {
					continue
				}
				pitch := foldToRange(ev.Pitch + in.Controls.Transpose)
				vel := clampVelocity(ev.Vel)
				dur := beatTick(ev.Dur)
				onTick := sectionStart + evTick
				offTick := sectionStart + evTick + dur
				if offTick > sectionStart+sectionTicks {
					offTick = sectionStart + sectionTicks
				}
				events = append(events, timedEvent{tick: onTick, priority: prioNoteOn, msg: noteOn(chanLead, pitch, vel)})
				events = append(events, timedEvent{tick: offTick, priority: prioNoteOff, msg: noteOff(chanLead, pitch)})
			}
			offset += motifTicks
		}
	}
	return events
}

// buildPadTrack sustains each bar's chord for its full duration.
func buildPadTrack(in Input) []timedEvent {
	var events []timedEvent
	for _, sec := range in.Plan.Sections {
		for barIdx := 0; barIdx < sec.LengthBars; barIdx++ {
			if barIdx >= len(sec.ChordGrid) {
				break
			}
			sym := sec.ChordGrid[barIdx]
			pitches := ChordPitches(sym, sec.Key, sec.Mode)
			onTick := barTick(sec.StartBar + barIdx)
			offTick := onTick + ticksPerBar
			for _, p := range pitches {
				pitch := foldToRange(p + in.Controls.Transpose)
				events = append(events, timedEvent{tick: onTick, priority: prioNoteOn, msg: noteOn(chanPad, pitch, clampVelocity(in.Controls.Velocity-10))})
				events = append(events, timedEvent{tick: offTick, priority: prioNoteOff, msg: noteOff(chanPad, pitch)})
			}
		}
	}
	return events
}

// buildBassTrack plays the chord root on beat 0 and the fifth on beat 2 of
// every bar, two octaves below the chord voicing (roots at MIDI 24-35) and
// transposed by clamp(transpose,-12,0) — a bass line that only ever goes
// down keeps it from climbing into the lead's register on high-transpose
// requests.
func buildBassTrack(in Input) []timedEvent {
	var events []timedEvent
	bassTranspose := clampBassTranspose(in.Controls.Transpose)
	for _, sec := range in.Plan.Sections {
		for barIdx := 0; barIdx < sec.LengthBars; barIdx++ {
			if barIdx >= len(sec.ChordGrid) {
				break
			}
			sym := sec.ChordGrid[barIdx]
			pitches := ChordPitches(sym, sec.Key, sec.Mode)
			if len(pitches) == 0 {
				continue
			}
			root := pitches[0] - 24
			fifth := root
			if len(pitches) >= 3 {
				fifth = pitches[2] - 24
			}
			barStart := barTick(sec.StartBar + barIdx)
			halfBar := int64(ticksPerBar / 2)

			rp := foldToRange(root + bassTranspose)
			events = append(events, timedEvent{tick: barStart, priority: prioNoteOn, msg: noteOn(chanBass, rp, clampVelocity(in.Controls.Velocity))})
			events = append(events, timedEvent{tick: barStart + halfBar, priority: prioNoteOff, msg: noteOff(chanBass, rp)})

			fp := foldToRange(fifth + bassTranspose)
			events = append(events, timedEvent{tick: barStart + halfBar, priority: prioNoteOn, msg: noteOn(chanBass, fp, clampVelocity(in.Controls.Velocity-5))})
			events = append(events, timedEvent{tick: barStart + ticksPerBar, priority: prioNoteOff, msg: noteOff(chanBass, fp)})
		}
	}
	return events
}

func clampBassTranspose(transpose int) int {
	if transpose > 0 {
		return 0
	}
	if transpose < -12 {
		return -12
	}
	return transpose
}

// buildEarconTrack converts the engine's beat-relative emissions to ticks on
// a dedicated track, each on its own emission's channel (drum or melodic).
func buildEarconTrack(in Input) []timedEvent {
	var events []timedEvent
	for _, e := range in.Earcons {
		onTick := beatTick(e.TimeBeats)
		offTick := onTick + beatTick(e.DurBeats)
		for _, p := range e.Pitches {
			events = append(events, timedEvent{tick: onTick, priority: prioNoteOn, msg: noteOn(e.Channel, p, clampVelocity(e.Velocity))})
			events = append(events, timedEvent{tick: offTick, priority: prioNoteOff, msg: noteOff(e.Channel, p)})
		}
	}
	return events
}

func clampCC(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
