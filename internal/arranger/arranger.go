// Package arranger turns MomentumBands, Controls and a Palette into a
// sectioned SongPlan with key/mode per section, tempo ramps, a chord grid,
// and dynamics.
package arranger

import (
	"log"
	"math"

	"github.com/schollz/sonifycore/internal/model"
	"github.com/schollz/sonifycore/internal/theory"
)

const maxBars = 64
const minBars = 8
const barsPerSection = 2 // a band shorter than this many bars is merged into its neighbor

// Plan builds a SongPlan from momentum bands (may be empty), controls, a
// palette, and the request's primary label (used verbatim for the single
// section produced when there are no bands to derive one from).
func Plan(bandsIn []model.MomentumBand, c model.Controls, p model.Palette, totalDurationSec float64, primaryLabel model.Label) model.SongPlan {
	totalBars := totalBarsFor(c, totalDurationSec)

	if len(bandsIn) == 0 {
		return singleSectionPlan(totalBars, c, p, primaryLabel)
	}

	sections := sectionsFromBands(bandsIn, totalBars, c, p)
	applyKeysAndCadences(sections, p)
	applyTempoRamps(sections, c, p, bandsIn, totalDurationSec, totalBars)
	applyChordGrids(sections, p)
	applyDynamics(sections, bandsIn, totalDurationSec, totalBars)

	log.Printf("[ARRANGER] built plan: total_bars=%d sections=%d", totalBars, len(sections))

	return model.SongPlan{TotalBars: totalBars, Sections: sections}
}

func totalBarsFor(c model.Controls, totalDurationSec float64) int {
	if c.Bars > 0 {
		bars := c.Bars
		if bars > maxBars {
			bars = maxBars
		}
		return bars
	}
	bars := int(math.Round(totalDurationSec * float64(c.TempoBPM) / 60 / 4))
	if bars < minBars {
		bars = minBars
	}
	if bars > maxBars {
		bars = maxBars
	}
	return bars
}

func singleSectionPlan(totalBars int, c model.Controls, p model.Palette, primaryLabel model.Label) model.SongPlan {
	sec := model.Section{
		StartBar:   0,
		LengthBars: totalBars,
		Key:        p.Key,
		Mode:       p.Mode,
		Tempo:      clampTempo(c.TempoBPM, p),
		Dynamics:   model.DynP,
		Label:      primaryLabel,
	}
	sec.ChordGrid = unrollChordGrid(p.ChordTemplate, totalBars)
	return model.SongPlan{TotalBars: totalBars, Sections: []model.Section{sec}}
}

// sectionsFromBands maps each band onto one or more section bars,
// distributing totalBars proportionally to band duration, then merging any
// section shorter than barsPerSection bars into its same-or-nearest-label
// neighbor.
func sectionsFromBands(bandsIn []model.MomentumBand, totalBars int, c model.Controls, p model.Palette) []model.Section {
	total := bandsIn[len(bandsIn)-1].T1 - bandsIn[0].T0
	if total <= 0 {
		total = 1
	}

	prov := make([]provisionalSection, 0, len(bandsIn))
	assigned := 0
	for i, b := range bandsIn {
		bars := int(math.Round((b.T1 - b.T0) / total * float64(totalBars)))
		if i == len(bandsIn)-1 {
			bars = totalBars - assigned
		}
		if bars < 1 {
			bars = 1
		}
		assigned += bars
		prov = append(prov, provisionalSection{label: b.Label, score: b.Score, bars: bars})
	}
	// Fix up rounding overflow/underflow against totalBars on the last entry.
	if diff := totalBars - assigned; diff != 0 {
		prov[len(prov)-1].bars += diff
		if prov[len(prov)-1].bars < 1 {
			prov[len(prov)-1].bars = 1
		}
	}

	// Merge any section shorter than barsPerSection into a neighbor,
	// preferring the one with the same label.
	merged := mergeShortSections(prov)

	sections := make([]model.Section, 0, len(merged))
	startBar := 0
	for _, m := range merged {
		sections = append(sections, model.Section{
			StartBar:   startBar,
			LengthBars: m.bars,
			Label:      m.label,
		})
		startBar += m.bars
	}
	return sections
}

type provisionalSection = struct {
	label model.Label
	score float64
	bars  int
}

func mergeShortSections(prov []provisionalSection) []provisionalSection {
	if len(prov) <= 1 {
		return prov
	}
	merged := append([]provisionalSection(nil), prov...)
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(merged); i++ {
			if merged[i].bars >= barsPerSection || len(merged) == 1 {
				continue
			}
			// Prefer merging with a same-label neighbor; fall back to the
			// following neighbor, then the preceding one.
			target := -1
			if i+1 < len(merged) && merged[i+1].label == merged[i].label {
				target = i + 1
			} else if i > 0 && merged[i-1].label == merged[i].label {
				target = i - 1
			} else if i+1 < len(merged) {
				target = i + 1
			} else if i > 0 {
				target = i - 1
			}
			if target == -1 {
				continue
			}
			lo, hi := i, target
			if lo > hi {
				lo, hi = hi, lo
			}
			mergedEntry := provisionalSection{
				label: merged[hi].label, // keep the later section's label, matching a forward-looking merge
				score: (merged[lo].score + merged[hi].score) / 2,
				bars:  merged[lo].bars + merged[hi].bars,
			}
			merged = append(merged[:lo], append([]provisionalSection{mergedEntry}, merged[hi+1:]...)...)
			changed = true
			break
		}
	}
	return merged
}

// applyKeysAndCadences assigns key/mode per section per the label→mode
// table and marks borrowed IV→iv cadences on transitions into a negative
// section.
func applyKeysAndCadences(sections []model.Section, p model.Palette) {
	prevNonNeg := true // implicit pre-plan state is treated as non-negative (see DESIGN.md)
	for i := range sections {
		s := &sections[i]
		switch s.Label {
		case model.MomentumPos:
			s.Key = p.Key
			s.Mode = majorish(p.Mode)
		case model.MomentumNeg:
			rel, err := theory.RelativeMinor(p.Key)
			if err != nil {
				rel = p.Key
			}
			s.Key = rel
			s.Mode = "minor"
		case model.VolatileSpike:
			s.Key = p.Key
			s.Mode = parallelShift(p.Mode)
		default:
			s.Key = p.Key
			s.Mode = p.Mode
		}

		if s.Label == model.MomentumNeg && prevNonNeg && i > 0 {
			sections[i-1].BorrowedCadence = true
		}
		prevNonNeg = s.Label != model.MomentumNeg
	}
}

func majorish(paletteDefault string) string {
	switch paletteDefault {
	case "lydian", "pentatonic":
		return paletteDefault
	default:
		return "major"
	}
}

func parallelShift(mode string) string {
	switch mode {
	case "major":
		return "dorian"
	case "minor":
		return "dorian"
	default:
		return "dorian"
	}
}

// applyTempoRamps sets each section's tempo from the mean signed score of
// the bands it spans, clamped to the palette's tempo range. It re-buckets
// bandsIn by time the same way applyDynamics does, so a section's tempo
// tracks the momentum that actually produced it instead of a label-keyed
// constant.
func applyTempoRamps(sections []model.Section, c model.Controls, p model.Palette, bandsIn []model.MomentumBand, totalDurationSec float64, totalBars int) {
	barDur := 0.0
	if totalBars > 0 {
		barDur = totalDurationSec / float64(totalBars)
	}
	for i := range sections {
		score := meanScoreForSection(sections[i], bandsIn, barDur)
		sections[i].Tempo = clampTempo(c.TempoBPM+int(math.Round(score*10)), p)
	}
}

// overlappingBands returns the bands whose [T0,T1) interval intersects
// section s's bar range, given the duration of one bar.
func overlappingBands(s model.Section, bandsIn []model.MomentumBand, barDur float64) []model.MomentumBand {
	t0 := float64(s.StartBar) * barDur
	t1 := float64(s.StartBar+s.LengthBars) * barDur
	var out []model.MomentumBand
	for _, b := range bandsIn {
		if b.T1 <= t0 || b.T0 >= t1 {
			continue
		}
		out = append(out, b)
	}
	return out
}

// meanScoreForSection returns the mean signed score of the bands spanning
// section s, or 0 if none overlap.
func meanScoreForSection(s model.Section, bandsIn []model.MomentumBand, barDur float64) float64 {
	if len(bandsIn) == 0 || barDur == 0 {
		return 0
	}
	overlap := overlappingBands(s, bandsIn, barDur)
	if len(overlap) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range overlap {
		sum += b.Score
	}
	return sum / float64(len(overlap))
}

func clampTempo(bpm int, p model.Palette) int {
	lo, hi := p.TempoRange[0], p.TempoRange[1]
	if lo == 0 && hi == 0 {
		return bpm
	}
	if bpm < lo {
		return lo
	}
	if bpm > hi {
		return hi
	}
	return bpm
}

// applyChordGrids unrolls the palette's chord template to each section's
// length, one chord per bar.
func applyChordGrids(sections []model.Section, p model.Palette) {
	for i := range sections {
		sections[i].ChordGrid = unrollChordGrid(p.ChordTemplate, sections[i].LengthBars)
	}
}

// chordTemplates are the named progression templates a palette can assign.
var chordTemplates = map[string][]model.ChordSymbol{
	"pop_I_V_vi_IV":    {"I", "V", "vi", "IV"},
	"jazz_ii_V_I":      {"ii", "V", "I"},
	"modal_i_bVII_bVI": {"i", "bVII", "bVI"},
	"blues_I_IV_V":     {"I", "I", "IV", "I", "V", "IV", "I", "V"},
}

func unrollChordGrid(templateName string, bars int) []model.ChordSymbol {
	tmpl, ok := chordTemplates[templateName]
	if !ok || len(tmpl) == 0 {
		tmpl = chordTemplates["pop_I_V_vi_IV"]
	}
	grid := make([]model.ChordSymbol, bars)
	for i := 0; i < bars; i++ {
		grid[i] = tmpl[i%len(tmpl)]
	}
	return grid
}

// applyDynamics sets each section's dynamics marking from the mean |score|
// of the bands it spans.
func applyDynamics(sections []model.Section, bandsIn []model.MomentumBand, totalDurationSec float64, totalBars int) {
	if len(bandsIn) == 0 || totalBars == 0 {
		for i := range sections {
			sections[i].Dynamics = model.DynP
		}
		return
	}
	barDur := totalDurationSec / float64(totalBars)
	for i := range sections {
		s := &sections[i]
		overlap := overlappingBands(*s, bandsIn, barDur)
		sum := 0.0
		for _, b := range overlap {
			sum += math.Abs(b.Score)
		}
		mean := 0.0
		if len(overlap) > 0 {
			mean = sum / float64(len(overlap))
		}
		s.Dynamics = dynamicsFor(mean)
	}
}

func dynamicsFor(meanAbsScore float64) model.Dynamics {
	switch {
	case meanAbsScore >= 0.9:
		return model.DynFF
	case meanAbsScore >= 0.7:
		return model.DynF
	case meanAbsScore >= 0.4:
		return model.DynMF
	case meanAbsScore >= 0.2:
		return model.DynP
	default:
		return model.DynPP
	}
}
