package catalog

import (
	"hash/fnv"
	"log"
	"math"
	"sort"
	"strconv"

	"github.com/schollz/sonifycore/internal/model"
	"github.com/schollz/sonifycore/internal/theory"
)

// Source names where a selected motif id came from: catalog, label-neutral
// fallback, or synthetic filler.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceFallback  Source = "fallback"
	SourceSynthetic Source = "synthetic"
)

// Selection is one section's chosen motif and where it came from.
type Selection struct {
	MotifID string
	Source  Source
	Motif   model.Motif
}

// candidateRank is used only to order candidates for selection; it is not
// part of the public result.
type candidateRank struct {
	motif   model.Motif
	tempoD  float64
	barsD   int
	tieHash uint64
}

// SelectForSections chooses one motif per section, in order, per spec
// section 4.3: filter by required label, rank by tempo-hint distance then
// bar-length match then a stable tie-break hash of (motif.id, fingerprint),
// select without replacement when possible, never repeating a motif in two
// consecutive sections unless the filtered candidate pool has exactly one
// entry.
func SelectForSections(sections []model.Section, requestedTempo int, c model.MotifCatalog, fingerprint string, paletteKey string) []Selection {
	selections := make([]Selection, len(sections))
	var prevID string
	used := map[string]bool{}

	for i, sec := range sections {
		label := sec.Label
		pool := filterByLabel(c, label)
		if len(pool) == 0 {
			log.Printf("[SELECTOR] no motifs for label %s, substituting NEUTRAL", label)
			pool = filterByLabel(c, model.Neutral)
		}

		if len(pool) == 0 {
			synth := syntheticMotif(label, sec.LengthBars, paletteKey)
			selections[i] = Selection{MotifID: synth.ID, Source: SourceSynthetic, Motif: synth}
			prevID = synth.ID
			continue
		}

		ranked := rankCandidates(pool, requestedTempo, sec.LengthBars, fingerprint)
		var fresh []candidateRank
		for _, r := range ranked {
			if !used[r.motif.ID] {
				fresh = append(fresh, r)
			}
		}
		if len(fresh) > 0 {
			ranked = fresh
		}

		chosen := pickWithoutImmediateRepeat(ranked, prevID, i)
		used[chosen.motif.ID] = true
		src := SourceCatalog
		if chosen.motif.Label != label {
			src = SourceFallback
		}
		selections[i] = Selection{MotifID: chosen.motif.ID, Source: src, Motif: chosen.motif}
		prevID = chosen.motif.ID
	}
	return selections
}

func filterByLabel(c model.MotifCatalog, label model.Label) []model.Motif {
	var out []model.Motif
	for _, m := range c.Motifs {
		if m.Label == label {
			out = append(out, m)
		}
	}
	return out
}

func rankCandidates(pool []model.Motif, requestedTempo, sectionBars int, fingerprint string) []candidateRank {
	ranked := make([]candidateRank, len(pool))
	for i, m := range pool {
		tempoD := math.Inf(1) / 2 // missing tempo_hint counts as +inf/2 per spec
		if m.TempoHint != nil {
			tempoD = math.Abs(float64(*m.TempoHint - requestedTempo))
		}
		barsD := m.Bars - sectionBars
		if barsD < 0 {
			barsD = -barsD
		}
		ranked[i] = candidateRank{motif: m, tempoD: tempoD, barsD: barsD, tieHash: tieBreakHash(m.ID, fingerprint)}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].tempoD != ranked[j].tempoD {
			return ranked[i].tempoD < ranked[j].tempoD
		}
		if ranked[i].barsD != ranked[j].barsD {
			return ranked[i].barsD < ranked[j].barsD
		}
		return ranked[i].tieHash < ranked[j].tieHash
	})
	return ranked
}

// pickWithoutImmediateRepeat walks the ranked candidates in order and
// returns the best-ranked one that isn't prevID, unless the pool has
// exactly one candidate (in which case reuse is permitted, matching spec
// section 4.3's "never twice in a row... unless size 1" rule). The section
// index is used only to rotate the starting offset deterministically when
// every candidate would repeat (exhausted pool with reuse permitted).
func pickWithoutImmediateRepeat(ranked []candidateRank, prevID string, sectionIdx int) candidateRank {
	if len(ranked) == 1 {
		return ranked[0]
	}
	for _, r := range ranked {
		if r.motif.ID != prevID {
			return r
		}
	}
	// Every candidate equals prevID (shouldn't happen with distinct ids, but
	// guard anyway): rotate deterministically by section index.
	return ranked[sectionIdx%len(ranked)]
}

func tieBreakHash(motifID, fingerprint string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(motifID))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return h.Sum64()
}

// syntheticMotifContourSpan is how far (in semitones) the unquantized
// triangle contour syntheticMotif walks above its base pitch before folding
// back down, prior to snapping each step onto the scale.
const syntheticMotifContourSpan = 9

// syntheticMotif builds a filler motif when a required label (and its
// NEUTRAL fallback) have zero catalog entries: a triangle-wave pitch contour
// rooted at the section's key, quantized note-by-note onto a pentatonic
// scale so the filler never strays outside the active mode.
func syntheticMotif(label model.Label, bars int, key string) model.Motif {
	if bars < 1 {
		bars = 1
	}
	root, err := theory.PitchClass(key)
	if err != nil {
		root = 0
	}
	basePitch := 60 + root
	var events []model.MotifEvent
	beatsTotal := float64(bars) * 4
	notesPerBar := 4
	n := bars * notesPerBar
	step := beatsTotal / float64(n)
	span := syntheticMotifContourSpan
	for i := 0; i < n; i++ {
		phase := i % (2 * span)
		delta := phase
		if phase > span {
			delta = 2*span - phase
		}
		pitch := theory.QuantizeToScale(basePitch+delta, root, "pentatonic")
		events = append(events, model.MotifEvent{
			T:     float64(i) * step,
			Pitch: pitch,
			Dur:   step,
			Vel:   80,
			Chan:  0,
		})
	}
	return model.Motif{
		ID:     synthID(label, bars),
		Label:  label,
		Bars:   bars,
		Events: events,
	}
}

func synthID(label model.Label, bars int) string {
	return "synthetic:" + string(label) + ":" + strconv.Itoa(bars)
}
