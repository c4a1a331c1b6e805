package core

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/sonifycore/internal/model"
	"github.com/schollz/sonifycore/internal/theory"
)

var prettyJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	IndentionStep:          2,
}.Froze()

// planJSONDoc is the on-disk shape of the plan JSON artifact: the SongPlan
// plus the earcons layered onto it, with motif ids already folded into each
// section by the caller.
type planJSONDoc struct {
	Plan    model.SongPlan         `json:"plan"`
	Earcons []model.EarconEmission `json:"earcons"`
	// SectionKeys gives each section's tonic as a human-readable note name
	// (e.g. "c-3" or "f#3"), in StartBar order, alongside the machine-readable key
	// string already carried on each Section.
	SectionKeys []string `json:"section_keys"`
}

func marshalPlanJSON(plan model.SongPlan, earcons []model.EarconEmission) ([]byte, error) {
	keys := make([]string, len(plan.Sections))
	for i, s := range plan.Sections {
		rootPC, err := theory.PitchClass(s.Key)
		if err != nil {
			rootPC = 0
		}
		keys[i] = theory.NoteName(48 + rootPC)
	}
	doc := planJSONDoc{Plan: plan, Earcons: earcons, SectionKeys: keys}
	return prettyJSON.MarshalIndent(doc, "", "  ")
}
