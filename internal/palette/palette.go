// Package palette loads and caches Palette configuration, reload-on-mtime
// the same way internal/labels caches rule files, and ships a small
// built-in set so the core runs without external config.
package palette

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/model"
)

// yamlFile is the on-disk shape of a palettes YAML file: a list under a
// top-level palettes: key.
type yamlFile struct {
	Palettes []model.Palette `yaml:"palettes"`
}

// Store is a process-wide, read-only cache of palettes, keyed by slug, with
// reload-on-mtime semantics when loaded from a file.
type Store struct {
	mu       sync.RWMutex
	path     string
	mtime    int64
	palettes map[string]model.Palette
}

// NewBuiltinStore returns a Store pre-seeded with the shipped default
// palettes and no backing file (never reloads).
func NewBuiltinStore() *Store {
	s := &Store{palettes: map[string]model.Palette{}}
	for _, p := range Builtin() {
		s.palettes[p.Slug] = p
	}
	return s
}

// NewFileStore loads palettes from a YAML file at path, caching by mtime.
func NewFileStore(path string) (*Store, error) {
	s := &Store{path: path, palettes: map[string]model.Palette{}}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("palette: stat %s: %w", s.path, err)
	}
	mtime := info.ModTime().UnixNano()

	s.mu.RLock()
	same := mtime == s.mtime && s.palettes != nil
	s.mu.RUnlock()
	if same {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("palette: read %s: %w", s.path, err)
	}
	var raw yamlFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("palette: parse %s: %w", s.path, err)
	}

	m := make(map[string]model.Palette, len(raw.Palettes))
	for _, p := range raw.Palettes {
		m[p.Slug] = p
	}

	s.mu.Lock()
	s.palettes = m
	s.mtime = mtime
	s.mu.Unlock()
	return nil
}

// Get returns the palette for slug, reloading the backing file first if one
// was configured.
func (s *Store) Get(slug string) (model.Palette, error) {
	if s.path != "" {
		if err := s.reload(); err != nil {
			return model.Palette{}, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.palettes[slug]
	if !ok {
		return model.Palette{}, corerr.New(corerr.UnknownPalette, "no palette with slug "+slug)
	}
	return p, nil
}

// List returns a summary of all known palettes, sorted by slug.
func (s *Store) List() []model.Palette {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Palette, 0, len(s.palettes))
	for _, p := range s.palettes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Builtin ships the default palette set, each with a chord template
// assignment.
func Builtin() []model.Palette {
	return []model.Palette{
		{
			Slug: "synthwave", Key: "C", Mode: "major",
			TempoRange: [2]int{100, 120}, DefaultTempo: 110,
			Instruments: model.Instruments{Lead: 81, Pad: 89, Bass: 38, Perc: []int{0}},
			EarconBank: map[string]string{
				"volatility_spike": "volatility_spike",
				"momentum_up":      "momentum_up",
				"momentum_down":    "momentum_down",
				"section_start":    "section_start",
			},
			RhythmFeel:    "straight",
			ChordTemplate: "pop_I_V_vi_IV",
		},
		{
			Slug: "arena_rock", Key: "E", Mode: "major",
			TempoRange: [2]int{120, 140}, DefaultTempo: 128,
			Instruments: model.Instruments{Lead: 30, Pad: 50, Bass: 33, Perc: []int{0}},
			EarconBank: map[string]string{
				"volatility_spike": "volatility_spike",
				"momentum_up":      "momentum_up",
				"momentum_down":    "momentum_down",
				"section_start":    "section_start",
			},
			RhythmFeel:    "driving",
			ChordTemplate: "blues_I_IV_V",
		},
		{
			Slug: "ambient_pad", Key: "D", Mode: "lydian",
			TempoRange: [2]int{60, 90}, DefaultTempo: 72,
			Instruments: model.Instruments{Lead: 91, Pad: 92, Bass: 87, Perc: []int{0}},
			EarconBank: map[string]string{
				"volatility_spike": "volatility_spike",
				"momentum_up":      "momentum_up",
				"momentum_down":    "momentum_down",
				"section_start":    "section_start",
			},
			RhythmFeel:    "rubato",
			ChordTemplate: "modal_i_bVII_bVI",
		},
		{
			Slug: "late_night_jazz", Key: "Bb", Mode: "dorian",
			TempoRange: [2]int{70, 110}, DefaultTempo: 92,
			Instruments: model.Instruments{Lead: 4, Pad: 0, Bass: 32, Perc: []int{0}},
			EarconBank: map[string]string{
				"volatility_spike": "volatility_spike",
				"momentum_up":      "momentum_up",
				"momentum_down":    "momentum_down",
				"section_start":    "section_start",
			},
			RhythmFeel:    "swing",
			ChordTemplate: "jazz_ii_V_I",
		},
	}
}
