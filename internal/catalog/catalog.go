// Package catalog loads and caches the MotifCatalog and implements the
// Motif Selector.
package catalog

import (
	"fmt"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/model"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Store caches parsed MotifCatalog versions, keyed by (path, mtime) the same
// way internal/labels.RuleCache and internal/palette.Store do.
type Store struct {
	mu      sync.RWMutex
	dir     string
	mtimes  map[string]int64
	cache   map[string]model.MotifCatalog
}

// NewStore returns a Store that loads catalog JSON files named
// "<version>.json" from dir. If dir is "", only the built-in catalog is
// available.
func NewStore(dir string) *Store {
	return &Store{dir: dir, mtimes: map[string]int64{}, cache: map[string]model.MotifCatalog{}}
}

// Get returns the catalog for version, loading (or reloading on mtime
// change) from dir/<version>.json, or the built-in catalog if version is
// "" or "builtin".
func (s *Store) Get(version string) (model.MotifCatalog, error) {
	if version == "" || version == "builtin" {
		return Builtin(), nil
	}
	if s.dir == "" {
		return model.MotifCatalog{}, fmt.Errorf("catalog: no catalog directory configured for version %q", version)
	}
	path := s.dir + "/" + version + ".json"
	info, err := os.Stat(path)
	if err != nil {
		return model.MotifCatalog{}, fmt.Errorf("catalog: stat %s: %w", path, err)
	}
	mtime := info.ModTime().UnixNano()

	s.mu.RLock()
	cached, ok := s.cache[version]
	cachedMtime := s.mtimes[version]
	s.mu.RUnlock()
	if ok && cachedMtime == mtime {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.MotifCatalog{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var c model.MotifCatalog
	if err := jsonAPI.Unmarshal(data, &c); err != nil {
		return model.MotifCatalog{}, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[version] = c
	s.mtimes[version] = mtime
	s.mu.Unlock()
	return c, nil
}

// Builtin returns a small, versioned default catalog with a handful of
// motifs per label so the core runs without external config.
func Builtin() model.MotifCatalog {
	tempo100 := 100
	tempo128 := 128
	tempo80 := 80

	motifs := []model.Motif{
		{
			ID: "pos-arp-up-1", Label: model.MomentumPos, Bars: 2, TempoHint: &tempo128,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 60, Dur: 0.5, Vel: 90, Chan: 0},
				{T: 0.5, Pitch: 64, Dur: 0.5, Vel: 90, Chan: 0},
				{T: 1, Pitch: 67, Dur: 0.5, Vel: 95, Chan: 0},
				{T: 1.5, Pitch: 72, Dur: 0.5, Vel: 100, Chan: 0},
			},
		},
		{
			ID: "pos-skip-2", Label: model.MomentumPos, Bars: 1, TempoHint: &tempo100,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 67, Dur: 1, Vel: 88, Chan: 0},
				{T: 1, Pitch: 71, Dur: 1, Vel: 92, Chan: 0},
				{T: 2, Pitch: 74, Dur: 2, Vel: 96, Chan: 0},
			},
		},
		{
			ID: "neg-descend-1", Label: model.MomentumNeg, Bars: 2, TempoHint: &tempo80,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 72, Dur: 1, Vel: 70, Chan: 0},
				{T: 1, Pitch: 67, Dur: 1, Vel: 66, Chan: 0},
				{T: 2, Pitch: 63, Dur: 1, Vel: 62, Chan: 0},
				{T: 3, Pitch: 60, Dur: 1, Vel: 58, Chan: 0},
			},
		},
		{
			ID: "neg-sigh-2", Label: model.MomentumNeg, Bars: 1,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 65, Dur: 2, Vel: 64, Chan: 0},
				{T: 2, Pitch: 60, Dur: 2, Vel: 58, Chan: 0},
			},
		},
		{
			ID: "spike-trem-1", Label: model.VolatileSpike, Bars: 1, TempoHint: &tempo128,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 76, Dur: 0.25, Vel: 110, Chan: 0},
				{T: 0.25, Pitch: 72, Dur: 0.25, Vel: 105, Chan: 0},
				{T: 0.5, Pitch: 76, Dur: 0.25, Vel: 115, Chan: 0},
				{T: 0.75, Pitch: 72, Dur: 0.25, Vel: 108, Chan: 0},
			},
		},
		{
			ID: "neutral-sustain-1", Label: model.Neutral, Bars: 2,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 67, Dur: 4, Vel: 70, Chan: 0},
			},
		},
		{
			ID: "neutral-walk-2", Label: model.Neutral, Bars: 1, TempoHint: &tempo100,
			Events: []model.MotifEvent{
				{T: 0, Pitch: 60, Dur: 1, Vel: 72, Chan: 0},
				{T: 1, Pitch: 62, Dur: 1, Vel: 72, Chan: 0},
				{T: 2, Pitch: 64, Dur: 1, Vel: 72, Chan: 0},
				{T: 3, Pitch: 62, Dur: 1, Vel: 72, Chan: 0},
			},
		},
	}

	stats := map[model.Label]int{}
	for _, m := range motifs {
		stats[m.Label]++
	}

	return model.MotifCatalog{Version: "builtin-1", Motifs: motifs, Stats: stats}
}

// RequireNonEmpty returns CatalogEmpty if the catalog has zero motifs for
// every label (a fully empty catalog, after which even NEUTRAL fallback
// cannot help).
func RequireNonEmpty(c model.MotifCatalog) error {
	if len(c.Motifs) == 0 {
		return corerr.New(corerr.CatalogEmpty, "catalog has no motifs at all")
	}
	return nil
}
