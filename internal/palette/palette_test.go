package palette

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinStoreResolvesKnownSlugs(t *testing.T) {
	s := NewBuiltinStore()
	for _, slug := range []string{"synthwave", "arena_rock", "ambient_pad", "late_night_jazz"} {
		p, err := s.Get(slug)
		require.NoError(t, err, slug)
		assert.Equal(t, slug, p.Slug)
	}
}

func TestBuiltinStoreUnknownSlug(t *testing.T) {
	s := NewBuiltinStore()
	_, err := s.Get("does-not-exist")
	assert.Error(t, err)
}

func TestBuiltinStoreListReturnsAllFour(t *testing.T) {
	s := NewBuiltinStore()
	assert.Len(t, s.List(), 4)
}

func TestFileStoreLoadsAndReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "palettes.yaml")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	write(`palettes:
  - slug: test_one
    key: C
    mode: major
    tempo_range: [100, 110]
    default_tempo: 105
`)
	s, err := NewFileStore(path)
	require.NoError(t, err)
	p, err := s.Get("test_one")
	require.NoError(t, err)
	assert.Equal(t, 105, p.DefaultTempo)

	write(`palettes:
  - slug: test_one
    key: C
    mode: major
    tempo_range: [100, 110]
    default_tempo: 108
`)
	p2, err := s.Get("test_one")
	require.NoError(t, err)
	assert.Equal(t, 108, p2.DefaultTempo)
}

func TestFileStoreMissingFile(t *testing.T) {
	_, err := NewFileStore("/nonexistent/palettes.yaml")
	assert.Error(t, err)
}

func TestBuiltinPalettesHaveValidTempoRanges(t *testing.T) {
	for _, p := range Builtin() {
		assert.Less(t, p.TempoRange[0], p.TempoRange[1], p.Slug)
		assert.GreaterOrEqual(t, p.DefaultTempo, p.TempoRange[0], p.Slug)
		assert.LessOrEqual(t, p.DefaultTempo, p.TempoRange[1], p.Slug)
		assert.NotEmpty(t, p.EarconBank, p.Slug)
	}
}
