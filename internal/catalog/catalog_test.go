package catalog

import (
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/sonifycore/internal/model"
)

func TestBuiltinHasMotifsForEveryLabel(t *testing.T) {
	c := Builtin()
	for _, lbl := range []model.Label{model.MomentumPos, model.MomentumNeg, model.VolatileSpike, model.Neutral} {
		assert.Greater(t, c.Stats[lbl], 0, "expected at least one motif for %s", lbl)
	}
}

func TestRequireNonEmptyRejectsEmptyCatalog(t *testing.T) {
	assert.Error(t, RequireNonEmpty(model.MotifCatalog{}))
	assert.NoError(t, RequireNonEmpty(Builtin()))
}

func TestStoreGetReturnsBuiltinForEmptyOrBuiltinVersion(t *testing.T) {
	s := NewStore("")
	c1, err := s.Get("")
	require.NoError(t, err)
	c2, err := s.Get("builtin")
	require.NoError(t, err)
	assert.Equal(t, c1.Version, c2.Version)
}

func TestStoreGetUnconfiguredDirReturnsError(t *testing.T) {
	s := NewStore("")
	_, err := s.Get("v2")
	assert.Error(t, err)
}

func TestStoreGetLoadsAndReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v2.json")

	write := func(c model.MotifCatalog) {
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(c)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0644))
	}

	write(model.MotifCatalog{Version: "v2", Motifs: []model.Motif{{ID: "a", Label: model.Neutral, Bars: 1}}})
	s := NewStore(dir)
	c, err := s.Get("v2")
	require.NoError(t, err)
	assert.Len(t, c.Motifs, 1)

	write(model.MotifCatalog{Version: "v2", Motifs: []model.Motif{{ID: "a", Label: model.Neutral, Bars: 1}, {ID: "b", Label: model.Neutral, Bars: 1}}})
	c2, err := s.Get("v2")
	require.NoError(t, err)
	assert.Len(t, c2.Motifs, 2)
}

func TestStoreGetMissingVersionFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	_, err := s.Get("nope")
	assert.Error(t, err)
}
