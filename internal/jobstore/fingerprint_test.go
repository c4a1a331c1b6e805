package jobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/sonifycore/internal/model"
)

func sampleRequest() model.Request {
	ctr := 0.5
	return model.Request{
		Series:      model.Series{0.1, 0.2, 0.3},
		Metrics:     model.Metrics{CTR: &ctr},
		PaletteSlug: "synthwave",
	}
}

func TestFingerprintIsStable(t *testing.T) {
	r := sampleRequest()
	a := Fingerprint(r)
	b := Fingerprint(r)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintChangesWithSeries(t *testing.T) {
	r1 := sampleRequest()
	r2 := sampleRequest()
	r2.Series = model.Series{0.9, 0.8, 0.7}
	assert.NotEqual(t, Fingerprint(r1), Fingerprint(r2))
}

func TestFingerprintIgnoresFloatNoise(t *testing.T) {
	ctrA := 0.500000001
	ctrB := 0.5000000002
	r1 := sampleRequest()
	r1.Metrics.CTR = &ctrA
	r2 := sampleRequest()
	r2.Metrics.CTR = &ctrB
	assert.Equal(t, Fingerprint(r1), Fingerprint(r2))
}

func TestFingerprintChangesWithOverride(t *testing.T) {
	r1 := sampleRequest()
	tempo := 130
	r2 := sampleRequest()
	r2.ControlsOverride = &model.ControlsOverride{TempoBPM: &tempo}
	assert.NotEqual(t, Fingerprint(r1), Fingerprint(r2))
}

func TestFingerprintChangesWithExplicitSeed(t *testing.T) {
	r1 := sampleRequest()
	seedA := int64(1)
	seedB := int64(2)
	r1.Seed = &seedA
	r2 := sampleRequest()
	r2.Seed = &seedB
	assert.NotEqual(t, Fingerprint(r1), Fingerprint(r2))
}

func TestFingerprintWithNoSeedFallsBackToDerived(t *testing.T) {
	r := sampleRequest()
	derived := DeriveSeed(r)
	withSeed := r
	withSeed.Seed = &derived
	assert.Equal(t, Fingerprint(r), Fingerprint(withSeed))
}
