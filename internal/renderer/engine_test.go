package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineAvailableWithNoBinary(t *testing.T) {
	e := NewEngine("", 57120)
	assert.False(t, e.Available())
}

func TestEngineAvailableWithUnknownBinary(t *testing.T) {
	e := NewEngine("definitely-not-a-real-binary-xyz", 57120)
	assert.False(t, e.Available())
}

func TestEngineAvailableWithRealBinary(t *testing.T) {
	e := NewEngine("sh", 57120)
	assert.True(t, e.Available())
}

func TestEngineStopWithoutStartIsNoop(t *testing.T) {
	e := NewEngine("", 57120)
	assert.NotPanics(t, func() { e.Stop() })
}
