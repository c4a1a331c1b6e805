package renderer

import (
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
)

func TestSynthesizePCMProducesFrames(t *testing.T) {
	events := []noteEvent{
		{startSec: 0, durSec: 0.5, pitch: 60, velocity: 100},
		{startSec: 0.5, durSec: 0.5, pitch: 64, velocity: 100},
	}
	buf := synthesizePCM(events)
	assert.NotNil(t, buf)
	assert.Greater(t, len(buf.Data), 0)
	assert.Equal(t, 2, buf.Format.NumChannels)
}

func TestApplyBrickwallLimiterCapsPeak(t *testing.T) {
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:   []int{32767, -32768, 1000, -1000},
	}
	applyBrickwallLimiter(buf, -1)
	ceiling := int(32768 * 0.89125) // approx -1 dBFS
	for _, s := range buf.Data {
		if s < 0 {
			s = -s
		}
		assert.LessOrEqual(t, s, ceiling+1)
	}
}

func TestApplyBrickwallLimiterNoopWhenUnderCeiling(t *testing.T) {
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:   []int{100, -100, 50, -50},
	}
	orig := append([]int(nil), buf.Data...)
	applyBrickwallLimiter(buf, -1)
	assert.Equal(t, orig, buf.Data)
}

func TestEstimateLoudnessIsNegativeForQuiet(t *testing.T) {
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:   []int{10, -10, 10, -10},
	}
	lufs := estimateLoudnessLUFS(buf)
	assert.Less(t, lufs, 0.0)
}

func TestEnvelopeRampsAtEdges(t *testing.T) {
	assert.Less(t, envelope(0, 1), envelope(0.02, 1))
	assert.Greater(t, envelope(0.5, 1), 0.9)
}
