package renderer

import (
	"bytes"
	"math"

	"github.com/go-audio/audio"

	"gitlab.com/gomidi/midi/v2/smf"
)

const sampleRate = 44100

// noteEvent is a decoded absolute-time note-on/off pair, read back out of
// the assembled SMF by walking smf.Track events and accumulating Delta into
// absolute ticks.
type noteEvent struct {
	startSec float64
	durSec   float64
	pitch    uint8
	velocity uint8
}

// decodeNoteEvents reads an SMF byte stream and returns the flattened list
// of sounding notes across every track, used as the internal fallback
// synthesis source when no external soundfont engine is configured.
func decodeNoteEvents(midiBytes []byte) ([]noteEvent, error) {
	s, err := smf.ReadFrom(bytes.NewReader(midiBytes))
	if err != nil {
		return nil, err
	}

	ticksPerQuarter := 480.0
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ticksPerQuarter = float64(mt)
	}

	var events []noteEvent
	for _, tr := range s.Tracks {
		tempo := 120.0
		var tick int64
		type pending struct {
			startTick int64
			velocity  uint8
		}
		open := map[uint8]pending{}

		for _, ev := range tr {
			tick += int64(ev.Delta)
			var channel, key, velocity uint8
			if bpm, ok := ev.Message.GetMetaTempo(); ok {
				tempo = bpm
				continue
			}
			if ev.Message.GetNoteOn(&channel, &key, &velocity) {
				open[key] = pending{startTick: tick, velocity: velocity}
				continue
			}
			if ev.Message.GetNoteOff(&channel, &key, &velocity) {
				if p, ok := open[key]; ok {
					secPerTick := 60.0 / (tempo * ticksPerQuarter)
					events = append(events, noteEvent{
						startSec: float64(p.startTick) * secPerTick,
						durSec:   float64(tick-p.startTick) * secPerTick,
						pitch:    key,
						velocity: p.velocity,
					})
					delete(open, key)
				}
			}
		}
	}
	return events, nil
}

// synthesizePCM additively synthesizes a sine tone per note event into a
// stereo int buffer, the internal stand-in soundfont synth used when no
// external engine is reachable. It is intentionally simple: sonification
// output is evaluated on musical structure, not timbral fidelity.
func synthesizePCM(events []noteEvent) *audio.IntBuffer {
	totalSec := 0.0
	for _, e := range events {
		end := e.startSec + e.durSec
		if end > totalSec {
			totalSec = end
		}
	}
	totalSec += 0.5 // tail
	numFrames := int(totalSec * sampleRate)
	if numFrames <= 0 {
		numFrames = sampleRate
	}

	data := make([]int, numFrames*2)
	for _, e := range events {
		freq := 440.0 * math.Pow(2, (float64(e.pitch)-69)/12.0)
		amp := float64(e.velocity) / 127.0 * 0.3
		startFrame := int(e.startSec * sampleRate)
		endFrame := int((e.startSec + e.durSec) * sampleRate)
		if endFrame > numFrames {
			endFrame = numFrames
		}
		for f := startFrame; f < endFrame; f++ {
			t := float64(f-startFrame) / sampleRate
			env := envelope(t, float64(endFrame-startFrame)/sampleRate)
			sample := int(amp * env * 32767 * math.Sin(2*math.Pi*freq*t))
			data[f*2] += sample
			data[f*2+1] += sample
		}
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// envelope applies a short attack/release so notes don't click.
func envelope(t, dur float64) float64 {
	const attack = 0.01
	const release = 0.03
	if t < attack {
		return t / attack
	}
	if t > dur-release {
		remaining := dur - t
		if remaining < 0 {
			return 0
		}
		return remaining / release
	}
	return 1.0
}

// applyBrickwallLimiter scales samples down uniformly if any peak exceeds
// the target dBFS ceiling.
func applyBrickwallLimiter(buf *audio.IntBuffer, ceilingDBFS float64) {
	ceiling := math.Pow(10, ceilingDBFS/20) * 32768
	peak := 0.0
	for _, s := range buf.Data {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	if peak <= ceiling || peak == 0 {
		return
	}
	gain := ceiling / peak
	for i, s := range buf.Data {
		buf.Data[i] = int(float64(s) * gain)
	}
}

// estimateLoudnessLUFS approximates integrated loudness via RMS-to-LUFS,
// a best-effort stand-in for a full BS.1770 measurement: adequate for a
// warning-only deviation check.
func estimateLoudnessLUFS(buf *audio.IntBuffer) float64 {
	if len(buf.Data) == 0 {
		return -70
	}
	var sumSq float64
	for _, s := range buf.Data {
		v := float64(s) / 32768
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(buf.Data)))
	if rms <= 0 {
		return -70
	}
	return 20*math.Log10(rms) - 0.691
}
