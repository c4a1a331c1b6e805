package renderer

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/schollz/sonifycore/internal/corerr"
)

// Options configures one render invocation.
type Options struct {
	SoundfontPath      string
	TargetLoudnessLUFS float64
	LimiterCeilingDBFS float64
	Engine             *Engine
}

// DefaultOptions returns the documented -14 LUFS / -1 dBFS render targets.
func DefaultOptions() Options {
	return Options{
		TargetLoudnessLUFS: -14,
		LimiterCeilingDBFS: -1,
	}
}

// Result is a successful render's output plus any soft warning.
type Result struct {
	MP3Bytes     []byte
	WAVBytes     []byte
	MeasuredLUFS float64
	Warning      string
}

// Render turns assembled MIDI bytes into MP3 bytes. If no external
// synthesis engine is usable, it falls back to the
// internal sine-tone synthesizer; if lame is unavailable, it returns
// corerr.RendererUnavailable so the caller can downgrade to mp3_url=null
// without failing the job.
func Render(ctx context.Context, midiBytes []byte, opt Options) (*Result, error) {
	events, err := decodeNoteEvents(midiBytes)
	if err != nil {
		return nil, corerr.Wrap(corerr.RendererUnavailable, "failed to decode assembled MIDI for rendering", err)
	}

	buf, externalWarning := renderViaEngine(ctx, midiBytes, opt)
	if buf == nil {
		buf = synthesizePCM(events)
	}

	ceiling := opt.LimiterCeilingDBFS
	if ceiling == 0 {
		ceiling = -1
	}
	applyBrickwallLimiter(buf, ceiling)

	measured := estimateLoudnessLUFS(buf)
	var warning string
	target := opt.TargetLoudnessLUFS
	if target == 0 {
		target = -14
	}
	if deviation := measured - target; deviation > 3 || deviation < -3 {
		warning = "measured loudness deviates from target by more than 3 LU"
		log.Printf("[RENDERER] %s (measured=%.1f target=%.1f)", warning, measured, target)
	}
	if externalWarning != "" {
		if warning != "" {
			warning = warning + "; " + externalWarning
		} else {
			warning = externalWarning
		}
	}

	wavBytes, err := encodeWAV(buf)
	if err != nil {
		return nil, corerr.Wrap(corerr.ArtifactIOError, "encode WAV", err)
	}

	mp3Bytes, err := encodeMP3(ctx, wavBytes)
	if err != nil {
		return &Result{WAVBytes: wavBytes, MeasuredLUFS: measured, Warning: "mp3 encoder unavailable, WAV only"}, corerr.Wrap(corerr.RendererUnavailable, "mp3 encoding unavailable", err)
	}

	return &Result{MP3Bytes: mp3Bytes, WAVBytes: wavBytes, MeasuredLUFS: measured, Warning: warning}, nil
}

// encodeWAV writes buf through go-audio/wav.Encoder, which (like
// fitcommon.WriteStereoInterleavedWAV) requires a seekable destination to
// patch the RIFF header after writing, so it always goes through a temp
// file rather than an in-memory buffer.
func encodeWAV(buf *audio.IntBuffer) ([]byte, error) {
	f, err := os.CreateTemp("", "sonifycore-*.wav")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	defer os.Remove(path)

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		f.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()

	return os.ReadFile(path)
}

// renderViaEngine attempts to synthesize midiBytes through an external
// OSC-driven soundfont engine (supercollider.go's process-management idiom
// plus model.go's OSC message shape, generalized to a render request
// instead of live note-on/off). It returns nil on any failure so the
// caller falls back to the internal synth; a non-empty warning is still
// surfaced even on fallback so operators can see the engine was
// unreachable.
func renderViaEngine(ctx context.Context, midiBytes []byte, opt Options) (*audio.IntBuffer, string) {
	if opt.Engine == nil || !opt.Engine.Available() {
		return nil, ""
	}
	if err := opt.Engine.Start(ctx); err != nil {
		return nil, "external synthesis engine failed to start, used internal synth"
	}

	midiFile, err := os.CreateTemp("", "sonifycore-*.mid")
	if err != nil {
		return nil, "could not stage MIDI for external engine, used internal synth"
	}
	defer os.Remove(midiFile.Name())
	if _, err := midiFile.Write(midiBytes); err != nil {
		midiFile.Close()
		return nil, "could not stage MIDI for external engine, used internal synth"
	}
	midiFile.Close()

	outPath := midiFile.Name() + ".out.wav"
	defer os.Remove(outPath)

	bridge := newOSCBridge("localhost", opt.Engine.oscPort)
	if err := bridge.renderRequest(midiFile.Name(), opt.SoundfontPath, outPath, opt.TargetLoudnessLUFS); err != nil {
		return nil, "external synthesis engine unreachable over OSC, used internal synth"
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(outPath); err == nil && len(data) > 0 {
			dec := wav.NewDecoder(bytes.NewReader(data))
			ib, err := dec.FullPCMBuffer()
			if err == nil {
				return ib, ""
			}
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, "external synthesis engine did not produce output in time, used internal synth"
}

// encodeMP3 shells out to the external lame binary to produce CBR 192kbps
// 44.1kHz stereo MP3 from WAV bytes.
func encodeMP3(ctx context.Context, wavBytes []byte) ([]byte, error) {
	path, err := exec.LookPath("lame")
	if err != nil {
		return nil, err
	}

	inFile, err := os.CreateTemp("", "sonifycore-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inFile.Name())
	if _, err := inFile.Write(wavBytes); err != nil {
		inFile.Close()
		return nil, err
	}
	inFile.Close()

	outPath := inFile.Name() + ".mp3"
	defer os.Remove(outPath)

	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, path, "--cbr", "-b", "192", inFile.Name(), outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("[RENDERER] lame failed: %v: %s", err, out)
		return nil, err
	}

	return os.ReadFile(outPath)
}
