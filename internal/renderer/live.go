package renderer

import "context"

// LiveDevice is an open real-time MIDI output port. Play and Close are the
// only operations the renderer's live-preview path needs; the rtmidi-backed
// implementation lives in live_other.go, mirroring engine.go's binary
// fallback and process_unix.go/process_windows.go's platform split.
type LiveDevice interface {
	Play(ctx context.Context, midiBytes []byte) error
	Close() error
}

// OpenLiveDevice resolves name against the host's available MIDI output
// ports and opens it. An empty name opens the first available port. If no
// rtmidi backend is compiled in (Windows) or no port matches, it returns
// corerr.RendererUnavailable so callers can degrade the same way they do
// when lame or the synthesis engine is missing, rather than failing the job.
func OpenLiveDevice(name string) (LiveDevice, error) {
	return openLiveDevice(name)
}

// ListLiveDevices returns the names of available real-time MIDI output
// ports, or nil where no rtmidi backend is compiled in.
func ListLiveDevices() []string {
	return listLiveDevices()
}

// PlayLive decodes midiBytes and streams them out an already-open device,
// the live counterpart to Render's file-producing path.
func PlayLive(ctx context.Context, dev LiveDevice, midiBytes []byte) error {
	return dev.Play(ctx, midiBytes)
}
