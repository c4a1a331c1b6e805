//go:build windows

package renderer

import (
	"github.com/schollz/sonifycore/internal/corerr"
)

// rtmididrv has no Windows backend in this module's dependency set, so the
// live-preview path degrades to RendererUnavailable here the same way
// Render degrades when lame is missing, rather than failing the job.

func listLiveDevices() []string { return nil }

func openLiveDevice(name string) (LiveDevice, error) {
	return nil, corerr.New(corerr.RendererUnavailable, "live MIDI preview is not available on this platform")
}
