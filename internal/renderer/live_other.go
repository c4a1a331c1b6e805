//go:build !windows

package renderer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/schollz/sonifycore/internal/corerr"
)

var liveMu sync.Mutex
var liveDevicesOpen = map[string]drivers.Out{}

// liveDevice is the rtmidi-backed LiveDevice: fuzzy name resolution over
// the available ports, a package-level liveDevicesOpen map guarded by a
// mutex, raw note-on/off byte sends.
type liveDevice struct {
	name string
}

// filterName resolves a requested device name against the live port list,
// trying exact, prefix, then substring match in that order so a short
// name like "IAC" still finds "IAC Driver Bus 1".
func filterName(name string) (string, error) {
	return resolveDeviceName(name, listLiveDevices())
}

// resolveDeviceName is filterName's matching logic pulled out so it can be
// exercised against a fixed port list instead of the host's actual rtmidi
// ports.
func resolveDeviceName(name string, names []string) (string, error) {
	if name == "" {
		if len(names) == 0 {
			return "", fmt.Errorf("no MIDI output ports available")
		}
		return names[0], nil
	}

	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	truncated := strings.Join(words, " ")

	for _, n := range names {
		if strings.EqualFold(n, truncated) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(truncated)) {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(truncated)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("could not find MIDI output port matching %q", truncated)
}

func listLiveDevices() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

func openLiveDevice(name string) (LiveDevice, error) {
	resolved, err := filterName(name)
	if err != nil {
		return nil, corerr.Wrap(corerr.RendererUnavailable, "no live MIDI output port available", err)
	}

	liveMu.Lock()
	defer liveMu.Unlock()
	if _, ok := liveDevicesOpen[resolved]; !ok {
		out, err := midi.FindOutPort(resolved)
		if err != nil {
			return nil, corerr.Wrap(corerr.RendererUnavailable, "could not open MIDI output port", err)
		}
		if err := out.Open(); err != nil {
			return nil, corerr.Wrap(corerr.RendererUnavailable, "could not open MIDI output port", err)
		}
		liveDevicesOpen[resolved] = out
	}
	return &liveDevice{name: resolved}, nil
}

// Play decodes midiBytes and sends its note-on/off events out d's port in
// real time, sleeping between scheduled times rather than racing through
// them, then always clears any notes it left sounding before returning.
func (d *liveDevice) Play(ctx context.Context, midiBytes []byte) error {
	events, err := decodeNoteEvents(midiBytes)
	if err != nil {
		return corerr.Wrap(corerr.RendererUnavailable, "failed to decode assembled MIDI for live preview", err)
	}

	type edge struct {
		atSec float64
		on    bool
		pitch uint8
		vel   uint8
	}
	var edges []edge
	for _, e := range events {
		edges = append(edges, edge{atSec: e.startSec, on: true, pitch: e.pitch, vel: e.velocity})
		edges = append(edges, edge{atSec: e.startSec + e.durSec, on: false, pitch: e.pitch})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].atSec < edges[j].atSec })

	const channel = 0
	start := time.Now()
	var playErr error
	for _, ed := range edges {
		wait := time.Until(start.Add(time.Duration(ed.atSec * float64(time.Second))))
		if wait > 0 {
			select {
			case <-ctx.Done():
				playErr = corerr.Wrap(corerr.TimeoutError, "live preview cancelled", ctx.Err())
			case <-time.After(wait):
			}
		}
		if playErr != nil {
			break
		}
		if ed.on {
			d.noteOn(channel, ed.pitch, ed.vel)
		} else {
			d.noteOff(channel, ed.pitch)
		}
	}

	for _, ed := range edges {
		if ed.on {
			d.noteOff(channel, ed.pitch)
		}
	}
	return playErr
}

func (d *liveDevice) noteOn(channel, note, velocity uint8) {
	liveMu.Lock()
	defer liveMu.Unlock()
	if out, ok := liveDevicesOpen[d.name]; ok {
		if err := out.Send([]byte{0x90 | channel, note, velocity}); err != nil {
			log.Printf("[RENDERER] live MIDI note-on error on %s: %v", d.name, err)
		}
	}
}

func (d *liveDevice) noteOff(channel, note uint8) {
	liveMu.Lock()
	defer liveMu.Unlock()
	if out, ok := liveDevicesOpen[d.name]; ok {
		if err := out.Send([]byte{0x80 | channel, note, 0}); err != nil {
			log.Printf("[RENDERER] live MIDI note-off error on %s: %v", d.name, err)
		}
	}
}

func (d *liveDevice) Close() error {
	liveMu.Lock()
	defer liveMu.Unlock()
	if out, ok := liveDevicesOpen[d.name]; ok {
		err := out.Close()
		delete(liveDevicesOpen, d.name)
		return err
	}
	return nil
}
