// Package renderer implements the optional MIDI -> MP3 renderer: invoke an
// external soundfont synthesis engine over OSC, managing it as a
// subprocess, assemble the resulting PCM into a WAV with
// github.com/go-audio/wav, apply a brickwall limiter, and shell out to
// lame for MP3 CBR 192kbps encoding. A missing engine binary falls back to
// the internal sine synth; a missing lame degrades to RendererUnavailable
// rather than failing the job.
package renderer

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sync"

	"github.com/schollz/sonifycore/internal/corerr"
)

// Engine manages an external synthesis engine process, started on demand
// and reused across renders, with graceful-then-forceful shutdown.
type Engine struct {
	mu      sync.Mutex
	binPath string
	oscPort int
	cmd     *exec.Cmd
	started bool
}

// NewEngine returns an Engine that will launch binPath (a soundfont
// synthesis server understood to accept OSC render commands) and talk to
// it on oscPort. binPath=="" means no engine is configured at all.
func NewEngine(binPath string, oscPort int) *Engine {
	return &Engine{binPath: binPath, oscPort: oscPort}
}

// Available reports whether an engine binary is configured and resolvable.
func (e *Engine) Available() bool {
	if e.binPath == "" {
		return false
	}
	_, err := exec.LookPath(e.binPath)
	return err == nil
}

// Start launches the engine process if not already running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if !e.Available() {
		return corerr.New(corerr.RendererUnavailable, "synthesis engine binary not found: "+e.binPath)
	}

	e.cmd = exec.CommandContext(ctx, e.binPath, "--osc-port", fmt.Sprintf("%d", e.oscPort))
	setupProcessGroup(e.cmd)

	if err := e.cmd.Start(); err != nil {
		return corerr.Wrap(corerr.RendererUnavailable, "failed to start synthesis engine", err)
	}
	e.started = true
	log.Printf("[RENDERER] started synthesis engine pid=%d port=%d", e.cmd.Process.Pid, e.oscPort)
	return nil
}

// Stop gracefully terminates the engine process, matching
// process_unix.go's SIGTERM-then-SIGKILL escalation.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.cmd == nil {
		return
	}
	killProcessGroup(e.cmd)
	e.started = false
	log.Printf("[RENDERER] stopped synthesis engine")
}
