package main

import (
	"crypto/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/sonifycore/internal/catalog"
	"github.com/schollz/sonifycore/internal/core"
	"github.com/schollz/sonifycore/internal/jobstore"
	"github.com/schollz/sonifycore/internal/palette"
	"github.com/schollz/sonifycore/internal/renderer"
)

// envFlags are the collaborator-facing config/feature-flag flags shared by
// every subcommand that needs a live CoreServices: config paths and flags
// live at the CLI boundary, not inside core.
type envFlags struct {
	storeDir      string
	tenant        string
	workers       int
	paletteFile   string
	catalogDir    string
	soundfontPath string
	engineBinPath string
	enginePort    int
	signingKey    string
	urlTTL        time.Duration
	livePreview   bool
	retryWindow   time.Duration
	buildTimeout  time.Duration
}

func addEnvFlags(cmd *cobra.Command, f *envFlags) {
	cmd.Flags().StringVar(&f.storeDir, "store-dir", "./sonifycore-data", "directory for job records and rendered artifacts")
	cmd.Flags().StringVar(&f.tenant, "tenant", "default", "tenant namespace for artifact keys")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "bounded worker pool size")
	cmd.Flags().StringVar(&f.paletteFile, "palette-file", "", "optional YAML file of palettes; built-ins used if unset")
	cmd.Flags().StringVar(&f.catalogDir, "catalog-dir", "", "optional directory of <version>.json motif catalogs")
	cmd.Flags().StringVar(&f.soundfontPath, "soundfont", "", "soundfont path passed to the render engine")
	cmd.Flags().StringVar(&f.engineBinPath, "engine-bin", "", "external synthesis engine binary; falls back to the built-in synth when empty or unreachable")
	cmd.Flags().IntVar(&f.enginePort, "engine-osc-port", 57120, "OSC port the external synthesis engine listens on")
	cmd.Flags().StringVar(&f.signingKey, "signing-key", "", "HMAC key for signed artifact URLs; a random key is generated when empty")
	cmd.Flags().DurationVar(&f.urlTTL, "url-ttl", time.Hour, "signed artifact URL lifetime")
	cmd.Flags().BoolVar(&f.livePreview, "live-preview", false, "allow jobs to audition their MIDI out a real-time port when --live-device is set")
	cmd.Flags().DurationVar(&f.retryWindow, "retry-window", 30*time.Second, "how long a failed job is returned as-is before a resubmission starts a fresh build")
	cmd.Flags().DurationVar(&f.buildTimeout, "build-timeout", 30*time.Second, "bounded runtime budget for a single build attempt before it aborts with TimeoutError")
}

func (f envFlags) buildCore() (*core.CoreServices, error) {
	pals, err := paletteProvider(f.paletteFile)
	if err != nil {
		return nil, err
	}

	key := []byte(f.signingKey)
	if len(key) == 0 {
		key = randomSigningKey()
	}

	store := jobstore.New(f.storeDir, key, f.urlTTL, f.retryWindow)

	var engine *renderer.Engine
	if f.engineBinPath != "" {
		engine = renderer.NewEngine(f.engineBinPath, f.enginePort)
	}

	return core.New(core.Config{
		Palettes:      pals,
		Catalogs:      catalog.NewStore(f.catalogDir),
		Store:         store,
		Tenant:        f.tenant,
		Workers:       f.workers,
		RenderEngine:  engine,
		SoundfontPath: f.soundfontPath,
		LivePreview:   f.livePreview,
		BuildTimeout:  f.buildTimeout,
	}), nil
}

func paletteProvider(path string) (*palette.Store, error) {
	if path == "" {
		return palette.NewBuiltinStore(), nil
	}
	return palette.NewFileStore(path)
}

// randomSigningKey is used only when the collaborator doesn't supply
// --signing-key; signed URLs from one CLI invocation won't validate against
// another process unless the key is pinned explicitly.
func randomSigningKey() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte("sonifycore-dev-key")
	}
	return buf
}
