// Package core wires the sonification pipeline's collaborators into one
// explicit, dependency-injected service: the controls mapper, label
// decider, band extractor, motif selector, arranger, earcon engine, MIDI
// assembler, renderer, and job store all get handed to CoreServices at
// construction instead of reaching for package-level mutable state.
package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/schollz/sonifycore/internal/arranger"
	"github.com/schollz/sonifycore/internal/bands"
	"github.com/schollz/sonifycore/internal/catalog"
	"github.com/schollz/sonifycore/internal/controls"
	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/earcon"
	"github.com/schollz/sonifycore/internal/jobstore"
	"github.com/schollz/sonifycore/internal/labels"
	"github.com/schollz/sonifycore/internal/midiassembler"
	"github.com/schollz/sonifycore/internal/model"
	"github.com/schollz/sonifycore/internal/palette"
	"github.com/schollz/sonifycore/internal/renderer"
)

// PaletteProvider resolves a palette slug; satisfied by *palette.Store.
type PaletteProvider interface {
	Get(slug string) (model.Palette, error)
	List() []model.Palette
}

// CatalogProvider resolves a catalog version; satisfied by *catalog.Store.
type CatalogProvider interface {
	Get(version string) (model.MotifCatalog, error)
}

// Config bundles CoreServices' construction-time dependencies and
// feature-flag style knobs: config paths and feature flags come from the
// environment at the collaborator boundary, not read inside core.
type Config struct {
	Palettes        PaletteProvider
	Catalogs        CatalogProvider
	Rules           labels.RuleSet
	Store           *jobstore.Store
	Tenant          string
	Workers         int
	RenderMP3       bool
	RenderEngine    *renderer.Engine
	SoundfontPath   string
	ArtifactBaseURL string
	LivePreview     bool
	BuildTimeout    time.Duration
}

// CoreServices is the sonification core's public entry point: submit_job,
// get_job, list_palettes, get_catalog.
type CoreServices struct {
	cfg    Config
	tokens chan struct{}
}

// New constructs a CoreServices with a bounded worker pool (default W=4).
func New(cfg Config) *CoreServices {
	w := cfg.Workers
	if w <= 0 {
		w = 4
	}
	if cfg.Palettes == nil {
		cfg.Palettes = palette.NewBuiltinStore()
	}
	if cfg.Catalogs == nil {
		cfg.Catalogs = catalog.NewStore("")
	}
	if cfg.Rules.Rules == nil {
		cfg.Rules = labels.DefaultRuleSet()
	}
	return &CoreServices{cfg: cfg, tokens: make(chan struct{}, w)}
}

// ListPalettes returns the known palette set.
func (c *CoreServices) ListPalettes() []model.Palette {
	return c.cfg.Palettes.List()
}

// GetCatalog returns the named catalog version (or builtin).
func (c *CoreServices) GetCatalog(version string) (model.MotifCatalog, error) {
	return c.cfg.Catalogs.Get(version)
}

// SubmitJob validates req, computes its fingerprint, and either returns an
// existing in-flight/completed job or schedules a new build on the worker
// pool. Submission itself is non-blocking: the actual pipeline run happens
// on a worker goroutine.
func (c *CoreServices) SubmitJob(req model.Request) (model.JobView, error) {
	if err := validateRequest(req); err != nil {
		return model.JobView{}, err
	}

	fp := jobstore.Fingerprint(req)
	jobID := "job-" + fp[:16]
	now := time.Now().Unix()

	job, started := c.cfg.Store.BeginBuild(fp, jobID, now)
	if started {
		go c.runWithRetry(req, fp)
	}
	return c.toView(job), nil
}

// GetJob returns the current view of a job by fingerprint.
func (c *CoreServices) GetJob(fingerprint string) (model.JobView, error) {
	job, ok := c.cfg.Store.Lookup(fingerprint)
	if !ok {
		return model.JobView{}, corerr.New(corerr.InternalError, "no job for fingerprint "+fingerprint)
	}
	return c.toView(job), nil
}

func (c *CoreServices) toView(job *model.Job) model.JobView {
	urls := map[string]string{}
	now := time.Now()
	if job.ArtifactKeys.MIDI != "" {
		urls["midi"] = c.cfg.Store.SignedURL(job.ArtifactKeys.MIDI, now)
	}
	if job.ArtifactKeys.MP3 != "" {
		urls["mp3"] = c.cfg.Store.SignedURL(job.ArtifactKeys.MP3, now)
	}
	if job.ArtifactKeys.PlanJSON != "" {
		urls["plan_json"] = c.cfg.Store.SignedURL(job.ArtifactKeys.PlanJSON, now)
	}
	return model.JobView{
		JobID:        job.JobID,
		State:        job.State,
		Fingerprint:  job.Fingerprint,
		PrimaryLabel: job.PrimaryLabel,
		ArtifactURLs: urls,
		Error:        job.Error,
		Warning:      job.Warning,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// defaultBuildTimeout bounds a single build attempt when Config.BuildTimeout
// is unset.
const defaultBuildTimeout = 30 * time.Second

// runWithRetry acquires a worker slot and runs the pipeline, retrying
// storage failures up to 3x with exponential backoff. Each attempt is
// bounded by Config.BuildTimeout; an attempt that overruns it fails with
// TimeoutError instead of running unbounded.
func (c *CoreServices) runWithRetry(req model.Request, fp string) {
	c.tokens <- struct{}{}
	defer func() { <-c.tokens }()

	c.cfg.Store.MarkRunning(fp, time.Now().Unix())

	timeout := c.cfg.BuildTimeout
	if timeout <= 0 {
		timeout = defaultBuildTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= len(jobstore.RetryBackoff); attempt++ {
		if attempt > 0 {
			time.Sleep(jobstore.RetryBackoff[attempt-1])
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		keys, label, err := c.build(ctx, req, fp)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err == nil {
			cancel()
			_ = c.cfg.Store.MarkSucceeded(fp, keys, label, time.Now().Unix())
			return
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = corerr.Wrap(corerr.TimeoutError, "build exceeded timeout", err)
		}
		cancel()
		lastErr = err
		if corerr.KindOf(err) != corerr.ArtifactIOError {
			break
		}
		log.Printf("[CORE] build attempt %d for fingerprint=%s failed: %v", attempt+1, fp, err)
	}
	_ = c.cfg.Store.MarkFailed(fp, lastErr, time.Now().Unix())
}

// build runs the full pipeline sequentially (no within-job parallelism, to
// guarantee deterministic byte output) and writes artifacts.
func (c *CoreServices) build(ctx context.Context, req model.Request, fp string) (model.ArtifactKeys, model.Label, error) {
	jobID := "job-" + fp[:16]

	pal, err := c.cfg.Palettes.Get(req.PaletteSlug)
	if err != nil {
		return model.ArtifactKeys{}, "", err
	}

	ctrl, err := controls.Map(req.Metrics, req.ControlsOverride)
	if err != nil {
		return model.ArtifactKeys{}, "", err
	}
	if ctrl.TempoBPM < pal.TempoRange[0] {
		ctrl.TempoBPM = pal.TempoRange[0]
	}
	if ctrl.TempoBPM > pal.TempoRange[1] {
		ctrl.TempoBPM = pal.TempoRange[1]
	}

	if err := validateSeries(req.Series); err != nil {
		return model.ArtifactKeys{}, "", err
	}

	totalDurationSec := float64(len(req.Series)) * 2.0
	rawBands := bands.Extract(req.Series, totalDurationSec)

	decider := labels.Decider{Rules: c.cfg.Rules, AllowMLOverride: false}
	primaryLabel := decider.Decide(req.Metrics)

	plan := arranger.Plan(rawBands, ctrl, pal, totalDurationSec, primaryLabel)

	cat, err := c.cfg.Catalogs.Get(req.CatalogVersion)
	if err != nil {
		return model.ArtifactKeys{}, "", err
	}
	if err := catalog.RequireNonEmpty(cat); err != nil {
		return model.ArtifactKeys{}, "", err
	}

	selections := catalog.SelectForSections(plan.Sections, ctrl.TempoBPM, cat, fp, pal.Key)
	for i := range plan.Sections {
		if i < len(selections) {
			plan.Sections[i].MotifIDs = []string{selections[i].MotifID}
		}
	}

	barDurSec := 60.0 / float64(ctrl.TempoBPM) * 4
	earconEvents := earcon.DeriveFromPlan(plan, barDurSec)
	emissions := earcon.Schedule(earconEvents, plan, pal)

	midiBytes, err := midiassembler.Assemble(midiassembler.Input{
		Plan:           plan,
		Selections:     selections,
		Earcons:        emissions,
		Controls:       ctrl,
		PaletteSlug:    pal.Slug,
		PaletteKey:     pal.Key,
		CatalogVersion: cat.Version,
		FingerprintHex: fp,
		Instruments:    pal.Instruments,
	})
	if err != nil {
		return model.ArtifactKeys{}, "", corerr.Wrap(corerr.InternalError, "assemble MIDI", err)
	}

	now := time.Now().Unix()
	midiKey := jobstore.ArtifactKeyMIDI(c.cfg.Tenant, jobID)
	if _, err := c.cfg.Store.WriteArtifact(midiKey, model.ArtifactMIDI, midiBytes, now); err != nil {
		return model.ArtifactKeys{}, "", err
	}

	planJSON, err := marshalPlanJSON(plan, emissions)
	if err != nil {
		return model.ArtifactKeys{}, "", corerr.Wrap(corerr.InternalError, "marshal plan json", err)
	}
	planKey := jobstore.ArtifactKeyPlanJSON(c.cfg.Tenant, jobID)
	if _, err := c.cfg.Store.WriteArtifact(planKey, model.ArtifactJSON, planJSON, now); err != nil {
		return model.ArtifactKeys{}, "", err
	}

	keys := model.ArtifactKeys{MIDI: midiKey, PlanJSON: planKey}

	wantMP3 := c.cfg.RenderMP3
	if req.RenderMP3 != nil {
		wantMP3 = *req.RenderMP3
	}
	if wantMP3 {
		res, rerr := renderer.Render(ctx, midiBytes, renderer.Options{
			SoundfontPath:      c.cfg.SoundfontPath,
			TargetLoudnessLUFS: -14,
			LimiterCeilingDBFS: -1,
			Engine:             c.cfg.RenderEngine,
		})
		if rerr != nil || res == nil || len(res.MP3Bytes) == 0 {
			log.Printf("[CORE] mp3 render unavailable for job %s: %v", jobID, rerr)
		} else {
			mp3Key := jobstore.ArtifactKeyMP3(c.cfg.Tenant, jobID)
			if _, err := c.cfg.Store.WriteArtifact(mp3Key, model.ArtifactMP3, res.MP3Bytes, now); err != nil {
				return model.ArtifactKeys{}, "", err
			}
			keys.MP3 = mp3Key
		}
	}

	if c.cfg.LivePreview && req.LivePreviewDevice != nil {
		c.playLivePreview(jobID, *req.LivePreviewDevice, midiBytes)
	}

	return keys, primaryLabel, nil
}

// playLivePreview auditions a job's assembled MIDI out a real-time port in
// the background. It never affects job state: a missing port or playback
// error is logged only, the same RendererUnavailable-shaped fallback the
// MP3 path uses.
func (c *CoreServices) playLivePreview(jobID, deviceName string, midiBytes []byte) {
	dev, err := renderer.OpenLiveDevice(deviceName)
	if err != nil {
		log.Printf("[CORE] live preview unavailable for job %s: %v", jobID, err)
		return
	}
	go func() {
		defer dev.Close()
		if err := renderer.PlayLive(context.Background(), dev, midiBytes); err != nil {
			log.Printf("[CORE] live preview for job %s ended with error: %v", jobID, err)
		}
	}()
}

func validateRequest(req model.Request) error {
	if err := validateSeries(req.Series); err != nil {
		return err
	}
	for _, name := range []string{"ctr", "impressions", "position", "clicks", "volatility_index"} {
		if v, ok := req.Metrics.Get(name); ok {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
				return corerr.New(corerr.InvalidMetric, fmt.Sprintf("metric %s=%v out of range [0,1]", name, v))
			}
		}
	}
	return nil
}

func validateSeries(s model.Series) error {
	if len(s) < 2 {
		return corerr.New(corerr.InvalidSeries, "series must have length >= 2")
	}
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return corerr.New(corerr.InvalidSeries, "series value out of range [0,1]")
		}
	}
	return nil
}
