package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/sonifycore/internal/model"
)

// requestFile is the on-disk shape --input accepts: series plus whichever
// metrics are known, so a collaborator can hand the CLI a file instead of
// threading every metric through a flag.
type requestFile struct {
	Series      []float64 `json:"series"`
	CTR         *float64  `json:"ctr,omitempty"`
	Impressions *float64  `json:"impressions,omitempty"`
	Position    *float64  `json:"position,omitempty"`
	Clicks      *float64  `json:"clicks,omitempty"`
	Volatility  *float64  `json:"volatility_index,omitempty"`
}

func newRunCmd() *cobra.Command {
	var env envFlags
	var input string
	var seriesFlag string
	var ctr, impressions, position, clicks, volatility float64
	var paletteSlug string
	var catalogVersion string
	var seed int64
	var bars int
	var renderMP3 bool
	var tempoOverride, velocityOverride, transposeOverride int
	var liveDevice string
	var poll time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a job and wait for it to finish, printing the resulting job view as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req, err := buildRequest(requestBuildArgs{
				input:          input,
				seriesFlag:     seriesFlag,
				ctr:            ctr, haveCTR: flags.Changed("ctr"),
				impressions: impressions, haveImpressions: flags.Changed("impressions"),
				position: position, havePosition: flags.Changed("position"),
				clicks: clicks, haveClicks: flags.Changed("clicks"),
				volatility: volatility, haveVolatility: flags.Changed("volatility-index"),
				paletteSlug:    paletteSlug,
				catalogVersion: catalogVersion,
				seed:           seed, haveSeed: flags.Changed("seed"),
				bars:          bars,
				renderMP3:     renderMP3,
				haveRenderMP3: flags.Changed("render-mp3"),
				tempoOverride:     tempoOverride,
				haveTempoOverride: flags.Changed("tempo-override"),
				velocityOverride:     velocityOverride,
				haveVelocityOverride: flags.Changed("velocity-override"),
				transposeOverride:     transposeOverride,
				haveTransposeOverride: flags.Changed("transpose-override"),
				liveDevice:            liveDevice,
				haveLiveDevice:        flags.Changed("live-device"),
			})
			if err != nil {
				return err
			}

			c, err := env.buildCore()
			if err != nil {
				return err
			}

			view, err := c.SubmitJob(req)
			if err != nil {
				return err
			}

			deadline := time.Now().Add(timeout)
			for view.State != model.JobSucceeded && view.State != model.JobFailed && time.Now().Before(deadline) {
				time.Sleep(poll)
				view, err = c.GetJob(view.Fingerprint)
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}

	addEnvFlags(cmd, &env)
	cmd.Flags().StringVar(&input, "input", "", "JSON file with series + metrics (see requestFile)")
	cmd.Flags().StringVar(&seriesFlag, "series", "", "comma-separated series values, e.g. 0.1,0.4,0.9 (overrides --input's series)")
	cmd.Flags().Float64Var(&ctr, "ctr", 0, "ctr metric value in [0,1]")
	cmd.Flags().Float64Var(&impressions, "impressions", 0, "impressions metric value in [0,1]")
	cmd.Flags().Float64Var(&position, "position", 0, "position metric value in [0,1]")
	cmd.Flags().Float64Var(&clicks, "clicks", 0, "clicks metric value in [0,1]")
	cmd.Flags().Float64Var(&volatility, "volatility-index", 0, "volatility_index metric value in [0,1]")
	cmd.Flags().StringVar(&paletteSlug, "palette", "", "palette slug (required)")
	cmd.Flags().StringVar(&catalogVersion, "catalog-version", "", "motif catalog version; built-in if unset")
	cmd.Flags().Int64Var(&seed, "seed", 0, "deterministic PRNG seed; derived from the request when unset")
	cmd.Flags().IntVar(&bars, "bars", 0, "override total bar count (0 = derive from series length and tempo)")
	cmd.Flags().BoolVar(&renderMP3, "render-mp3", false, "render an MP3 alongside the MIDI file")
	cmd.Flags().IntVar(&tempoOverride, "tempo-override", 0, "controls override: tempo_bpm")
	cmd.Flags().IntVar(&velocityOverride, "velocity-override", 0, "controls override: velocity")
	cmd.Flags().IntVar(&transposeOverride, "transpose-override", 0, "controls override: transpose")
	cmd.Flags().StringVar(&liveDevice, "live-device", "", "audition the job's MIDI out this real-time port (requires --live-preview on the core); empty picks the first available port")
	cmd.Flags().DurationVar(&poll, "poll-interval", 50*time.Millisecond, "how often to poll job state")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the job to finish")

	_ = cmd.MarkFlagRequired("palette")
	return cmd
}

type requestBuildArgs struct {
	input          string
	seriesFlag     string
	ctr            float64
	haveCTR        bool
	impressions    float64
	haveImpressions bool
	position       float64
	havePosition   bool
	clicks         float64
	haveClicks     bool
	volatility     float64
	haveVolatility bool
	paletteSlug    string
	catalogVersion string
	seed           int64
	haveSeed       bool
	bars           int
	renderMP3      bool
	haveRenderMP3  bool
	tempoOverride     int
	haveTempoOverride bool
	velocityOverride     int
	haveVelocityOverride bool
	transposeOverride     int
	haveTransposeOverride bool
	liveDevice            string
	haveLiveDevice        bool
}

func buildRequest(a requestBuildArgs) (model.Request, error) {
	var rf requestFile
	if a.input != "" {
		data, err := os.ReadFile(a.input)
		if err != nil {
			return model.Request{}, err
		}
		if err := json.Unmarshal(data, &rf); err != nil {
			return model.Request{}, fmt.Errorf("parsing --input %s: %w", a.input, err)
		}
	}

	series := model.Series(rf.Series)
	if a.seriesFlag != "" {
		parsed, err := parseSeries(a.seriesFlag)
		if err != nil {
			return model.Request{}, err
		}
		series = parsed
	}

	metrics := model.Metrics{CTR: rf.CTR, Impressions: rf.Impressions, Position: rf.Position, Clicks: rf.Clicks, VolatilityIndex: rf.Volatility}
	if a.haveCTR {
		metrics.CTR = &a.ctr
	}
	if a.haveImpressions {
		metrics.Impressions = &a.impressions
	}
	if a.havePosition {
		metrics.Position = &a.position
	}
	if a.haveClicks {
		metrics.Clicks = &a.clicks
	}
	if a.haveVolatility {
		metrics.VolatilityIndex = &a.volatility
	}

	req := model.Request{
		Series:         series,
		Metrics:        metrics,
		PaletteSlug:    a.paletteSlug,
		CatalogVersion: a.catalogVersion,
	}
	if a.haveSeed {
		req.Seed = &a.seed
	}
	if a.haveRenderMP3 {
		req.RenderMP3 = &a.renderMP3
	}
	if a.haveLiveDevice {
		req.LivePreviewDevice = &a.liveDevice
	}

	var override model.ControlsOverride
	var haveOverride bool
	if a.haveTempoOverride {
		override.TempoBPM = &a.tempoOverride
		haveOverride = true
	}
	if a.haveVelocityOverride {
		override.Velocity = &a.velocityOverride
		haveOverride = true
	}
	if a.haveTransposeOverride {
		override.Transpose = &a.transposeOverride
		haveOverride = true
	}
	if a.bars > 0 {
		override.Bars = &a.bars
		haveOverride = true
	}
	if haveOverride {
		req.ControlsOverride = &override
	}

	return req, nil
}

func parseSeries(s string) (model.Series, error) {
	parts := strings.Split(s, ",")
	out := make(model.Series, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing --series value %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
