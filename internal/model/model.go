// Package model holds the sonification core's shared data model: Series,
// Metrics, Controls, MomentumBand, Label, Motif, MotifCatalog, Palette,
// SongPlan, EarconEmission, Artifact and Job.
package model

// Label is one of the four categorical tags a job (or a momentum band) can
// carry.
type Label string

const (
	MomentumPos   Label = "MOMENTUM_POS"
	MomentumNeg   Label = "MOMENTUM_NEG"
	VolatileSpike Label = "VOLATILE_SPIKE"
	Neutral       Label = "NEUTRAL"
)

// IsValid reports whether l is one of the four defined labels.
func (l Label) IsValid() bool {
	switch l {
	case MomentumPos, MomentumNeg, VolatileSpike, Neutral:
		return true
	}
	return false
}

// Series is an ordered, immutable sequence of floats in [0,1]. Length must
// be >= 2.
type Series []float64

// Metrics maps metric name to value in [0,1]; missing values are treated as
// 0.5 by callers that read via Get.
type Metrics struct {
	CTR             *float64
	Impressions     *float64
	Position        *float64
	Clicks          *float64
	VolatilityIndex *float64
}

const missingDefault = 0.5

// Get returns the named metric value or 0.5 if unset. Unknown names return
// (0, false).
func (m Metrics) Get(name string) (float64, bool) {
	var p *float64
	switch name {
	case "ctr":
		p = m.CTR
	case "impressions":
		p = m.Impressions
	case "position":
		p = m.Position
	case "clicks":
		p = m.Clicks
	case "volatility_index":
		p = m.VolatilityIndex
	default:
		return 0, false
	}
	if p == nil {
		return missingDefault, true
	}
	return *p, true
}

// Controls are the derived musical control values a job carries.
type Controls struct {
	TempoBPM   int `json:"tempo_bpm"`
	Velocity   int `json:"velocity"`
	Transpose  int `json:"transpose"`
	FilterCC74 int `json:"filter_cc74"`
	ReverbCC91 int `json:"reverb_cc91"`
	Bars       int `json:"bars,omitempty"`
}

// ControlsOverride carries caller-supplied overrides, applied after the
// mapped value is computed and clamped.
type ControlsOverride struct {
	TempoBPM  *int
	Velocity  *int
	Transpose *int
	Bars      *int
}

// MomentumBand is one contiguous, labeled segment of the input series.
type MomentumBand struct {
	T0    float64 `json:"t0"`
	T1    float64 `json:"t1"`
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// MotifEvent is a single note event inside a Motif, timed in beats.
type MotifEvent struct {
	T     float64 `json:"t"`
	Pitch int     `json:"pitch"`
	Dur   float64 `json:"dur"`
	Vel   int     `json:"vel"`
	Chan  int     `json:"chan"`
}

// Motif is a short, labeled musical fragment.
type Motif struct {
	ID        string       `json:"id"`
	Label     Label        `json:"label"`
	Bars      int          `json:"bars"`
	Events    []MotifEvent `json:"events"`
	TempoHint *int         `json:"tempo_hint,omitempty"`
}

// MotifCatalog is a versioned, append-only-within-version set of motifs.
type MotifCatalog struct {
	Version string        `json:"version"`
	Motifs  []Motif       `json:"motifs"`
	Stats   map[Label]int `json:"stats"`
}

// Instruments names the General MIDI program numbers a palette assigns to
// each voice.
type Instruments struct {
	Lead int   `json:"lead"`
	Pad  int   `json:"pad"`
	Bass int   `json:"bass"`
	Perc []int `json:"perc"`
}

// Palette is a read-only, named bundle of key/tempo defaults, instrument
// choices, and an earcon bank.
type Palette struct {
	Slug          string            `json:"slug" yaml:"slug"`
	Key           string            `json:"key" yaml:"key"`
	Mode          string            `json:"mode" yaml:"mode"`
	TempoRange    [2]int            `json:"tempo_range" yaml:"tempo_range"`
	DefaultTempo  int               `json:"default_tempo" yaml:"default_tempo"`
	Instruments   Instruments       `json:"instruments" yaml:"instruments"`
	EarconBank    map[string]string `json:"earcon_bank" yaml:"earcon_bank"`
	RhythmFeel    string            `json:"rhythm_feel" yaml:"rhythm_feel"`
	ChordTemplate string            `json:"chord_template" yaml:"chord_template"`
}

// Dynamics is one of the five dynamic markings used by the Arranger and MIDI
// Assembler.
type Dynamics string

const (
	DynPP Dynamics = "pp"
	DynP  Dynamics = "p"
	DynMF Dynamics = "mf"
	DynF  Dynamics = "f"
	DynFF Dynamics = "ff"
)

// ChordSymbol is a scale-degree chord symbol like "I", "vi", "IV" (lowercase
// roman numerals denote minor triads).
type ChordSymbol string

// Section is one block of a SongPlan.
type Section struct {
	StartBar        int           `json:"start_bar"`
	LengthBars      int           `json:"length_bars"`
	Key             string        `json:"key"`
	Mode            string        `json:"mode"`
	Tempo           int           `json:"tempo"`
	ChordGrid       []ChordSymbol `json:"chord_grid"`
	MotifIDs        []string      `json:"motif_ids"`
	Dynamics        Dynamics      `json:"dynamics"`
	Label           Label         `json:"label"`
	BorrowedCadence bool          `json:"borrowed_cadence,omitempty"`
}

// SongPlan is the intermediate representation between analysis and MIDI
// bytes.
type SongPlan struct {
	TotalBars int       `json:"total_bars"`
	Sections  []Section `json:"sections"`
}

// EarconEmission is a scheduled earcon, resolved against a palette's earcon
// bank and snapped to the 16th-note grid.
type EarconEmission struct {
	TimeBeats  float64 `json:"time_beats"`
	Kind       string  `json:"kind"`
	Instrument int     `json:"instrument"`
	Channel    int     `json:"channel"`
	Pitches    []int   `json:"pitches"`
	DurBeats   float64 `json:"dur_beats"`
	Velocity   int     `json:"velocity"`
}

// ArtifactKind names the kind of a stored artifact.
type ArtifactKind string

const (
	ArtifactMIDI ArtifactKind = "midi"
	ArtifactMP3  ArtifactKind = "mp3"
	ArtifactJSON ArtifactKind = "json"
)

// Artifact describes one stored output of a job.
type Artifact struct {
	Kind        ArtifactKind `json:"kind"`
	Key         string       `json:"key"`
	BytesSHA256 string       `json:"bytes_sha256"`
	Size        int          `json:"size"`
	CreatedAt   int64        `json:"created_at"`
}

// JobState is one of the job state-machine states.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// ArtifactKeys names the storage keys for a job's artifacts.
type ArtifactKeys struct {
	MIDI     string `json:"midi,omitempty"`
	MP3      string `json:"mp3,omitempty"`
	PlanJSON string `json:"plan_json,omitempty"`
}

// Job is the unit of work and cache the store tracks, keyed by fingerprint.
type Job struct {
	Fingerprint  string       `json:"fingerprint"`
	JobID        string       `json:"job_id"`
	State        JobState     `json:"state"`
	PrimaryLabel Label        `json:"primary_label,omitempty"`
	CreatedAt    int64        `json:"created_at"`
	UpdatedAt    int64        `json:"updated_at"`
	ArtifactKeys ArtifactKeys `json:"artifact_keys"`
	ErrorKind    string       `json:"error_kind,omitempty"`
	Error        string       `json:"error,omitempty"`
	Warning      string       `json:"warning,omitempty"`
	Attempt      int          `json:"attempt"`
}

// Request is the public submit_job input.
type Request struct {
	Series            Series            `json:"series"`
	Metrics           Metrics           `json:"metrics"`
	PaletteSlug       string            `json:"palette_slug"`
	ControlsOverride  *ControlsOverride `json:"controls_override,omitempty"`
	CatalogVersion    string            `json:"catalog_version,omitempty"`
	Seed              *int64            `json:"seed,omitempty"`
	RenderMP3         *bool             `json:"render_mp3,omitempty"`
	LivePreviewDevice *string           `json:"live_preview_device,omitempty"`
}

// JobView is the public get_job output.
type JobView struct {
	JobID        string            `json:"job_id"`
	State        JobState          `json:"state"`
	Fingerprint  string            `json:"fingerprint"`
	PrimaryLabel Label             `json:"primary_label,omitempty"`
	ArtifactURLs map[string]string `json:"artifact_urls"`
	Error        string            `json:"error,omitempty"`
	Warning      string            `json:"warning,omitempty"`
	CreatedAt    int64             `json:"created_at"`
	UpdatedAt    int64             `json:"updated_at"`
}
