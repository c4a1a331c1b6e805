package jobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/schollz/sonifycore/internal/model"
)

// Fingerprint computes the stable, content-addressed identity of a Request:
// canonical key=value pairs, sorted, floats rounded to 6 decimals, hashed
// with SHA-256, returned as hex. A request with no
// explicit seed gets one derived from the hash of its other fields, so two
// callers who never mention a seed still land on the same fingerprint.
func Fingerprint(req model.Request) string {
	seed := DeriveSeed(req)
	if req.Seed != nil {
		seed = *req.Seed
	}
	return fingerprintWithSeed(req, seed)
}

// DeriveSeed computes the seed a Request falls back to when it carries none,
// independent of any seed value already on req.
func DeriveSeed(req model.Request) int64 {
	req.Seed = nil
	sum := sha256.Sum256([]byte(fingerprintWithSeed(req, 0)))
	return int64(sum[0])<<56 | int64(sum[1])<<48 | int64(sum[2])<<40 | int64(sum[3])<<32 |
		int64(sum[4])<<24 | int64(sum[5])<<16 | int64(sum[6])<<8 | int64(sum[7])
}

func fingerprintWithSeed(req model.Request, seed int64) string {
	var parts []string

	parts = append(parts, "palette="+req.PaletteSlug)
	parts = append(parts, "catalog="+orDefault(req.CatalogVersion, "builtin"))
	parts = append(parts, "series="+seriesKey(req.Series))
	parts = append(parts, metricsKey(req.Metrics)...)
	parts = append(parts, overrideKey(req.ControlsOverride)...)
	parts = append(parts, "seed="+strconv.FormatInt(seed, 10))
	if req.RenderMP3 != nil {
		parts = append(parts, "render_mp3="+strconv.FormatBool(*req.RenderMP3))
	}

	sort.Strings(parts)
	joined := strings.Join(parts, "&")

	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

func seriesKey(s model.Series) string {
	vals := make([]string, len(s))
	for i, v := range s {
		vals[i] = strconv.FormatFloat(round6(v), 'f', 6, 64)
	}
	return strings.Join(vals, ",")
}

func metricsKey(m model.Metrics) []string {
	var out []string
	for _, name := range []string{"ctr", "impressions", "position", "clicks", "volatility_index"} {
		if v, ok := m.Get(name); ok {
			out = append(out, "metric."+name+"="+strconv.FormatFloat(round6(v), 'f', 6, 64))
		}
	}
	return out
}

func overrideKey(o *model.ControlsOverride) []string {
	if o == nil {
		return nil
	}
	var out []string
	if o.TempoBPM != nil {
		out = append(out, "override.tempo_bpm="+strconv.Itoa(*o.TempoBPM))
	}
	if o.Velocity != nil {
		out = append(out, "override.velocity="+strconv.Itoa(*o.Velocity))
	}
	if o.Transpose != nil {
		out = append(out, "override.transpose="+strconv.Itoa(*o.Transpose))
	}
	if o.Bars != nil {
		out = append(out, "override.bars="+strconv.Itoa(*o.Bars))
	}
	return out
}
