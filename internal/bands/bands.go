// Package bands turns a Series into contiguous MomentumBands, one per
// adjacent sample pair, scored from the (amplified) local slope and labeled
// via internal/labels.BandLabel. The arranger is responsible for merging
// short bands into sections; this package only produces the raw,
// contiguous, gapless band sequence.
package bands

import (
	"github.com/schollz/sonifycore/internal/labels"
	"github.com/schollz/sonifycore/internal/model"
)

// slopeGain amplifies a single-step delta (max magnitude 1.0 for a [0,1]
// series) into a momentum score: a sharp half-range swing between adjacent
// samples already reads as a strong move, not a barely-there one.
const slopeGain = 2.0

// Extract partitions series into n-1 contiguous MomentumBands covering
// [0,total_duration] (seconds), one per adjacent sample pair, each scored
// from the gain-amplified slope between the two samples and labeled via
// labels.BandLabel (which requires the previous band's score to detect a
// VOLATILE_SPIKE).
func Extract(series model.Series, totalDuration float64) []model.MomentumBand {
	n := len(series)
	if n < 2 {
		return nil
	}
	dt := totalDuration / float64(n-1)

	bands := make([]model.MomentumBand, 0, n-1)
	var prevScore float64
	hasPrev := false

	for i := 1; i < n; i++ {
		score := clamp(slopeGain*(series[i]-series[i-1]), -1, 1)
		lbl := labels.BandLabel(score, prevScore, hasPrev)
		prevScore = score
		hasPrev = true

		t1 := float64(i) * dt
		if i == n-1 {
			t1 = totalDuration
		}
		bands = append(bands, model.MomentumBand{
			T0:    float64(i-1) * dt,
			T1:    t1,
			Label: lbl,
			Score: score,
		})
	}
	return bands
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
