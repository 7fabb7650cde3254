package tones

import "gonum.org/v1/gonum/floats"

// Summary describes the magnitudes seen by a detector over a recording.
type Summary struct {
	Blocks    int     `json:"blocks" yaml:"blocks"`
	LowMean   float64 `json:"low_mean" yaml:"low_mean"`
	LowMax    float64 `json:"low_max" yaml:"low_max"`
	HighMean  float64 `json:"high_mean" yaml:"high_mean"`
	HighMax   float64 `json:"high_max" yaml:"high_max"`
	Suggested float64 `json:"suggested_threshold" yaml:"suggested_threshold"`
}

// Recorder collects per-block magnitudes for calibration.
type Recorder struct {
	lows  []float64
	highs []float64
}

// Add records one block.
func (r *Recorder) Add(lo, hi BlockResult) {
	r.lows = append(r.lows, lo.Magnitude)
	r.highs = append(r.highs, hi.Magnitude)
}

// Summarize reports mean and peak magnitudes for both tones. The suggested
// threshold is half the weaker tone's peak, which assumes the recording
// holds at least one key press.
func (r *Recorder) Summarize() Summary {
	s := Summary{Blocks: len(r.lows)}
	if s.Blocks == 0 {
		return s
	}
	n := float64(s.Blocks)
	s.LowMean = floats.Sum(r.lows) / n
	s.HighMean = floats.Sum(r.highs) / n
	s.LowMax = floats.Max(r.lows)
	s.HighMax = floats.Max(r.highs)
	s.Suggested = min(s.LowMax, s.HighMax) / 2
	return s
}
