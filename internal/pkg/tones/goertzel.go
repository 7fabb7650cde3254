// Package tones detects the operator's authorization key press: two fixed
// tones picked up by a microphone near the modem speaker.
//
// Each tone is measured by a Goertzel resonator, a single-bin DFT run as a
// second-order recursive filter over a block of N samples. N is chosen so
// the target frequency falls at or near the center of its bin at 8 kHz:
// bin width is SampleRate/N and the bin index is round(N*f/SampleRate).
package tones

import "math"

// Goertzel is a resonator tuned to one frequency over blocks of N samples.
type Goertzel struct {
	N          int
	TargetHz   float64
	SampleRate float64
	// K is the bin index the resonator is centered on
	K int

	sine   float64
	cosine float64
	coeff  float64
}

// NewGoertzel precomputes the resonator constants for a target frequency.
func NewGoertzel(n int, targetHz, sampleRate float64) *Goertzel {
	fn := float64(n)
	k := int(0.5 + fn*targetHz/sampleRate)
	omega := 2.0 * math.Pi * float64(k) / fn
	return &Goertzel{
		N:          n,
		TargetHz:   targetHz,
		SampleRate: sampleRate,
		K:          k,
		sine:       math.Sin(omega),
		cosine:     math.Cos(omega),
		coeff:      2.0 * math.Cos(omega),
	}
}

// BinWidth is the frequency resolution in Hz.
func (g *Goertzel) BinWidth() float64 {
	return g.SampleRate / float64(g.N)
}

// CenterHz is the center frequency of the resonator's bin.
func (g *Goertzel) CenterHz() float64 {
	return float64(g.K) * g.BinWidth()
}

// MagnitudeSquared runs the resonator over the first N samples, seeded at
// zero, and returns the squared spectral magnitude.
func (g *Goertzel) MagnitudeSquared(samples []float64) float64 {
	if len(samples) > g.N {
		samples = samples[:g.N]
	}
	var q1, q2 float64
	for _, s := range samples {
		q0 := g.coeff*q1 - q2 + s
		q2 = q1
		q1 = q0
	}
	real := q1 - q2*g.cosine
	imag := q2 * g.sine
	return real*real + imag*imag
}

// Magnitude returns the spectral magnitude over the first N samples.
func (g *Goertzel) Magnitude(samples []float64) float64 {
	return math.Sqrt(g.MagnitudeSquared(samples))
}

// BlockResult is the measurement of one tone over one block.
type BlockResult struct {
	Magnitude float64
	Detected  bool
}

// ProcessToneSamples measures one block against a threshold.
func ProcessToneSamples(g *Goertzel, samples []float64, threshold float64) BlockResult {
	m := g.Magnitude(samples)
	return BlockResult{Magnitude: m, Detected: m > threshold}
}
