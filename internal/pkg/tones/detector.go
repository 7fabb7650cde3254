package tones

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/xenogenesi/jcblock/internal/pkg/audio"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// Detector measures both authorization tones over successive audio blocks
// and feeds the results to a Policy.
type Detector struct {
	Low       *Goertzel
	High      *Goertzel
	Threshold float64
	Policy    Policy
	Source    audio.Source
	// Frames is the read granularity; blocks are assembled from reads of
	// at most Frames samples.
	Frames int

	buf    []float64
	lastLo BlockResult
	lastHi BlockResult
}

// Config describes a detector. Frequencies are in Hz.
type Config struct {
	LowHz      float64
	LowN       int
	HighHz     float64
	HighN      int
	SampleRate float64
	Threshold  float64
	Frames     int
	Policy     string
	PolicyConfig
}

// NewDetector builds a detector reading from src.
func NewDetector(cfg Config, src audio.Source) (*Detector, error) {
	if cfg.LowN <= 0 || cfg.HighN <= 0 {
		return nil, fmt.Errorf("tone block sizes must be positive (low %d, high %d)", cfg.LowN, cfg.HighN)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", cfg.SampleRate)
	}
	if cfg.Frames <= 0 {
		return nil, fmt.Errorf("invalid frames per read %d", cfg.Frames)
	}
	pc := cfg.PolicyConfig
	if pc.Threshold == 0 {
		pc.Threshold = cfg.Threshold
	}
	policy, err := NewPolicy(cfg.Policy, pc)
	if err != nil {
		return nil, err
	}
	return &Detector{
		Low:       NewGoertzel(cfg.LowN, cfg.LowHz, cfg.SampleRate),
		High:      NewGoertzel(cfg.HighN, cfg.HighHz, cfg.SampleRate),
		Threshold: cfg.Threshold,
		Policy:    policy,
		Source:    src,
		Frames:    cfg.Frames,
	}, nil
}

// BlockSize is the number of samples consumed per poll.
func (d *Detector) BlockSize() int {
	return max(d.Low.N, d.High.N)
}

// Reset clears the policy state. Called at the start of every window.
func (d *Detector) Reset() {
	d.Policy.Reset()
}

// Poll reads one block, measures both tones and reports whether the policy
// declared a press. Overruns and short reads reset all state and report no
// detection; other source errors are returned.
func (d *Detector) Poll(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	block, err := d.read()
	if err != nil {
		if audio.IsCaptureError(err) {
			logger.Debug("Audio capture failed, resetting tone state", "error", err)
			d.Reset()
			d.lastLo, d.lastHi = BlockResult{}, BlockResult{}
			return false, nil
		}
		return false, err
	}
	lo := ProcessToneSamples(d.Low, block, d.Threshold)
	hi := ProcessToneSamples(d.High, block, d.Threshold)
	d.lastLo, d.lastHi = lo, hi
	return d.Policy.Observe(lo, hi), nil
}

// Listen polls until a press is declared, the window elapses or ctx is
// cancelled. State is reset before the first poll. When the source supports
// read deadlines a stalled read also ends at the window deadline; other
// sources must deliver audio continuously.
func (d *Detector) Listen(ctx context.Context, window time.Duration) (bool, error) {
	d.Reset()
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	if ds, ok := d.Source.(audio.DeadlineSource); ok {
		deadline, _ := ctx.Deadline()
		if err := ds.SetReadDeadline(deadline); err == nil {
			defer func() { _ = ds.SetReadDeadline(time.Time{}) }()
		}
	}
	for {
		found, err := d.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
				return false, nil
			}
			return false, err
		}
		if found {
			return true, nil
		}
	}
}

// Last returns the measurements of the most recent block.
func (d *Detector) Last() (lo, hi BlockResult) {
	return d.lastLo, d.lastHi
}

func (d *Detector) read() ([]float64, error) {
	n := d.BlockSize()
	if cap(d.buf) < n {
		d.buf = make([]float64, n)
	}
	d.buf = d.buf[:n]
	step := d.Frames
	if step <= 0 {
		step = n
	}
	for off := 0; off < n; {
		end := min(off+step, n)
		got, err := d.Source.ReadFrames(d.buf[off:end])
		if err != nil {
			return nil, err
		}
		if got < end-off {
			return nil, fmt.Errorf("%w: %d of %d frames", audio.ErrShortRead, got, end-off)
		}
		off = end
	}
	return d.buf, nil
}

// Close releases the audio source.
func (d *Detector) Close() error {
	if d.Source == nil {
		return nil
	}
	return d.Source.Close()
}

// OnDemand opens the audio source for each authorization window and closes
// it afterwards, so no stale audio is buffered between calls.
type OnDemand struct {
	Config Config
	Open   func() (audio.Source, error)
}

// Listen opens a fresh source and detector and listens for one window.
func (o *OnDemand) Listen(ctx context.Context, window time.Duration) (bool, error) {
	src, err := o.Open()
	if err != nil {
		return false, fmt.Errorf("open audio source: %w", err)
	}
	d, err := NewDetector(o.Config, src)
	if err != nil {
		src.Close()
		return false, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Debug("Closing audio source failed", "error", cerr)
		}
	}()
	return d.Listen(ctx, window)
}
