package tones

import (
	"errors"
	"fmt"
)

// Policy turns per-block tone measurements into a debounced press decision.
type Policy interface {
	// Observe consumes one block's results for the low and high tone and
	// reports whether a press is declared.
	Observe(lo, hi BlockResult) bool
	// Reset clears all counters and flags.
	Reset()
	Name() string
}

// Policy names accepted by NewPolicy
const (
	PolicyCombined   = "combined"
	PolicyContinuous = "continuous"
	PolicyBeep       = "beep"
	PolicyAveraged   = "averaged"
)

// PolicyConfig holds the tuning of every policy.
type PolicyConfig struct {
	MinRun        int     `mapstructure:"min_run"`
	BeepRun       int     `mapstructure:"beep_run"`
	AverageBlocks int     `mapstructure:"average_blocks"`
	Threshold     float64 `mapstructure:"threshold"`
}

// NewPolicy builds a policy by name. Run lengths and block counts below
// one are rejected: a zero-length beep run matches silence.
func NewPolicy(name string, cfg PolicyConfig) (Policy, error) {
	switch name {
	case PolicyContinuous:
		if err := atLeastOne("min_run", cfg.MinRun); err != nil {
			return nil, err
		}
		return &ContinuousPolicy{MinRun: cfg.MinRun}, nil
	case PolicyBeep:
		if err := atLeastOne("beep_run", cfg.BeepRun); err != nil {
			return nil, err
		}
		return &BeepPolicy{RunLength: cfg.BeepRun}, nil
	case PolicyAveraged:
		if err := atLeastOne("average_blocks", cfg.AverageBlocks); err != nil {
			return nil, err
		}
		if cfg.Threshold <= 0 {
			return nil, fmt.Errorf("averaged tone policy needs a positive threshold, got %v", cfg.Threshold)
		}
		return &AveragedPolicy{Blocks: cfg.AverageBlocks, Threshold: cfg.Threshold}, nil
	case "", PolicyCombined:
		if err := errors.Join(atLeastOne("min_run", cfg.MinRun), atLeastOne("beep_run", cfg.BeepRun)); err != nil {
			return nil, err
		}
		return NewCombinedPolicy(cfg.MinRun, cfg.BeepRun), nil
	}
	return nil, fmt.Errorf("unknown tone policy %q", name)
}

func atLeastOne(key string, v int) error {
	if v < 1 {
		return fmt.Errorf("tone %s must be at least 1, got %d", key, v)
	}
	return nil
}

// ContinuousPolicy is for phones that hold both tones while the key is down:
// a press is declared when both tones have been detected in MinRun
// consecutive blocks. Any miss resets that tone's counter.
type ContinuousPolicy struct {
	MinRun int
	lo, hi int
}

func (p *ContinuousPolicy) Name() string { return PolicyContinuous }

func (p *ContinuousPolicy) Observe(lo, hi BlockResult) bool {
	p.lo = advance(p.lo, lo.Detected)
	p.hi = advance(p.hi, hi.Detected)
	if p.lo >= p.MinRun && p.hi >= p.MinRun {
		p.Reset()
		return true
	}
	return false
}

func (p *ContinuousPolicy) Reset() {
	p.lo, p.hi = 0, 0
}

// Counts returns the current consecutive-detection counters.
func (p *ContinuousPolicy) Counts() (lo, hi int) {
	return p.lo, p.hi
}

func advance(n int, detected bool) int {
	if detected {
		return n + 1
	}
	return 0
}

// BeepPolicy is for phones that emit a short beep per key press. When a
// run of detections ends, its length is remembered; a run of exactly
// RunLength blocks on both tones counts as one beep. Two beeps within the
// same window declare a press, which keeps ambient noise from producing
// entries on its own.
type BeepPolicy struct {
	RunLength int

	lo, hi       int
	loWas, hiWas int
	beeps        int
}

func (p *BeepPolicy) Name() string { return PolicyBeep }

func (p *BeepPolicy) Observe(lo, hi BlockResult) bool {
	if lo.Detected {
		p.lo++
	} else {
		p.loWas, p.lo = p.lo, 0
	}
	if hi.Detected {
		p.hi++
	} else {
		p.hiWas, p.hi = p.hi, 0
	}

	if p.loWas != p.RunLength || p.hiWas != p.RunLength {
		return false
	}
	if p.beeps == 0 {
		p.beeps = 1
		p.loWas, p.hiWas = 0, 0
		return false
	}
	p.Reset()
	return true
}

func (p *BeepPolicy) Reset() {
	p.lo, p.hi = 0, 0
	p.loWas, p.hiWas = 0, 0
	p.beeps = 0
}

// Beeps returns how many qualifying beeps have been seen (0 or 1).
func (p *BeepPolicy) Beeps() int {
	return p.beeps
}

// CombinedPolicy runs the continuous and beep policies side by side;
// whichever fires first wins and both are cleared.
type CombinedPolicy struct {
	Continuous *ContinuousPolicy
	Beep       *BeepPolicy
}

// NewCombinedPolicy builds the default two-policy detector.
func NewCombinedPolicy(minRun, beepRun int) *CombinedPolicy {
	return &CombinedPolicy{
		Continuous: &ContinuousPolicy{MinRun: minRun},
		Beep:       &BeepPolicy{RunLength: beepRun},
	}
}

func (p *CombinedPolicy) Name() string { return PolicyCombined }

func (p *CombinedPolicy) Observe(lo, hi BlockResult) bool {
	c := p.Continuous.Observe(lo, hi)
	b := p.Beep.Observe(lo, hi)
	if c || b {
		p.Reset()
		return true
	}
	return false
}

func (p *CombinedPolicy) Reset() {
	p.Continuous.Reset()
	p.Beep.Reset()
}

// AveragedPolicy averages the magnitudes of each tone over Blocks blocks
// and declares a press when both averages exceed Threshold. A decision is
// only made at the end of each group of blocks.
type AveragedPolicy struct {
	Blocks    int
	Threshold float64

	n            int
	sumLo, sumHi float64
}

func (p *AveragedPolicy) Name() string { return PolicyAveraged }

func (p *AveragedPolicy) Observe(lo, hi BlockResult) bool {
	p.n++
	p.sumLo += lo.Magnitude
	p.sumHi += hi.Magnitude
	if p.n < p.Blocks {
		return false
	}
	avgLo := p.sumLo / float64(p.n)
	avgHi := p.sumHi / float64(p.n)
	p.Reset()
	return avgLo > p.Threshold && avgHi > p.Threshold
}

func (p *AveragedPolicy) Reset() {
	p.n = 0
	p.sumLo, p.sumHi = 0, 0
}
