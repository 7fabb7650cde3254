package session

import "fmt"

// RingGate decides from the ring count whether the authorization window is
// offered for an unlisted call.
type RingGate interface {
	Allow(rings int) bool
	Name() string
}

// Gate names accepted by NewRingGate
const (
	GateAnsweringMachine = "answering-machine"
	GateAny              = "any"
)

// NewRingGate builds a gate by name.
func NewRingGate(name string, rings int) (RingGate, error) {
	switch name {
	case "", GateAnsweringMachine:
		return AnsweringMachineGate{Required: rings}, nil
	case GateAny:
		return AnyGate{Min: rings}, nil
	}
	return nil, fmt.Errorf("unknown ring gate %q", name)
}

// AnsweringMachineGate offers the window only when the call was picked up
// after exactly Required rings. An answering machine on the same line must
// be set to answer later than that.
type AnsweringMachineGate struct {
	Required int
}

func (g AnsweringMachineGate) Allow(rings int) bool { return rings == g.Required }
func (AnsweringMachineGate) Name() string { return GateAnsweringMachine }

// AnyGate offers the window once the call has rung at least Min times.
type AnyGate struct {
	Min int
}

func (g AnyGate) Allow(rings int) bool { return rings >= g.Min }
func (AnyGate) Name() string { return GateAny }
