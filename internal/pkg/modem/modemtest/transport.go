// Package modemtest provides a scripted modem.Transport for tests.
package modemtest

import (
	"strings"
	"sync"

	"github.com/xenogenesi/jcblock/internal/pkg/modem"
)

// Transport is an in-memory modem. Every command written is answered by
// Respond (OK by default). Unsolicited data queued with Queue is returned
// by blocked reads in order; Polled bytes are consumed one per polled read.
type Transport struct {
	mu sync.Mutex

	// Respond returns the chunks the modem sends back for a command
	Respond func(cmd string) []string
	// Idle is called when a blocked read finds nothing queued
	Idle func()
	// OpenErr fails the next Open when set
	OpenErr error

	Opens  []modem.Mode
	Closes int
	Writes []string

	pending []string
	polled  []byte
	open    bool
	mode    modem.Mode
}

// New returns a transport that acknowledges every command.
func New() *Transport {
	return &Transport{}
}

// Queue appends unsolicited chunks, such as caller-ID lines or RING.
func (t *Transport) Queue(chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, chunks...)
}

// QueuePolled appends bytes for polled reads. A zero byte stands for a
// read that finds nothing.
func (t *Transport) QueuePolled(b ...byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.polled = append(t.polled, b...)
}

func (t *Transport) Open(mode modem.Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.OpenErr; err != nil {
		t.OpenErr = nil
		return &modem.OpenError{Port: "fake", Err: err}
	}
	t.Opens = append(t.Opens, mode)
	t.open = true
	t.mode = mode
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closes++
	t.open = false
	return nil
}

func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return 0, modem.ErrNotOpen
	}
	cmd := strings.TrimRight(string(p), "\r")
	t.Writes = append(t.Writes, cmd)
	if cmd == modem.CmdEscape {
		return len(p), nil
	}
	resp := []string{cmd + "\r\r\nOK\r\n"}
	if t.Respond != nil {
		resp = t.Respond(cmd)
	}
	// responses are read before any queued unsolicited data
	t.pending = append(append([]string{}, resp...), t.pending...)
	return len(p), nil
}

func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	if !t.open {
		t.mu.Unlock()
		return 0, modem.ErrNotOpen
	}

	if t.mode == modem.Polled {
		defer t.mu.Unlock()
		if len(t.polled) == 0 {
			return 0, nil
		}
		b := t.polled[0]
		t.polled = t.polled[1:]
		if b == 0 {
			return 0, nil
		}
		p[0] = b
		return 1, nil
	}

	if len(t.pending) == 0 {
		idle := t.Idle
		t.mu.Unlock()
		if idle != nil {
			idle()
		}
		return 0, nil
	}
	chunk := t.pending[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		t.pending[0] = chunk[n:]
	} else {
		t.pending = t.pending[1:]
	}
	t.mu.Unlock()
	return n, nil
}

func (t *Transport) Mode() modem.Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Commands returns a copy of every command written so far.
func (t *Transport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Writes...)
}

// Reset clears the recorded commands and opens.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Writes = nil
	t.Opens = nil
	t.Closes = 0
}
