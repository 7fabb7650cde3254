package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// ArecordSource captures from an ALSA device through the arecord utility.
type ArecordSource struct {
	cmd     *exec.Cmd
	src     *ReaderSource
	overrun atomic.Bool
	done    chan struct{}
}

// ArecordArgs returns the arecord arguments for raw mono capture at rate.
func ArecordArgs(device string, rate int) []string {
	args := []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", strconv.Itoa(rate)}
	if device != "" {
		args = append(args, "-D", device)
	}
	return args
}

// StartArecord launches arecord on device.
func StartArecord(device string, rate int) (*ArecordSource, error) {
	cmd := exec.Command("arecord", ArecordArgs(device, rate)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("arecord stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("arecord stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start arecord: %w", err)
	}

	a := &ArecordSource{
		cmd:  cmd,
		src:  NewReaderSource(stdout),
		done: make(chan struct{}),
	}
	go a.watch(stderr)
	return a, nil
}

// watch flags overruns reported by arecord on stderr.
func (a *ArecordSource) watch(stderr io.Reader) {
	defer close(a.done)
	sc := bufio.NewScanner(stderr)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "overrun") {
			a.overrun.Store(true)
			continue
		}
		logger.Debug("arecord", "message", line)
	}
}

// SetReadDeadline bounds reads from arecord's output pipe.
func (a *ArecordSource) SetReadDeadline(t time.Time) error {
	return a.src.SetReadDeadline(t)
}

// ReadFrames reads the next block. A pending overrun report fails the read
// once so the detector restarts from clean state.
func (a *ArecordSource) ReadFrames(buf []float64) (int, error) {
	n, err := a.src.ReadFrames(buf)
	if a.overrun.Swap(false) {
		return 0, ErrOverrun
	}
	return n, err
}

// Close stops arecord and waits for it to exit.
func (a *ArecordSource) Close() error {
	if a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
	}
	err := a.cmd.Wait()
	<-a.done
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("arecord: %w", err)
	}
	return nil
}
