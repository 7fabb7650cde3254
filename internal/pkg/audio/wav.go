package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mjibson/go-dsp/wav"
)

// WavSource replays a mono WAV recording at the capture rate. Used to test
// the detector against recorded key presses.
type WavSource struct {
	w      *wav.Wav
	left   int
	closer io.Closer
}

// NewWavSource parses the WAV header from r and checks the format.
func NewWavSource(r io.Reader, rate int) (*WavSource, error) {
	w, err := wav.New(r)
	if err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if int(w.Header.SampleRate) != rate || w.Header.NumChannels != 1 {
		return nil, fmt.Errorf("wav must be mono at %d Hz, got %d channel(s) at %d Hz",
			rate, w.Header.NumChannels, w.Header.SampleRate)
	}
	s := &WavSource{w: w, left: w.Samples}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// ReadFrames fills buf with samples scaled to [-1, 1), the same scale as
// ReaderSource. ReadFloats is not used: it maps 16-bit PCM onto [0, 1].
func (s *WavSource) ReadFrames(buf []float64) (int, error) {
	if s.left <= 0 {
		return 0, io.EOF
	}
	want := min(len(buf), s.left)
	data, err := s.w.ReadSamples(want)
	if err != nil {
		s.left = 0
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: truncated wav data", ErrShortRead)
		}
		return 0, err
	}
	s.left -= want

	switch d := data.(type) {
	case []int16:
		for i, v := range d {
			buf[i] = float64(v) / 32768
		}
	case []uint8:
		for i, v := range d {
			buf[i] = (float64(v) - 128) / 128
		}
	case []float32:
		for i, v := range d {
			buf[i] = float64(v)
		}
	default:
		return 0, fmt.Errorf("unsupported wav sample type %T", data)
	}
	if want < len(buf) {
		return want, fmt.Errorf("%w: read %d of %d frames", ErrShortRead, want, len(buf))
	}
	return want, nil
}

func (s *WavSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens a recording: a .wav file is parsed as WAV, anything else is
// read as raw 16-bit little-endian samples (a file or a FIFO).
func Open(path string, rate int) (Source, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return OpenFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	src, err := NewWavSource(f, rate)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}
