package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
	"time"
)

// ReaderSource decodes signed 16-bit little-endian mono samples from r.
type ReaderSource struct {
	r      io.Reader
	closer io.Closer
	raw    []byte
}

// NewReaderSource reads samples from r. If r is an io.Closer it is closed by Close.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{r: r}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile reads raw samples from a file or FIFO, e.g. one fed by
// "arecord -t raw -f S16_LE -c 1 -r 8000". A FIFO is opened non-blocking
// so a missing writer cannot stall the caller: reads then end with io.EOF
// until a writer connects, and honor SetReadDeadline once one has.
func OpenFile(path string) (*ReaderSource, error) {
	flag := os.O_RDONLY
	if st, err := os.Stat(path); err == nil && st.Mode()&fs.ModeNamedPipe != 0 {
		flag |= syscall.O_NONBLOCK
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	return NewReaderSource(f), nil
}

// SetReadDeadline bounds reads when the underlying reader supports
// deadlines, as pipes and FIFOs do. Otherwise it returns ErrNoDeadline.
func (s *ReaderSource) SetReadDeadline(t time.Time) error {
	if d, ok := s.r.(interface{ SetReadDeadline(time.Time) error }); ok {
		return d.SetReadDeadline(t)
	}
	return ErrNoDeadline
}

// ReadFrames fills buf with scaled samples.
func (s *ReaderSource) ReadFrames(buf []float64) (int, error) {
	need := len(buf) * 2
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.r, raw)
	frames := n / 2
	for i := 0; i < frames; i++ {
		buf[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
	}
	switch {
	case err == nil:
		return frames, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return frames, fmt.Errorf("%w: read %d of %d frames", ErrShortRead, frames, len(buf))
	default:
		return frames, err
	}
}

// Close closes the underlying reader if it has a Close method.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
