package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	var b bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&b, binary.LittleEndian, s)
	}
	return b.Bytes()
}

func TestReaderSource_Scales(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(pcm(0, 16384, -32768, 32767)))
	buf := make([]float64, 4)

	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 0.0, buf[0])
	assert.Equal(t, 0.5, buf[1])
	assert.Equal(t, -1.0, buf[2])
	assert.InDelta(t, 1.0, buf[3], 1e-4)
}

func TestReaderSource_ShortRead(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(pcm(1, 2, 3)))
	buf := make([]float64, 4)

	n, err := src.ReadFrames(buf)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.True(t, IsCaptureError(err))

	_, err = src.ReadFrames(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, IsCaptureError(err))
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReaderSource_Close(t *testing.T) {
	rc := &closeRecorder{Reader: bytes.NewReader(nil)}
	require.NoError(t, NewReaderSource(rc).Close())
	assert.True(t, rc.closed)

	require.NoError(t, NewReaderSource(bytes.NewReader(nil)).Close())
}

func TestReaderSource_NoDeadline(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(nil))
	assert.ErrorIs(t, src.SetReadDeadline(time.Now()), ErrNoDeadline)
}

func TestArecordArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "8000", "-D", "hw:1"},
		ArecordArgs("hw:1", 8000))
	assert.NotContains(t, ArecordArgs("", 8000), "-D")
}

func TestIsCaptureError(t *testing.T) {
	assert.True(t, IsCaptureError(ErrOverrun))
	assert.False(t, IsCaptureError(errors.New("device gone")))
}

func wavFile(rate uint32, channels uint16, samples ...int16) []byte {
	data := pcm(samples...)
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, channels)
	_ = binary.Write(&b, binary.LittleEndian, rate)
	_ = binary.Write(&b, binary.LittleEndian, rate*uint32(channels)*2)
	_ = binary.Write(&b, binary.LittleEndian, channels*2)
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestWavSource(t *testing.T) {
	src, err := NewWavSource(bytes.NewReader(wavFile(8000, 1, 0, 16384, -16384, 0, 32767)), 8000)
	require.NoError(t, err)

	buf := make([]float64, 2)
	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{0, 0.5}, buf)

	n, err = src.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{-0.5, 0}, buf)

	n, err = src.ReadFrames(buf)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 32767.0/32768, buf[0], 1e-9)

	_, err = src.ReadFrames(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, src.Close())
}

func TestWavSource_MatchesRawScale(t *testing.T) {
	samples := []int16{-32768, -1000, 0, 1000, 12345, 32767}
	wavSrc, err := NewWavSource(bytes.NewReader(wavFile(8000, 1, samples...)), 8000)
	require.NoError(t, err)
	rawSrc := NewReaderSource(bytes.NewReader(pcm(samples...)))

	fromWav := make([]float64, len(samples))
	fromRaw := make([]float64, len(samples))
	_, err = wavSrc.ReadFrames(fromWav)
	require.NoError(t, err)
	_, err = rawSrc.ReadFrames(fromRaw)
	require.NoError(t, err)

	assert.InDeltaSlice(t, fromRaw, fromWav, 1e-12)
	assert.Equal(t, -1.0, fromWav[0])
}

func TestWavSource_RejectsFormat(t *testing.T) {
	_, err := NewWavSource(bytes.NewReader(wavFile(44100, 1, 0)), 8000)
	assert.Error(t, err)

	_, err = NewWavSource(bytes.NewReader(wavFile(8000, 2, 0, 0)), 8000)
	assert.Error(t, err)

	_, err = NewWavSource(bytes.NewReader([]byte("not a wav file at all, really")), 8000)
	assert.Error(t, err)
}
