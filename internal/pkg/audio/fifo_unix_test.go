//go:build unix

package audio

import (
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fifo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tones.fifo")
	require.NoError(t, syscall.Mkfifo(path, 0o600))
	return path
}

func TestOpenFile_FIFOWithoutWriter(t *testing.T) {
	src, err := OpenFile(fifo(t))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.ReadFrames(make([]float64, 4))
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenFile_FIFODeadline(t *testing.T) {
	path := fifo(t)
	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, src.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	start := time.Now()
	_, err = src.ReadFrames(make([]float64, 4))
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.NoError(t, src.SetReadDeadline(time.Time{}))
	_, err = w.Write(pcm(16384, 0))
	require.NoError(t, err)
	buf := make([]float64, 2)
	n, err := src.ReadFrames(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{0.5, 0}, buf)
}
