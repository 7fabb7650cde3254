package calllog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
)

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callerID.dat")
	log := New(path)
	now := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)

	first, ok := callerid.Normalize("\r\nDATE = 1014\r\nTIME = 0900\r\nNMBR = 5551212\r\nNAME = JOHN DOE\r\n", now)
	require.True(t, ok)
	require.NoError(t, log.Append(first))

	// Simulate an operator truncating the file between calls
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	second, ok := callerid.Normalize("\r\nDATE = 1014\r\nTIME = 0905\r\nNMBR = 5559999\r\nNAME = ACME\r\n", now)
	require.True(t, ok)
	require.NoError(t, log.Append(second))

	recs, err := log.Records()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, second.Line(), recs[0].Line())
}

func TestAppend_Unwritable(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "missing", "callerID.dat"))
	rec := callerid.FromLine("--DATE = 101426--")
	assert.Error(t, log.Append(rec))

	_, err := log.Records()
	assert.Error(t, err)
}
