package truncate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
)

var today = time.Date(2026, time.October, 14, 13, 43, 0, 0, time.UTC)

func entry(token, date, trailer string) string {
	b := []byte(strings.Repeat(" ", liststore.DefaultLayout().DateOffset))
	copy(b, token+"?")
	return string(b) + date + trailer
}

func callLine(date, number string) string {
	return "--DATE = " + date + "--TIME = 1343--NMBR = " + number + "--NAME = X----"
}

type fixture struct {
	svc   *Service
	now   time.Time
	dir   string
	calls string
	black string
}

func newFixture(t *testing.T, calls, black []string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{now: today, dir: dir}
	f.calls = filepath.Join(dir, "callerID.dat")
	f.black = filepath.Join(dir, "blacklist.dat")
	writeLines(t, f.calls, calls)
	writeLines(t, f.black, black)

	f.svc = New(filepath.Join(dir, ".stamp"), f.calls, f.black, liststore.DefaultLayout())
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestRunOnce_RemovesOldRecords(t *testing.T) {
	f := newFixture(t,
		[]string{
			callLine("010125", "5550001"),
			callLine("101426", "5550002"),
			"line noise",
			callLine("091526", "5550003"),
		},
		[]string{
			"# telemarketers",
			entry("OLD CORP", "010125", "        *-KEY ENTRY"),
			"",
			entry("NEW CORP", "091526", ""),
			"SHORT?",
			entry("UNDATED", "xxxxxx", ""),
		})

	res, err := f.svc.RunOnce(false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.CallLogRemoved)
	assert.Equal(t, 1, res.BlacklistRemoved)

	assert.Equal(t, []string{
		callLine("101426", "5550002"),
		"line noise",
		callLine("091526", "5550003"),
	}, readLines(t, f.calls))

	assert.Equal(t, []string{
		"# telemarketers",
		"",
		entry("NEW CORP", "091526", ""),
		"SHORT?",
		entry("UNDATED", "xxxxxx", ""),
	}, readLines(t, f.black))

	info, err := os.Stat(f.black)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRunOnce_NothingToRemoveLeavesFile(t *testing.T) {
	f := newFixture(t, []string{callLine("101426", "5550002")}, []string{entry("NEW CORP", "091526", "")})
	before, err := os.Stat(f.calls)
	require.NoError(t, err)

	res, err := f.svc.RunOnce(false)
	require.NoError(t, err)
	assert.Zero(t, res.CallLogRemoved)
	assert.Zero(t, res.BlacklistRemoved)

	after, err := os.Stat(f.calls)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
}

func TestRunOnce_Interval(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.svc.RunOnce(false)
	require.NoError(t, err)
	assert.False(t, res.Skipped, "first run with no stamp")

	f.now = today.Add(24 * time.Hour)
	res, err = f.svc.RunOnce(false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	res, err = f.svc.RunOnce(true)
	require.NoError(t, err)
	assert.False(t, res.Skipped, "forced run ignores the stamp")

	f.now = f.now.Add(30 * 24 * time.Hour)
	due, err := f.svc.Due()
	require.NoError(t, err)
	assert.True(t, due)
}

func TestLastRun(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, ok, err := f.svc.LastRun()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.RunOnce(true)
	require.NoError(t, err)
	last, ok, err := f.svc.LastRun()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(today), "stamp mtime is the run time")
}

func TestRunOnce_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	svc := New(filepath.Join(dir, ".stamp"), filepath.Join(dir, "nope.dat"), filepath.Join(dir, "nope2.dat"), liststore.DefaultLayout())
	svc.Now = func() time.Time { return today }

	res, err := svc.RunOnce(false)
	require.NoError(t, err)
	assert.Zero(t, res.CallLogRemoved)
	_, err = os.Stat(filepath.Join(dir, ".stamp"))
	assert.NoError(t, err)
}

func TestRunOnce_StampError(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.svc.StampPath = filepath.Join(f.dir, "missing", "stamp")

	_, err := f.svc.RunOnce(true)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"101426", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), true},
		{"010125", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"0901", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), true},
		{"1225", time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), true},
		{"1326", time.Time{}, false},
		{"12AB", time.Time{}, false},
		{"10142", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in, today)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}
