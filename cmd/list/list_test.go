package list

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
)

func scan(t *testing.T, content string) []liststore.Line {
	t.Helper()
	var lines []liststore.Line
	require.NoError(t, liststore.Scan(strings.NewReader(content), liststore.DefaultLayout(), func(l liststore.Line) bool {
		lines = append(lines, l)
		return true
	}))
	return lines
}

func entry(token, date, trailer string) string {
	b := []byte(strings.Repeat(" ", liststore.DefaultLayout().DateOffset))
	copy(b, token+"?")
	return string(b) + date + trailer + "\n"
}

func TestRows(t *testing.T) {
	content := "# pests\n" + entry("JOHN", "010126", "  telemarketer") + "\nno terminator here\n"
	lines := scan(t, content)

	rows := Rows(lines, false)
	require.Len(t, rows, 1)
	assert.Equal(t, "JOHN", rows[0].Token)
	assert.Equal(t, "010126", rows[0].Date)
	assert.Equal(t, int64(len("# pests\n")), rows[0].Offset)

	all := Rows(lines, true)
	require.Len(t, all, 4)
	assert.Equal(t, "comment", all[0].Kind)
	assert.Equal(t, "blank", all[2].Kind)
	assert.Equal(t, "malformed", all[3].Kind)
	assert.NotEmpty(t, all[3].Error)
	assert.Equal(t, "no terminator here", all[3].Text)
}

func TestRenderRows(t *testing.T) {
	var buf bytes.Buffer
	RenderRows(&buf, "blacklist", "/tmp/blacklist.dat", []Row{{Offset: 8, Kind: "entry", Token: "JOHN", Date: "010126"}})
	assert.Contains(t, buf.String(), "JOHN")
	assert.Contains(t, buf.String(), "/tmp/blacklist.dat")

	buf.Reset()
	RenderRows(&buf, "whitelist", "w.dat", nil)
	assert.Contains(t, buf.String(), "no entries")
}

func TestCalls(t *testing.T) {
	recs := []callerid.Record{
		callerid.FromLine("--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = JOHN DOE----"),
		callerid.FromLine("--DATE = 101526--NMBR = O--"),
	}
	calls := Calls(recs)
	require.Len(t, calls, 2)
	assert.Equal(t, Call{
		Date: "101426", Time: "1343", Number: "5551212", Name: "JOHN DOE",
		Line: "--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = JOHN DOE----",
	}, calls[0])
	assert.Empty(t, calls[1].Time)
	assert.Equal(t, "O", calls[1].Number)
}
