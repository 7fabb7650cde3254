package truncate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Report{Skipped: true})
	assert.Contains(t, buf.String(), "--force")

	buf.Reset()
	Render(&buf, Report{CallLogRemoved: 4, BlacklistRemoved: 1})
	assert.Equal(t, "Removed 4 call log line(s) and 1 blacklist entr(ies)\n", buf.String())
}
