package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	out := Table([]string{"TOKEN", "DATE"}, [][]string{
		{"555-1212", "101426"},
		{"JOHN", "000000"},
	})

	for _, want := range []string{"TOKEN", "DATE", "555-1212", "101426", "JOHN"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "TOKEN"), strings.Index(out, "555-1212"))
	assert.Less(t, strings.Index(out, "555-1212"), strings.Index(out, "JOHN"))
}
