package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Port   string        `json:"port" yaml:"port"`
	Window time.Duration `json:"window" yaml:"window"`
}

func TestMarshalJSONPretty(t *testing.T) {
	v := sample{Port: "/dev/ttyS0", Window: time.Second}

	compact, err := MarshalJSONPretty(v, false)
	require.NoError(t, err)
	assert.Equal(t, `{"port":"/dev/ttyS0","window":1000000000}`, string(compact))

	pretty, err := MarshalJSONPretty(v, true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  \"port\"")
}

func TestMarshalYAML(t *testing.T) {
	data, err := MarshalYAML(sample{Port: "/dev/ttyS0", Window: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "port: /dev/ttyS0\nwindow: 10s\n", string(data))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample{Port: "x"}, FormatYAML))
	assert.Equal(t, "port: x\nwindow: 0s\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, sample{Port: "x"}, FormatJSON))
	assert.Contains(t, buf.String(), `"port"`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))

	assert.Error(t, Write(&buf, sample{}, "xml"))
}
