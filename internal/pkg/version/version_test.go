package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetShortVersion(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version = "1.2.0"
	GitCommit = "unknown"
	assert.Equal(t, "1.2.0", GetShortVersion())

	GitCommit = "0123456789abcdef"
	assert.Equal(t, "1.2.0-0123456", GetShortVersion())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, GetFullVersion(), info.Version)
}
