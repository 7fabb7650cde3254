package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	e := New()
	e.ObserveCall("blacklisted", 2*time.Second)
	e.ObserveCall("blacklisted", time.Second)
	e.ObserveCall("whitelisted", 100*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.calls.WithLabelValues("blacklisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.calls.WithLabelValues("whitelisted")))
	assert.Equal(t, 2, testutil.CollectAndCount(e.callSeconds))

	n, err := testutil.GatherAndCount(e.Registry(), "jcblock_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestObserveListError(t *testing.T) {
	e := New()
	e.ObserveListError("whitelist")

	expected := `
# HELP jcblock_list_errors_total List checks that failed and fell back to the fail-open verdict
# TYPE jcblock_list_errors_total counter
jcblock_list_errors_total{list="whitelist"} 1
`
	require.NoError(t, testutil.CollectAndCompare(e.listErrors, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	e := New()
	e.ObserveCall("authorized", 12*time.Second)
	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{"/metrics", `jcblock_calls_total{outcome="authorized"} 1`},
		{"/health", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.want)
		})
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	assert.NoError(t, New().Shutdown(context.Background()))
}
