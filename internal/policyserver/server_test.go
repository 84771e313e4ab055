package policyserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grab-go/internal/fetch"
	"grab-go/internal/grab"
	"grab-go/internal/testutil"
)

func newTestServer(t *testing.T, body string) (*httptest.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	if body != "" {
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
	srv := httptest.NewServer(New(path, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, path
}

func TestServer_Policy(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid policy", body: testutil.ValidPolicyJSON, wantStatus: http.StatusOK},
		{name: "invalid policy", body: `{"minimumVersion": "1.0"}`, wantStatus: http.StatusInternalServerError},
		{name: "missing file", body: "", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.body)

			resp, err := http.Get(srv.URL + PolicyPath)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			if tt.wantStatus == http.StatusOK {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(data))
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ControllerEndToEnd(t *testing.T) {
	srv, path := newTestServer(t, testutil.ValidPolicyJSON)
	clock := testutil.FixedClock()

	ctrl := grab.NewVersionController(
		fetch.NewHTTPFetcher(srv.URL+PolicyPath, fetch.UserAgent("1.0.1"), nil),
		testutil.NewTestStore(),
		func() (string, error) { return "1.0.1", nil },
		grab.Settings{Timeout: 2 * time.Second},
		nil, clock, testutil.NewStubIDGenerator(),
	)

	online := ctrl.CheckVersionStatus(context.Background())
	require.False(t, online.IsOffline, "failure reason: %s", online.FailureReason)
	assert.Equal(t, grab.StatusForceUpdate, online.Status)

	// A broken edit on the server is never served; clients keep the cache.
	require.NoError(t, os.WriteFile(path, []byte(`{"minimumVersion": "oops"}`), 0644))
	clock.Advance(2 * time.Hour)

	offline := ctrl.CheckVersionStatus(context.Background())
	assert.True(t, offline.IsOffline)
	assert.Equal(t, grab.ReasonHTTPStatus, offline.FailureReason)
	assert.Equal(t, 2*time.Hour, offline.CacheAge)
	assert.Equal(t, grab.StatusDeprecated, offline.Status)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, "127.0.0.1:0", New("unused", nil).Handler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
