package sw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginNetwork_LocalAssets(t *testing.T) {
	dir := setupStaticDir(t)
	network := NewOriginNetwork("app.example.test", NewDiskAssets(dir), nil)

	req := httptest.NewRequest(http.MethodGet, "/manifest.json", nil)
	req.Host = "app.example.test"

	resp, err := network.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestOriginNetwork_ForwardsUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	network := NewOriginNetwork("app.example.test", NewDiskAssets(t.TempDir()), upstream.Client())

	target, err := url.Parse(upstream.URL + "/v1/stories")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, target.String(), nil)
	req.Header.Set("Accept", "application/json")

	resp, err := network.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte(`{"ok":true}`), resp.Body)
}

func TestOriginNetwork_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	network := NewOriginNetwork("app.example.test", NewDiskAssets(t.TempDir()), nil)

	req := httptest.NewRequest(http.MethodGet, upstream.URL+"/v1/stories", nil)
	_, err := network.Fetch(context.Background(), req)
	assert.Error(t, err)
}
