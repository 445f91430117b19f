package sw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

// fakeNetwork records fetches and serves canned responses per path.
type fakeNetwork struct {
	responses map[string]*StoredResponse
	err       error
	fetched   []string
}

func (f *fakeNetwork) Fetch(_ context.Context, req *http.Request) (*StoredResponse, error) {
	f.fetched = append(f.fetched, req.URL.Path)
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[req.URL.Path]; ok {
		return resp, nil
	}
	return &StoredResponse{Status: http.StatusNotFound}, nil
}

func setupRouter(t *testing.T, network Network) (*Router, *Worker) {
	t.Helper()
	storage := setupStorage(t)

	w := NewWorker("v1", storage, nil, NewDiskAssets(""), nil)
	require.NoError(t, w.Activate(context.Background()))

	cfg := RouterConfig{
		Origin:        "app.example.test",
		APIHost:       "story-api.dicoding.dev",
		ShellDocument: "/index.html",
	}
	return NewRouter(cfg, w, network, NewFallbacks(nil), nil), w
}

func appRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, "http://app.example.test"+path, nil)
	return req
}

func TestResolve_NonGETPassesThrough(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/submit": okResponse("accepted"),
	}}
	r, w := setupRouter(t, net)

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodPost, "/submit"))
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, outcome.Source)

	_, err = w.Cache().Match("/submit")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "non-GET responses are never cached")
}

func TestResolve_CrossOriginPassesThrough(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/widget.js": okResponse("3rd party"),
	}}
	r, w := setupRouter(t, net)

	req := httptest.NewRequest(http.MethodGet, "https://cdn.example.com/widget.js", nil)
	outcome, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, outcome.Source)

	_, err = w.Cache().Match("/widget.js")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestResolve_APINeverServedFromCache(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/api/v1/stories": okResponse("fresh"),
	}}
	r, w := setupRouter(t, net)

	// Even a stale cached entry for the API URL must be ignored.
	require.NoError(t, w.Cache().Put("/api/v1/stories", okResponse("stale")))

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/api/v1/stories"))
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, outcome.Source)
	assert.Equal(t, []byte("fresh"), outcome.Response.Body)
}

func TestResolve_APIHostMatchesWithoutPathPrefix(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/v1/stories": okResponse("fresh"),
	}}
	r, _ := setupRouter(t, net)

	req := httptest.NewRequest(http.MethodGet, "https://story-api.dicoding.dev/v1/stories", nil)
	outcome, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourcePassthrough, outcome.Source)
}

func TestResolve_NavigationServesCachedShell(t *testing.T) {
	net := &fakeNetwork{}
	r, w := setupRouter(t, net)
	require.NoError(t, w.Cache().Put("/index.html", okResponse("<html>shell</html>")))

	req := appRequest(http.MethodGet, "/stories/detail/abc")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Accept", "text/html")

	outcome, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceShell, outcome.Source)
	assert.Equal(t, []byte("<html>shell</html>"), outcome.Response.Body)
	assert.Empty(t, net.fetched, "a cached shell answers navigations without the network")
}

func TestResolve_NavigationOfflineWithoutShell(t *testing.T) {
	net := &fakeNetwork{err: domainerrors.NetworkUnreachable("offline")}
	r, _ := setupRouter(t, net)

	req := appRequest(http.MethodGet, "/")
	req.Header.Set("Accept", "text/html")

	outcome, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, outcome.Source)
	assert.Equal(t, http.StatusServiceUnavailable, outcome.Response.Status)
	assert.Contains(t, string(outcome.Response.Body), "offline")
}

func TestResolve_CacheFirstHit(t *testing.T) {
	net := &fakeNetwork{}
	r, w := setupRouter(t, net)
	require.NoError(t, w.Cache().Put("/app.js", okResponse("cached")))

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/app.js"))
	require.NoError(t, err)
	assert.Equal(t, SourceCache, outcome.Source)
	assert.Equal(t, []byte("cached"), outcome.Response.Body)
	assert.Empty(t, net.fetched)
}

func TestResolve_CacheMissPopulatesOn200(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/app.js": okResponse("from network"),
	}}
	r, w := setupRouter(t, net)

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/app.js"))
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, outcome.Source)

	cached, err := w.Cache().Match("/app.js")
	require.NoError(t, err)
	assert.Equal(t, []byte("from network"), cached.Body)
	assert.False(t, cached.StoredAt.IsZero())
}

func TestResolve_CacheMissNon200NotCached(t *testing.T) {
	net := &fakeNetwork{}
	r, w := setupRouter(t, net)

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/nope.js"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, outcome.Response.Status)

	_, err = w.Cache().Match("/nope.js")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestResolve_ImageFallbackWhenOffline(t *testing.T) {
	net := &fakeNetwork{err: domainerrors.NetworkUnreachable("offline")}
	r, _ := setupRouter(t, net)

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/photos/story-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, outcome.Source)
	assert.Equal(t, http.StatusOK, outcome.Response.Status)
	assert.Equal(t, "image/png", outcome.Response.Header.Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), outcome.Response.Body[:8])
}

func TestResolve_GenericFallbackWhenOffline(t *testing.T) {
	net := &fakeNetwork{err: domainerrors.NetworkUnreachable("offline")}
	r, _ := setupRouter(t, net)

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/data.json"))
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, outcome.Source)
	assert.Equal(t, http.StatusServiceUnavailable, outcome.Response.Status)
}

func TestResolve_CacheWriteFailureDoesNotFailResponse(t *testing.T) {
	net := &fakeNetwork{responses: map[string]*StoredResponse{
		"/app.js": okResponse("from network"),
	}}
	r, w := setupRouter(t, net)

	// Closing the cache database makes every read and write fail.
	require.NoError(t, w.storage.Close())

	outcome, err := r.Resolve(context.Background(), appRequest(http.MethodGet, "/app.js"))
	require.NoError(t, err, "a broken cache must not break the in-flight response")
	assert.Equal(t, SourceNetwork, outcome.Source)
	assert.Equal(t, []byte("from network"), outcome.Response.Body)
}

func TestNotificationClick_FocusOrOpen(t *testing.T) {
	reg := NewWindowRegistry(nil)
	reg.Register(Window{ID: "w1", URL: "/stories/detail/abc"})
	reg.Register(Window{ID: "w2", URL: "/"})

	// A window already at the target URL gets focused.
	got := reg.NotificationClick("/")
	assert.Equal(t, "w2", got.ID)
	assert.Equal(t, "w2", reg.Focused())

	// No matching window: open a new one via the host hook.
	opened := 0
	reg.OpenFunc = func(url string) Window {
		opened++
		return Window{ID: "w3", URL: url}
	}
	got = reg.NotificationClick("/favorites")
	assert.Equal(t, 1, opened)
	assert.Equal(t, "w3", got.ID)
	assert.Equal(t, "/favorites", got.URL)
}

func TestStoryNotificationCopy(t *testing.T) {
	n := StoryNotification()
	assert.Equal(t, "Cerita di Sekitarmu", n.Title)
	assert.Equal(t, "Ada cerita baru di sekitarmu! 🗺️", n.Body)
	assert.Equal(t, "story-notification", n.Tag)
}
