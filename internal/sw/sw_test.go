package sw

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

func setupStorage(t *testing.T) *Storage {
	t.Helper()
	dir, err := os.MkdirTemp("", "cerita-sw-test-*")
	require.NoError(t, err)

	storage, err := OpenStorage(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		storage.Close()
		os.RemoveAll(dir)
	})
	return storage
}

func setupStaticDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cerita-static-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	files := map[string]string{
		"index.html":    "<!doctype html><title>Cerita di Sekitarmu</title>",
		"app.js":        "console.log('halo')",
		"styles.css":    "body{margin:0}",
		"img/logo.png":  "\x89PNG fake",
		"manifest.json": `{"name":"Cerita di Sekitarmu"}`,
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func okResponse(body string) *StoredResponse {
	return &StoredResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   []byte(body),
	}
}

func TestDiskAssets_RejectsEscapingPaths(t *testing.T) {
	parent := t.TempDir()
	static := filepath.Join(parent, "static")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('halo')"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("rahasia"), 0o600))

	assets := NewDiskAssets(static)

	resp, err := assets.Load(context.Background(), "/app.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log('halo')", string(resp.Body))

	for _, p := range []string{
		"/../secret.txt",
		"../secret.txt",
		"/img/../../secret.txt",
		"/./../secret.txt",
	} {
		_, err := assets.Load(context.Background(), p)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "path %q must not resolve", p)
	}
}

func TestCache_PutMatchDelete(t *testing.T) {
	storage := setupStorage(t)
	cache := storage.Cache(CacheName("v1"))

	_, err := cache.Match("/app.js")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	require.NoError(t, cache.Put("/app.js", okResponse("console.log(1)")))

	got, err := cache.Match("/app.js")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, []byte("console.log(1)"), got.Body)
	assert.Equal(t, "text/plain", got.Header.Get("Content-Type"))

	require.NoError(t, cache.Delete("/app.js"))
	_, err = cache.Match("/app.js")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestStorage_NamesAndDelete(t *testing.T) {
	storage := setupStorage(t)

	require.NoError(t, storage.Cache(CacheName("v1")).Put("/a", okResponse("a")))
	require.NoError(t, storage.Cache(CacheName("v2")).Put("/a", okResponse("a")))

	names, err := storage.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{CacheName("v1"), CacheName("v2")}, names)

	require.NoError(t, storage.Delete(CacheName("v1")))

	names, err = storage.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName("v2")}, names)

	_, err = storage.Cache(CacheName("v1")).Match("/a")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestWorker_InstallPopulatesShellAssets(t *testing.T) {
	storage := setupStorage(t)
	static := setupStaticDir(t)

	assets, err := EnumerateAssets(static)
	require.NoError(t, err)
	assert.Contains(t, assets, "/index.html")
	assert.Contains(t, assets, "/app.js")
	assert.Contains(t, assets, "/img/logo.png")

	w := NewWorker("v1", storage, assets, NewDiskAssets(static), nil)
	assert.Equal(t, StateInstalling, w.State())
	assert.Equal(t, "cerita-static-v1", w.CacheName())

	require.NoError(t, w.Install(context.Background()))

	shell, err := w.Cache().Match("/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(shell.Body), "Cerita di Sekitarmu")

	script, err := w.Cache().Match("/app.js")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, script.Status)
}

func TestWorker_InstallSkipsMissingAssets(t *testing.T) {
	storage := setupStorage(t)
	static := setupStaticDir(t)

	assets := []string{"/index.html", "/missing.js"}
	w := NewWorker("v1", storage, assets, NewDiskAssets(static), nil)

	require.NoError(t, w.Install(context.Background()), "a missing asset must not fail the install")

	_, err := w.Cache().Match("/index.html")
	assert.NoError(t, err)
	_, err = w.Cache().Match("/missing.js")
	assert.Error(t, err)
}

func TestWorker_ActivationDropsOtherCacheVersions(t *testing.T) {
	storage := setupStorage(t)
	static := setupStaticDir(t)
	ctx := context.Background()

	assets := []string{"/index.html"}
	v1 := NewWorker("v1", storage, assets, NewDiskAssets(static), nil)
	require.NoError(t, v1.Install(ctx))
	require.NoError(t, v1.Activate(ctx))
	assert.Equal(t, StateActive, v1.State())

	v2 := NewWorker("v2", storage, assets, NewDiskAssets(static), nil)
	require.NoError(t, v2.Install(ctx))
	require.NoError(t, v2.Activate(ctx))
	v1.Supersede()

	names, err := storage.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{CacheName("v2")}, names, "old cache versions must be gone after activation")

	_, err = storage.Cache(CacheName("v1")).Match("/index.html")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	assert.Equal(t, StateSuperseded, v1.State())
}

func TestWorker_SupersededCannotActivate(t *testing.T) {
	storage := setupStorage(t)

	w := NewWorker("v1", storage, nil, NewDiskAssets(""), nil)
	w.Supersede()
	assert.Error(t, w.Activate(context.Background()))
}

func TestManager_StartAndUpgrade(t *testing.T) {
	storage := setupStorage(t)
	static := setupStaticDir(t)
	ctx := context.Background()

	m := NewManager(storage, static, "v1", nil)
	require.NoError(t, m.Start(ctx))

	first := m.Current()
	require.NotNil(t, first)
	assert.Equal(t, "cerita-static-v1", first.CacheName())
	assert.Equal(t, StateActive, first.State())

	require.NoError(t, m.Upgrade(ctx))

	second := m.Current()
	assert.Equal(t, "cerita-static-v1.1", second.CacheName())
	assert.Equal(t, StateActive, second.State())
	assert.Equal(t, StateSuperseded, first.State())

	names, err := storage.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{second.CacheName()}, names)
}
