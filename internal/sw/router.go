package sw

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

// Source says where a routed response came from.
type Source string

const (
	SourcePassthrough Source = "passthrough"
	SourceCache       Source = "cache"
	SourceNetwork     Source = "network"
	SourceShell       Source = "shell"
	SourceFallback    Source = "fallback"
)

// Outcome is the result of routing one request.
type Outcome struct {
	Source   Source
	Response *StoredResponse
}

// Network fetches a request from its origin. The routing pipeline treats an
// error as "offline".
type Network interface {
	Fetch(ctx context.Context, req *http.Request) (*StoredResponse, error)
}

// NetworkFunc adapts a function to the Network interface.
type NetworkFunc func(ctx context.Context, req *http.Request) (*StoredResponse, error)

func (f NetworkFunc) Fetch(ctx context.Context, req *http.Request) (*StoredResponse, error) {
	return f(ctx, req)
}

// CacheProvider hands the router the cache to read and fill. Both a single
// Worker and the Manager satisfy it; going through the Manager keeps the
// router on the active version across upgrades.
type CacheProvider interface {
	Cache() *Cache
}

// RouterConfig identifies the app's own origin and the remote API so the
// pipeline can recognize requests that must never be cached.
type RouterConfig struct {
	// Origin is the app's own host. Requests to other hosts pass through.
	Origin string
	// APIHost is the story API host. API traffic is never cached.
	APIHost string
	// ShellDocument is the cache key of the app shell, normally /index.html.
	ShellDocument string
}

// Router resolves fetches through an ordered rule list: pass-throughs first,
// then the navigation shell, then cache-first with network fill.
type Router struct {
	cfg      RouterConfig
	caches   CacheProvider
	network  Network
	fallback *Fallbacks
	logger   *slog.Logger
}

// NewRouter wires the routing pipeline over an installed cache.
func NewRouter(cfg RouterConfig, caches CacheProvider, network Network, fallback *Fallbacks, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{cfg: cfg, caches: caches, network: network, fallback: fallback, logger: logger}
}

// Resolve routes one request. The rules apply in order; the first match
// decides, later rules are never consulted.
func (r *Router) Resolve(ctx context.Context, req *http.Request) (*Outcome, error) {
	switch {
	case req.Method != http.MethodGet:
		return r.passthrough(ctx, req)
	case r.isCrossOrigin(req):
		return r.passthrough(ctx, req)
	case r.isAPI(req):
		// API responses are live data, never cached, stale entries ignored.
		return r.passthrough(ctx, req)
	case isNavigation(req):
		return r.navigate(ctx, req)
	default:
		return r.cacheFirst(ctx, req)
	}
}

func (r *Router) passthrough(ctx context.Context, req *http.Request) (*Outcome, error) {
	resp, err := r.network.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("passthrough %s %s: %w", req.Method, req.URL.Path, err)
	}
	return &Outcome{Source: SourcePassthrough, Response: resp}, nil
}

// navigate serves the cached app shell for page loads, falling back to the
// network and finally the offline placeholder page.
func (r *Router) navigate(ctx context.Context, req *http.Request) (*Outcome, error) {
	if shell, err := r.caches.Cache().Match(r.cfg.ShellDocument); err == nil {
		return &Outcome{Source: SourceShell, Response: shell}, nil
	}

	resp, err := r.network.Fetch(ctx, req)
	if err != nil {
		r.logger.Warn("navigation offline, serving placeholder page", "path", req.URL.Path)
		return &Outcome{Source: SourceFallback, Response: r.fallback.OfflinePage()}, nil
	}
	return &Outcome{Source: SourceNetwork, Response: resp}, nil
}

// cacheFirst answers from cache, fills from the network on a miss, and
// degrades to a fallback when both are unavailable. A cache-write failure is
// logged and never fails the in-flight response.
func (r *Router) cacheFirst(ctx context.Context, req *http.Request) (*Outcome, error) {
	key := requestKey(req)
	cache := r.caches.Cache()

	if cached, err := cache.Match(key); err == nil {
		return &Outcome{Source: SourceCache, Response: cached}, nil
	} else if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		r.logger.Warn("cache lookup failed", "key", key, "error", err)
	}

	resp, err := r.network.Fetch(ctx, req)
	if err != nil {
		if isImageRequest(req) {
			return &Outcome{Source: SourceFallback, Response: r.fallback.PlaceholderImage()}, nil
		}
		return &Outcome{Source: SourceFallback, Response: r.fallback.OfflineResponse()}, nil
	}

	if resp.Status == http.StatusOK {
		stored := *resp
		stored.StoredAt = now().UTC()
		if err := cache.Put(key, &stored); err != nil {
			r.logger.Warn("response not cached", "key", key, "error", err)
		}
	}
	return &Outcome{Source: SourceNetwork, Response: resp}, nil
}

func (r *Router) isCrossOrigin(req *http.Request) bool {
	host := req.URL.Host
	if host == "" {
		host = req.Host
	}
	return host != "" && r.cfg.Origin != "" && host != r.cfg.Origin
}

func (r *Router) isAPI(req *http.Request) bool {
	host := req.URL.Host
	if host == "" {
		host = req.Host
	}
	if r.cfg.APIHost != "" && host == r.cfg.APIHost {
		return true
	}
	return strings.HasPrefix(req.URL.Path, "/api/")
}

// requestKey is the cache key of a request: the path with query, the way the
// asset manifest enumerates them.
func requestKey(req *http.Request) string {
	key := req.URL.Path
	if req.URL.RawQuery != "" {
		key += "?" + req.URL.RawQuery
	}
	return key
}

// isNavigation recognizes page loads: an explicit navigation fetch mode, or
// a GET that accepts HTML.
func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

// isImageRequest recognizes image fetches by destination header or path
// extension.
func isImageRequest(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "image" {
		return true
	}
	switch strings.ToLower(path.Ext(req.URL.Path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico":
		return true
	}
	return strings.HasPrefix(req.Header.Get("Accept"), "image/")
}
