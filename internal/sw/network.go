package sw

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFetchBody caps how much of an upstream response the gateway will buffer.
const maxFetchBody = 16 << 20

// OriginNetwork is the gateway's real network: same-origin requests resolve
// against the static asset directory, everything else is forwarded upstream
// over HTTP.
type OriginNetwork struct {
	origin string
	assets AssetLoader
	client *http.Client
}

// NewOriginNetwork builds a Network serving the given origin host from the
// asset loader. A nil client gets a default with a 15s timeout.
func NewOriginNetwork(origin string, assets AssetLoader, client *http.Client) *OriginNetwork {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &OriginNetwork{origin: origin, assets: assets, client: client}
}

func (n *OriginNetwork) Fetch(ctx context.Context, req *http.Request) (*StoredResponse, error) {
	if n.isLocal(req) {
		return n.assets.Load(ctx, req.URL.Path)
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	out.Header = req.Header.Clone()

	resp, err := n.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", req.URL, err)
	}

	return &StoredResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func (n *OriginNetwork) isLocal(req *http.Request) bool {
	host := req.URL.Host
	if host == "" {
		host = req.Host
	}
	return host == "" || host == n.origin
}
