package sw

import (
	"bytes"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// placeholderHash is the blurhash rendered when an image cannot be fetched:
// a soft blue-grey gradient that reads as "photo not available".
const placeholderHash = "LEHV6nWB2yk8pyo0adR*.7kCMdnj"

const (
	// Blurhash decode size. The decode is the expensive part, so it runs at
	// thumbnail resolution and scales up.
	placeholderDecodeSize = 32
	placeholderSize       = 512
)

const offlinePageHTML = `<!doctype html>
<html lang="id">
<head><meta charset="utf-8"><title>Cerita di Sekitarmu</title></head>
<body>
<h1>Sedang offline</h1>
<p>Halaman ini belum tersimpan. Periksa koneksi lalu coba lagi.</p>
</body>
</html>`

// Fallbacks builds the stand-in responses served when both cache and network
// come up empty. The placeholder image renders lazily, once.
type Fallbacks struct {
	logger *slog.Logger

	once  sync.Once
	image []byte
}

// NewFallbacks creates the fallback response factory.
func NewFallbacks(logger *slog.Logger) *Fallbacks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fallbacks{logger: logger}
}

// PlaceholderImage returns a PNG rendered from a fixed blurhash, for image
// requests that cannot be satisfied offline.
func (f *Fallbacks) PlaceholderImage() *StoredResponse {
	f.once.Do(func() {
		data, err := renderPlaceholder()
		if err != nil {
			f.logger.Error("placeholder image render failed", "error", err)
			data = nil
		}
		f.image = data
	})

	if f.image == nil {
		return f.OfflineResponse()
	}
	return &StoredResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"image/png"}},
		Body:   f.image,
	}
}

// OfflinePage returns the placeholder page for navigations with no cached
// shell and no network.
func (f *Fallbacks) OfflinePage() *StoredResponse {
	return &StoredResponse{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:   []byte(offlinePageHTML),
	}
}

// OfflineResponse is the generic non-image fallback.
func (f *Fallbacks) OfflineResponse() *StoredResponse {
	return &StoredResponse{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte("offline"),
	}
}

func renderPlaceholder() ([]byte, error) {
	small, err := blurhash.Decode(placeholderHash, placeholderDecodeSize, placeholderDecodeSize, 1)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
