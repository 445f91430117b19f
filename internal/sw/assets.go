package sw

import (
	"context"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

// shellAssets is the fixed part of the pre-cache manifest: the documents the
// app cannot render without.
var shellAssets = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"/favicon.png",
}

// EnumerateAssets builds the pre-cache manifest: the fixed shell list plus
// every file under the static directory. Paths are rooted URL paths,
// deduplicated and sorted.
func EnumerateAssets(staticDir string) ([]string, error) {
	seen := make(map[string]struct{}, len(shellAssets))
	assets := make([]string, 0, len(shellAssets))
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		assets = append(assets, path)
	}

	for _, path := range shellAssets {
		add(path)
	}

	if staticDir != "" {
		err := filepath.WalkDir(staticDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(staticDir, p)
			if err != nil {
				return err
			}
			add("/" + filepath.ToSlash(rel))
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	slices.Sort(assets)
	return assets, nil
}

// DiskAssets loads shell assets from the static directory.
type DiskAssets struct {
	dir string
}

// NewDiskAssets creates an AssetLoader over a static directory.
func NewDiskAssets(dir string) *DiskAssets {
	return &DiskAssets{dir: dir}
}

// Load reads one asset. "/" resolves to the shell document. Paths that
// escape the static directory resolve to NotFound, never to files outside it.
func (d *DiskAssets) Load(_ context.Context, urlPath string) (*StoredResponse, error) {
	rel := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if rel == "" {
		rel = "index.html"
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return nil, domainerrors.NotFoundf("asset %s", urlPath)
	}

	full := filepath.Join(d.dir, filepath.FromSlash(rel))
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.NotFoundf("asset %s", urlPath)
		}
		return nil, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(full))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &StoredResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   data,
	}, nil
}
