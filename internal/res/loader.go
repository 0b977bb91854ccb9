// Package res loads and decodes the images referenced by overlay objects.
//
// References may be local file paths (absolute or relative to a base
// directory), http(s) URLs, or data: URIs. Decoded source images are cached;
// sizing to an object's geometry happens per render so one source can back
// overlays of different sizes.
package res

import (
	"bytes"
	"encoding/base64"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/paperlay/paperlay/pkg/errors"
)

// Loader resolves overlay image references to decoded images.
type Loader struct {
	// BaseDir anchors relative file references.
	BaseDir string

	cacheLock sync.RWMutex
	cache     map[string]image.Image
	rawCache  map[string][]byte // undecoded bytes for vector sources

	client *http.Client
}

// NewLoader creates a loader resolving relative paths against baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		BaseDir:  baseDir,
		cache:    make(map[string]image.Image),
		rawCache: make(map[string][]byte),
		client:   &http.Client{},
	}
}

// Sized returns the referenced image scaled to exactly w by h pixels.
// Vector sources rasterize directly at the target size; raster sources are
// resampled with Lanczos filtering.
func (l *Loader) Sized(ref string, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid image size %dx%d", w, h)
	}

	data, err := l.fetch(ref)
	if err != nil {
		return nil, err
	}

	if isSVG(ref, data) {
		img, err := rasterizeSVG(data, w, h)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDecode, err, "failed to rasterize SVG %s", ref)
		}
		return img, nil
	}

	src, err := l.decoded(ref, data)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(src, w, h, imaging.Lanczos), nil
}

// decoded returns the cached decoded form of a raster reference.
func (l *Loader) decoded(ref string, data []byte) (image.Image, error) {
	l.cacheLock.RLock()
	img, ok := l.cache[ref]
	l.cacheLock.RUnlock()
	if ok {
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "failed to decode image %s", ref)
	}

	l.cacheLock.Lock()
	l.cache[ref] = img
	l.cacheLock.Unlock()
	return img, nil
}

// fetch returns the raw bytes behind a reference, caching them.
func (l *Loader) fetch(ref string) ([]byte, error) {
	l.cacheLock.RLock()
	data, ok := l.rawCache[ref]
	l.cacheLock.RUnlock()
	if ok {
		return data, nil
	}

	var err error
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = parseDataURL(ref)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		data, err = l.fetchRemote(ref)
	default:
		data, err = l.fetchLocal(ref)
	}
	if err != nil {
		return nil, err
	}

	l.cacheLock.Lock()
	l.rawCache[ref] = data
	l.cacheLock.Unlock()
	return data, nil
}

// fetchRemote downloads a resource over http(s).
func (l *Loader) fetchRemote(ref string) ([]byte, error) {
	resp, err := l.client.Get(ref)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResourceNotFound, err, "failed to fetch %s", ref)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeResourceNotFound, "fetching %s: %s", ref, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// fetchLocal reads a resource from disk, resolving relative paths against
// the base directory.
func (l *Loader) fetchLocal(ref string) ([]byte, error) {
	path := ref
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "failed to read image %s", ref)
	}
	return data, nil
}

// parseDataURL extracts the payload of an RFC 2397 data URL.
// Examples:
//
//	data:image/png;base64,<base64>
//	data:image/svg+xml,%3Csvg...%3E
func parseDataURL(u string) ([]byte, error) {
	s := strings.TrimPrefix(u, "data:")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid data URL")
	}
	meta := parts[0]
	payload := parts[1]

	isBase64 := false
	for _, c := range strings.Split(meta, ";") {
		if strings.EqualFold(strings.TrimSpace(c), "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid base64 data URL")
		}
		return data, nil
	}
	if decoded, err := url.QueryUnescape(payload); err == nil {
		return []byte(decoded), nil
	}
	return []byte(payload), nil
}

// isSVG detects vector sources by extension, data URL mime type, or a
// leading <svg tag in the payload.
func isSVG(ref string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(strings.SplitN(ref, "?", 2)[0]), ".svg") {
		return true
	}
	if strings.HasPrefix(ref, "data:image/svg+xml") {
		return true
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimSpace(head)
	return bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.Contains(trimmed, []byte("<svg "))
}
