package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"
)

// Resolve turns a world location into a local directory. Plain paths and
// file:// URLs are used in place. Anything else is fetched once with
// go-getter into cacheDir and the copy is reused on later starts.
func Resolve(ctx context.Context, location, cacheDir string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("resolve world: empty location")
	}
	if local, ok := localPath(location); ok {
		return local, nil
	}

	dst := filepath.Join(cacheDir, cacheName(location))
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		return dst, nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory %s: %w", cacheDir, err)
	}

	// Only a complete download is renamed into place.
	tmp := dst + ".partial"
	if err := os.RemoveAll(tmp); err != nil {
		return "", fmt.Errorf("clear partial download: %w", err)
	}
	if err := getter.Get(tmp, location, getter.WithContext(ctx)); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("fetch world %s: %w", location, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("rename downloaded world: %w", err)
	}
	return dst, nil
}

func localPath(location string) (string, bool) {
	if strings.Contains(location, "::") {
		return "", false
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return location, true
	}
	// Windows drive letters parse as a one-letter scheme.
	if len(u.Scheme) == 1 {
		return location, true
	}
	if u.Scheme == "file" {
		if u.Host != "" {
			return filepath.Join(u.Host, u.Path), true
		}
		return u.Path, true
	}
	return "", false
}

// cacheName is a readable, collision-free directory name for a remote URL.
func cacheName(location string) string {
	base := location
	if i := strings.LastIndex(base, "::"); i >= 0 {
		base = base[i+2:]
	}
	if u, err := url.Parse(base); err == nil {
		base = u.Path
	}
	base = strings.TrimSuffix(filepath.Base(strings.TrimRight(base, "/")), filepath.Ext(base))
	sum := sha1.Sum([]byte(location))
	if base == "" || base == "." || base == "/" {
		return hex.EncodeToString(sum[:6])
	}
	return base + "-" + hex.EncodeToString(sum[:6])
}
