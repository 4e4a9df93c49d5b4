package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const cacheRoot = "cache"

// GetCachePath returns the cache file path for a rendered post page.
func GetCachePath(slug string) string {
	hash := generateHash(slug)
	shortHash := hash[:16]
	return filepath.Join(cacheRoot, fmt.Sprintf("%s_%s.html", slug, shortHash))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the cache directory exists
func EnsureCacheDir() error {
	return os.MkdirAll(cacheRoot, 0755)
}

// WriteCache writes rendered HTML to the cache file for a slug.
func WriteCache(slug, html string) error {
	if err := EnsureCacheDir(); err != nil {
		return err
	}
	return os.WriteFile(GetCachePath(slug), []byte(html), 0644)
}

// ReadCache reads the cached page if it exists and is not expired.
func ReadCache(slug string, maxAge time.Duration) (string, bool) {
	cachePath := GetCachePath(slug)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearCache removes the cached page for a slug, including stale variants
// left behind by slug renames.
func ClearCache(slug string) error {
	err := os.Remove(GetCachePath(slug))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	pattern := filepath.Join(cacheRoot, slug+"_*.html")
	matches, globErr := filepath.Glob(pattern)
	if globErr != nil {
		return nil
	}
	for _, match := range matches {
		os.Remove(match)
	}
	return nil
}

// ClearAllCache removes every cached page.
func ClearAllCache() error {
	return os.RemoveAll(cacheRoot)
}

// ClearOldCache removes cache files older than the specified duration
func ClearOldCache(maxAge time.Duration) error {
	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
