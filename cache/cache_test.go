package cache

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func useTempCacheDir(t *testing.T) {
	original, err := os.Getwd()
	assert.NoError(t, err)

	assert.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		os.Chdir(original)
	})
}

func TestGetCachePath(t *testing.T) {
	path := GetCachePath("my-post")

	assert.True(t, strings.HasPrefix(path, "cache/my-post_"))
	assert.True(t, strings.HasSuffix(path, ".html"))

	// Deterministic for the same slug, distinct across slugs.
	assert.Equal(t, path, GetCachePath("my-post"))
	assert.NotEqual(t, path, GetCachePath("other-post"))
}

func TestWriteAndReadCache(t *testing.T) {
	useTempCacheDir(t)

	err := WriteCache("my-post", "<html>cached</html>")
	assert.NoError(t, err)

	content, found := ReadCache("my-post", time.Minute)
	assert.True(t, found)
	assert.Equal(t, "<html>cached</html>", content)
}

func TestReadCache_Miss(t *testing.T) {
	useTempCacheDir(t)

	_, found := ReadCache("never-written", time.Minute)
	assert.False(t, found)
}

func TestReadCache_Expired(t *testing.T) {
	useTempCacheDir(t)

	assert.NoError(t, WriteCache("my-post", "<html>old</html>"))

	// Age the file past the max age.
	past := time.Now().Add(-time.Hour)
	assert.NoError(t, os.Chtimes(GetCachePath("my-post"), past, past))

	_, found := ReadCache("my-post", time.Minute)
	assert.False(t, found)
}

func TestClearCache(t *testing.T) {
	useTempCacheDir(t)

	assert.NoError(t, WriteCache("my-post", "<html>cached</html>"))
	assert.NoError(t, ClearCache("my-post"))

	_, found := ReadCache("my-post", time.Minute)
	assert.False(t, found)
}

func TestClearCache_MissingFileIsFine(t *testing.T) {
	useTempCacheDir(t)

	assert.NoError(t, ClearCache("never-written"))
}

func TestClearAllCache(t *testing.T) {
	useTempCacheDir(t)

	assert.NoError(t, WriteCache("post-one", "<html>1</html>"))
	assert.NoError(t, WriteCache("post-two", "<html>2</html>"))

	assert.NoError(t, ClearAllCache())

	_, foundOne := ReadCache("post-one", time.Minute)
	_, foundTwo := ReadCache("post-two", time.Minute)
	assert.False(t, foundOne)
	assert.False(t, foundTwo)
}

func TestClearOldCache(t *testing.T) {
	useTempCacheDir(t)

	assert.NoError(t, WriteCache("old-post", "<html>old</html>"))
	assert.NoError(t, WriteCache("fresh-post", "<html>fresh</html>"))

	past := time.Now().Add(-2 * time.Hour)
	assert.NoError(t, os.Chtimes(GetCachePath("old-post"), past, past))

	assert.NoError(t, ClearOldCache(time.Hour))

	_, foundOld := ReadCache("old-post", 24*time.Hour)
	_, foundFresh := ReadCache("fresh-post", 24*time.Hour)
	assert.False(t, foundOld)
	assert.True(t, foundFresh)
}
