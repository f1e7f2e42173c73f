package imdb

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, content string) []byte {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	_, err := writer.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return buffer.Bytes()
}

// pointDatasetAt rewires the named datasets source URL for the duration of
// the test. Tests using this helper cannot run in parallel.
func pointDatasetAt(t *testing.T, name string, url string) {
	original := datasetUrls[name]
	datasetUrls[name] = url
	t.Cleanup(func() { datasetUrls[name] = original })
}

func Test_EnsureDataset_DownloadsAndCaches(t *testing.T) {
	payload := gzipped(t, "tconst\ttitleType\ntt0001\ttvSeries\n")

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(payload)
	}))
	defer server.Close()
	pointDatasetAt(t, DatasetBasics, server.URL)

	fetcher := NewFetcher(t.TempDir(), false)
	path, err := fetcher.EnsureDataset(context.Background(), DatasetBasics)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)

	// A second call must be served from the cache.
	again, err := fetcher.EnsureDataset(context.Background(), DatasetBasics)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, hits)

	// Unless a re-download is forced.
	fetcher.Force = true
	_, err = fetcher.EnsureDataset(context.Background(), DatasetBasics)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func Test_EnsureDataset_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	pointDatasetAt(t, DatasetRatings, server.URL)

	fetcher := NewFetcher(t.TempDir(), false)
	_, err := fetcher.EnsureDataset(context.Background(), DatasetRatings)
	assert.Error(t, err)

	// A failed transfer must not leave a partial file behind to be
	// mistaken for a cached dataset later.
	_, statErr := os.Stat(filepath.Join(fetcher.DataDir, DatasetRatings+".tsv.gz"))
	assert.True(t, os.IsNotExist(statErr))
}

func Test_EnsureDataset_UnknownName(t *testing.T) {
	fetcher := NewFetcher(t.TempDir(), false)
	_, err := fetcher.EnsureDataset(context.Background(), "title_crew")
	assert.Error(t, err)
}

func Test_Open_DecompressesDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.tsv.gz")
	require.NoError(t, os.WriteFile(path, gzipped(t, "hello\tworld\n"), 0o644))

	fetcher := NewFetcher(dir, false)
	reader, err := fetcher.Open(path)
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello\tworld\n", string(content))
}

func Test_Open_RejectsNonGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.tsv.gz")
	require.NoError(t, os.WriteFile(path, []byte("not compressed"), 0o644))

	fetcher := NewFetcher(dir, false)
	_, err := fetcher.Open(path)
	assert.Error(t, err)
}
