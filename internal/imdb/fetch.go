// Package imdb handles acquisition and distillation of the IMDb bulk
// dataset exports: downloading the compressed TSV files, filtering the
// show catalog down to a ranked candidate set, and normalizing the
// dataset-native sentinel values into the store schema.
package imdb

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/showdex/showdex/pkg/logger"
)

var log = logger.Get("IMDb")

const (
	DatasetBasics   = "title_basics"
	DatasetEpisodes = "title_episodes"
	DatasetRatings  = "title_ratings"

	datasetBaseUrl = "https://datasets.imdbws.com"

	// Transfer progress is surfaced once per this many bytes.
	progressInterval = 64 << 20
)

var datasetUrls = map[string]string{
	DatasetBasics:   datasetBaseUrl + "/title.basics.tsv.gz",
	DatasetEpisodes: datasetBaseUrl + "/title.episode.tsv.gz",
	DatasetRatings:  datasetBaseUrl + "/title.ratings.tsv.gz",
}

// Fetcher mirrors the IMDb dataset exports into a local cache directory.
// Fetches are idempotent: a dataset already on disk is not re-transferred
// unless Force is set.
type Fetcher struct {
	DataDir string
	Force   bool

	client *http.Client
}

func NewFetcher(dataDir string, force bool) *Fetcher {
	return &Fetcher{
		DataDir: dataDir,
		Force:   force,
		client:  &http.Client{Timeout: time.Minute * 30},
	}
}

// EnsureDataset guarantees a local compressed copy of the named dataset and
// returns its path. The transfer is streamed straight to disk; transport
// errors abort the fetch and propagate to the caller without retry.
func (fetcher *Fetcher) EnsureDataset(ctx context.Context, name string) (string, error) {
	url, ok := datasetUrls[name]
	if !ok {
		return "", fmt.Errorf("unknown dataset %q", name)
	}

	path := filepath.Join(fetcher.DataDir, name+".tsv.gz")
	if _, err := os.Stat(path); err == nil && !fetcher.Force {
		log.Emit(logger.DEBUG, "Dataset %s already cached at %s, skipping download\n", name, path)
		return path, nil
	}

	if err := os.MkdirAll(fetcher.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dataset cache directory: %w", err)
	}

	log.Emit(logger.INFO, "Downloading dataset %s from %s...\n", name, url)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	response, err := fetcher.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to fetch dataset %s: %w", name, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch dataset %s: unexpected status %s", name, response.Status)
	}

	temp, err := os.CreateTemp(fetcher.DataDir, name+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(temp.Name())

	written, err := io.Copy(temp, &progressReader{
		reader:  response.Body,
		dataset: name,
		total:   response.ContentLength,
	})
	if err != nil {
		temp.Close()
		return "", fmt.Errorf("transfer of dataset %s failed after %d bytes: %w", name, written, err)
	}
	if err := temp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(temp.Name(), path); err != nil {
		return "", err
	}

	log.Emit(logger.SUCCESS, "Downloaded dataset %s (%d bytes)\n", name, written)
	return path, nil
}

// EnsureAll fetches every known dataset, returning a name -> path map.
func (fetcher *Fetcher) EnsureAll(ctx context.Context) (map[string]string, error) {
	paths := make(map[string]string, len(datasetUrls))
	for _, name := range []string{DatasetBasics, DatasetEpisodes, DatasetRatings} {
		path, err := fetcher.EnsureDataset(ctx, name)
		if err != nil {
			return nil, err
		}

		paths[name] = path
	}

	return paths, nil
}

// Open returns a decompressing reader over a cached dataset file. Closing
// the returned reader closes both the gzip stream and the underlying file.
func (fetcher *Fetcher) Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("dataset %s is not a valid gzip stream: %w", path, err)
	}

	return &gzipReadCloser{Reader: gzReader, closer: file}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	closer io.Closer
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		return errors.Join(err, g.closer.Close())
	}

	return g.closer.Close()
}

// progressReader surfaces transfer progress as the response body streams
// through it on the way to disk.
type progressReader struct {
	reader   io.Reader
	dataset  string
	total    int64
	read     int64
	reported int64
}

func (p *progressReader) Read(buffer []byte) (int, error) {
	n, err := p.reader.Read(buffer)
	p.read += int64(n)

	if p.read-p.reported >= progressInterval {
		p.reported = p.read
		if p.total > 0 {
			log.Emit(logger.INFO, "Dataset %s: %dMB / %dMB transferred\n", p.dataset, p.read>>20, p.total>>20)
		} else {
			log.Emit(logger.INFO, "Dataset %s: %dMB transferred\n", p.dataset, p.read>>20)
		}
	}

	return n, err
}
