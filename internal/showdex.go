package internal

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/showdex/showdex/internal/crawler"
	"github.com/showdex/showdex/internal/database"
	"github.com/showdex/showdex/internal/discussion"
	"github.com/showdex/showdex/internal/http/reddit"
	"github.com/showdex/showdex/internal/imdb"
	"github.com/showdex/showdex/internal/media"
	"github.com/showdex/showdex/internal/persist"
	"github.com/showdex/showdex/pkg/logger"
)

var log = logger.Get("Core")

type PipelineOutcome int

const (
	// OutcomeSuccess means every enabled phase fully reached the store.
	OutcomeSuccess PipelineOutcome = iota

	// OutcomeDegraded means at least one dataset fell back (partly or
	// wholly) to its local backup artifact; nothing was lost, but the
	// store is incomplete until the operator intervenes.
	OutcomeDegraded

	// OutcomeFailed means a pipeline phase aborted, or the store was
	// entirely unreachable for a dataset.
	OutcomeFailed
)

func (o PipelineOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeDegraded:
		return "DEGRADED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN[%d]", o)
	}
}

// Showdex is the top-level object for the pipeline, responsible for
// connecting the database, running the catalog ingest (bulk datasets ->
// filter/join -> normalize -> persist) and then the discussion crawl.
type showdexImpl struct {
	config ShowdexConfig
	db     database.Manager

	mediaStore      *media.Store
	discussionStore *discussion.Store
}

func New(config ShowdexConfig) *showdexImpl {
	return &showdexImpl{
		config:          config,
		db:              database.New(),
		mediaStore:      &media.Store{},
		discussionStore: &discussion.Store{},
	}
}

// Run executes the enabled pipeline phases sequentially and reports the
// worst outcome observed. Phase-level errors (unusable datasets, dead
// transport) abort the run; batch- and record-level problems degrade it.
func (showdex *showdexImpl) Run(ctx context.Context) (PipelineOutcome, error) {
	if err := showdex.db.Connect(showdex.config.Database); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to connect to database: %w", err)
	}

	outcome := OutcomeSuccess
	if showdex.config.Ingest.Enabled {
		ingestOutcome, err := showdex.runIngest(ctx)
		if err != nil {
			return OutcomeFailed, err
		}

		outcome = worsePipelineOutcome(outcome, ingestOutcome)
	}

	if showdex.config.Crawl.Enabled {
		crawlOutcome, err := showdex.runCrawl(ctx)
		if err != nil {
			return OutcomeFailed, err
		}

		outcome = worsePipelineOutcome(outcome, crawlOutcome)
	}

	log.Emit(logger.SUCCESS, "Pipeline complete with outcome %s\n", outcome)
	return outcome, nil
}

// runIngest performs the catalog phase: fetch the bulk datasets, distill
// the show candidate set, normalize and persist shows, then resolve and
// persist their episodes. Episodes are only attempted once at least some
// shows exist remotely, as they attach by store-assigned parent ID.
func (showdex *showdexImpl) runIngest(ctx context.Context) (PipelineOutcome, error) {
	log.Emit(logger.NEW, "Starting catalog ingest...\n")

	fetcher := imdb.NewFetcher(showdex.config.RawDir(), showdex.config.Ingest.ForceDownload)
	paths, err := fetcher.EnsureAll(ctx)
	if err != nil {
		return OutcomeFailed, err
	}

	ratings, err := showdex.loadRatings(fetcher, paths[imdb.DatasetRatings])
	if err != nil {
		return OutcomeFailed, err
	}

	selected, err := showdex.selectShows(fetcher, paths[imdb.DatasetBasics], ratings)
	if err != nil {
		return OutcomeFailed, err
	}

	shows := make([]*media.Show, len(selected))
	showIDs := make(map[string]struct{}, len(selected))
	for k, title := range selected {
		shows[k] = imdb.ShowToMedia(title)
		showIDs[title.Tconst] = struct{}{}
	}

	saver := &persist.Batched[*media.Show]{
		Dataset:   "shows",
		BackupDir: showdex.config.ProcessedDir(),
		BatchSize: showdex.config.Ingest.ShowBatchSize,
		Header:    media.ShowCsvHeader(),
		Row:       media.ShowCsvRow,
	}
	// Each batch runs in its own transaction so a half-written batch
	// rolls back cleanly rather than leaving partial rows behind.
	showResult, err := saver.Save(shows, func(batch []*media.Show) error {
		return showdex.db.WrapTx(func(tx *sqlx.Tx) error {
			return showdex.mediaStore.UpsertShows(tx, batch)
		})
	})
	if err != nil {
		return OutcomeFailed, err
	}

	if showResult.Outcome == persist.Failure || showResult.Persisted == 0 {
		log.Emit(logger.ERROR, "No shows reached the store; skipping episode ingest (episodes attach to store-assigned show IDs). Shows preserved in %s\n", showResult.BackupPath)
		return persistToPipelineOutcome(showResult.Outcome), nil
	}

	episodeOutcome, err := showdex.ingestEpisodes(fetcher, paths[imdb.DatasetEpisodes], showIDs, ratings)
	if err != nil {
		return OutcomeFailed, err
	}

	return worsePipelineOutcome(persistToPipelineOutcome(showResult.Outcome), episodeOutcome), nil
}

func (showdex *showdexImpl) ingestEpisodes(fetcher *imdb.Fetcher, path string, showIDs map[string]struct{}, ratings map[string]imdb.Rating) (PipelineOutcome, error) {
	reader, err := fetcher.Open(path)
	if err != nil {
		return OutcomeFailed, err
	}
	defer reader.Close()

	rows, err := imdb.SelectEpisodes(reader, showIDs, ratings)
	if err != nil {
		return OutcomeFailed, err
	}

	mappings, err := showdex.mediaStore.GetShowIDMappings(showdex.db.GetSqlxDb())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to read back store-assigned show IDs: %w", err)
	}

	// Episodes whose parent never made it into the store are dropped,
	// not failed - their absence is already accounted for by the shows
	// persistence outcome.
	episodes := make([]*media.Episode, 0, len(rows))
	skipped := 0
	for _, episode := range imdb.NormalizeEpisodes(rows) {
		showID, ok := mappings[episode.ParentImdbID]
		if !ok {
			skipped++
			continue
		}

		episodes = append(episodes, imdb.EpisodeToMedia(episode, showID))
	}
	if skipped > 0 {
		log.Emit(logger.WARNING, "Skipped %d episodes whose parent show is absent from the store\n", skipped)
	}

	saver := &persist.Batched[*media.Episode]{
		Dataset:   "episodes",
		BackupDir: showdex.config.ProcessedDir(),
		BatchSize: showdex.config.Ingest.EpisodeBatchSize,
		Header:    media.EpisodeCsvHeader(),
		Row:       media.EpisodeCsvRow,
	}
	result, err := saver.Save(episodes, func(batch []*media.Episode) error {
		return showdex.db.WrapTx(func(tx *sqlx.Tx) error {
			return showdex.mediaStore.UpsertEpisodes(tx, batch)
		})
	})
	if err != nil {
		return OutcomeFailed, err
	}

	return persistToPipelineOutcome(result.Outcome), nil
}

func (showdex *showdexImpl) loadRatings(fetcher *imdb.Fetcher, path string) (map[string]imdb.Rating, error) {
	reader, err := fetcher.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return imdb.LoadRatings(reader)
}

func (showdex *showdexImpl) selectShows(fetcher *imdb.Fetcher, path string, ratings map[string]imdb.Rating) ([]imdb.RatedTitle, error) {
	reader, err := fetcher.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return imdb.SelectShows(reader, ratings, imdb.SelectOptions{
		MinStartYear: showdex.config.Ingest.MinStartYear,
		MinVotes:     showdex.config.Ingest.MinVotes,
		MaxShows:     showdex.config.Ingest.MaxShows,
		ChunkSize:    showdex.config.Ingest.ChunkSize,
	})
}

// runCrawl walks the persisted shows and collects community discussions
// about each, persisting through the same resilient layer as the catalog.
func (showdex *showdexImpl) runCrawl(ctx context.Context) (PipelineOutcome, error) {
	log.Emit(logger.NEW, "Starting discussion crawl...\n")

	crawlerConfig := showdex.config.Crawler
	crawlerConfig.ProgressPath = showdex.config.ProgressPath()

	searcher := reddit.NewSearcher(reddit.Config{
		ClientID:     showdex.config.Reddit.ClientID,
		ClientSecret: showdex.config.Reddit.ClientSecret,
		UserAgent:    showdex.config.Reddit.UserAgent,
	})

	sink := &crawlSink{
		db:    showdex.db,
		store: showdex.discussionStore,
		saver: &persist.Batched[*discussion.Discussion]{
			Dataset:   "reddit_discussions",
			BackupDir: showdex.config.ProcessedDir(),
			BatchSize: showdex.config.Crawl.DiscussionBatchSize,
			Header:    discussion.CsvHeader(),
			Row:       discussion.CsvRow,
		},
	}

	service := crawler.New(crawlerConfig, searcher, &crawlSource{db: showdex.db.GetSqlxDb(), store: showdex.mediaStore}, sink)
	report, err := service.Run(ctx)
	if err != nil {
		return OutcomeFailed, err
	}

	failed := 0
	for _, item := range report.Items {
		if item.State == crawler.FAILED {
			failed++
		}
	}
	if failed > 0 {
		log.Emit(logger.WARNING, "%d/%d shows failed during crawl; see report\n", failed, len(report.Items))
	}
	log.Emit(logger.INFO, "Crawl artifacts: %d discussions backed up under %s\n", report.Discussions, showdex.config.ProcessedDir())

	return persistToPipelineOutcome(report.Outcome), nil
}

// crawlSource adapts the media store to the crawlers work queue interface.
type crawlSource struct {
	db    *sqlx.DB
	store *media.Store
}

func (source *crawlSource) ListShows() ([]*media.Show, error) {
	return source.store.ListShows(source.db)
}

// crawlSink routes the crawlers accumulated discussions through the
// resilient persistence layer.
type crawlSink struct {
	db    database.Manager
	store *discussion.Store
	saver *persist.Batched[*discussion.Discussion]
}

func (sink *crawlSink) SaveDiscussions(discussions []*discussion.Discussion) (*persist.Result, error) {
	return sink.saver.Save(discussions, func(batch []*discussion.Discussion) error {
		return sink.db.WrapTx(func(tx *sqlx.Tx) error {
			return sink.store.UpsertDiscussions(tx, batch)
		})
	})
}

func persistToPipelineOutcome(outcome persist.Outcome) PipelineOutcome {
	switch outcome {
	case persist.FullSuccess:
		return OutcomeSuccess
	case persist.PartialSuccess:
		return OutcomeDegraded
	default:
		return OutcomeFailed
	}
}

func worsePipelineOutcome(a PipelineOutcome, b PipelineOutcome) PipelineOutcome {
	if b > a {
		return b
	}

	return a
}
