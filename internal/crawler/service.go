// Package crawler walks the persisted show catalog as an ordered work
// queue, searching a fixed set of communities (plus an opportunistically
// discovered show-specific one) for discussions about each show. Results
// are relevance-filtered, deduplicated by post identifier and handed to
// the persistence layer, with periodic checkpoints so a long overnight run
// is manually resumable.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/google/uuid"
	"github.com/showdex/showdex/internal/discussion"
	"github.com/showdex/showdex/internal/http/reddit"
	"github.com/showdex/showdex/internal/media"
	"github.com/showdex/showdex/internal/persist"
	"github.com/showdex/showdex/pkg/logger"
)

var log = logger.Get("Crawler")

var ErrNoShows = errors.New("no shows available to crawl; run the catalog ingest first")

// A derived subreddits own title must resemble the show title at least
// this much before the community is trusted to be about the show
// (protects against collisions like a show named "Dark" and r/dark).
const subredditSimilarityThreshold = 0.5

type (
	searcher interface {
		SearchSubreddit(ctx context.Context, subreddit string, query string, limit int) ([]reddit.Post, error)
		AboutSubreddit(ctx context.Context, subreddit string) (*reddit.SubredditAbout, error)
	}

	dataStore interface {
		ListShows() ([]*media.Show, error)
	}

	// discussionSink hands accumulated discussions to the resilient
	// persistence layer. The sink owns batching and backup concerns.
	discussionSink interface {
		SaveDiscussions(discussions []*discussion.Discussion) (*persist.Result, error)
	}

	// Report accounts for every show the crawl touched, so callers and
	// tests can assert on outcomes instead of trusting silent
	// continuation.
	Report struct {
		SessionID   uuid.UUID
		Items       []*ShowCrawl
		Discussions int
		Requests    int
		Elapsed     time.Duration
		Outcome     persist.Outcome
	}

	crawlService struct {
		config   Config
		searcher searcher
		store    dataStore
		sink     discussionSink
		pacer    *Pacer

		sessionID   uuid.UUID
		items       []*ShowCrawl
		discussions []*discussion.Discussion

		// similarity metric used when vetting derived show communities
		titleMetric *metrics.JaroWinkler
	}
)

func New(config Config, searcher searcher, store dataStore, sink discussionSink) *crawlService {
	return &crawlService{
		config:      config,
		searcher:    searcher,
		store:       store,
		sink:        sink,
		pacer:       NewPacer(config.RequestDelayDuration()),
		sessionID:   uuid.New(),
		titleMetric: metrics.NewJaroWinkler(),
	}
}

// Run crawls every show in the stores catalog sequentially. Per-show
// failures are recorded on the items and never abort the crawl; the only
// aborting condition is context cancellation. The returned report is
// complete even when an error is returned alongside it.
func (service *crawlService) Run(ctx context.Context) (*Report, error) {
	shows, err := service.store.ListShows()
	if err != nil {
		return nil, err
	}
	if len(shows) == 0 {
		return nil, ErrNoShows
	}

	log.Emit(logger.NEW, "Starting discussion crawl %s over %d shows\n", service.sessionID, len(shows))

	service.items = make([]*ShowCrawl, len(shows))
	for k, show := range shows {
		service.items[k] = &ShowCrawl{Show: show, State: PENDING}
	}

	worstOutcome := persist.FullSuccess
	persistedUpTo := 0
	succeeded := 0
	for index, item := range service.items {
		log.Emit(logger.INFO, "Processing show %d/%d: %s\n", index+1, len(service.items), item.Show.Title)

		found, err := service.searchShow(ctx, item)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return service.report(worstOutcome), err
			}

			item.State = FAILED
			item.Err = err
			log.Emit(logger.ERROR, "Failed to process %s: %s\n", item, err.Error())
			continue
		}

		succeeded++
		item.Found = len(found)
		service.discussions = append(service.discussions, found...)
		if len(found) > 0 {
			log.Emit(logger.SUCCESS, "Found %d discussions for %q\n", len(found), item.Show.Title)
		} else {
			log.Emit(logger.INFO, "No discussions found for %q\n", item.Show.Title)
		}

		if (index+1)%service.config.CheckpointEvery == 0 {
			outcome := service.checkpoint(succeeded)
			worstOutcome = worseOf(worstOutcome, outcome)
			service.markPersisted(persistedUpTo, index+1)
			persistedUpTo = index + 1
		}

		if err := service.betweenShows(ctx); err != nil {
			return service.report(worstOutcome), err
		}
	}

	outcome := service.checkpoint(succeeded)
	worstOutcome = worseOf(worstOutcome, outcome)
	service.markPersisted(persistedUpTo, len(service.items))

	report := service.report(worstOutcome)
	log.Emit(logger.SUCCESS, "Crawl complete! %.1f hours, %d shows, %d discussions, %d requests\n",
		report.Elapsed.Hours(), len(report.Items), report.Discussions, report.Requests)

	return report, nil
}

// searchShow runs the full query cross-product for one show, returning the
// relevance-filtered, deduplicated discussions. Individual query failures
// are logged and skipped; the show itself only fails when every query
// failed, or on context cancellation.
func (service *crawlService) searchShow(ctx context.Context, item *ShowCrawl) ([]*discussion.Discussion, error) {
	item.State = SEARCHING
	title := item.Show.Title

	subreddits := service.config.Subreddits
	if derived := service.resolveShowSubreddit(ctx, title); derived != "" {
		subreddits = append([]string{derived}, subreddits...)
	}

	queries := buildQueries(subreddits, searchTerms(title))

	var collected []*reddit.Post
	var lastErr error
	failed := 0
	for _, query := range queries {
		if err := service.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		posts, err := service.searcher.SearchSubreddit(ctx, query.Subreddit, query.Term, service.config.LimitPerSearch)
		if err != nil {
			log.Emit(logger.WARNING, "Search of r/%s for %q failed: %s\n", query.Subreddit, query.Term, err.Error())
			failed++
			lastErr = err
			continue
		}

		matched := 0
		for k := range posts {
			if isRelevant(title, &posts[k]) {
				collected = append(collected, &posts[k])
				matched++
			}
		}
		log.Emit(logger.DEBUG, "Query %q in r/%s matched %d/%d posts\n", query.Term, query.Subreddit, matched, len(posts))
	}

	if failed == len(queries) && lastErr != nil {
		return nil, fmt.Errorf("every search for %q failed: %w", title, lastErr)
	}

	item.State = DEDUPLICATING
	unique := collapseByID(collected)

	discussions := make([]*discussion.Discussion, len(unique))
	for k, post := range unique {
		discussions[k] = postToDiscussion(post, item.Show.ID)
	}

	return discussions, nil
}

// resolveShowSubreddit probes for a community named after the show. The
// community is only included when it exists, clears the subscriber
// threshold and its own title resembles the shows. Every failure here is
// swallowed - the show-specific community is an opportunistic bonus, not
// a requirement.
func (service *crawlService) resolveShowSubreddit(ctx context.Context, title string) string {
	name := deriveSubredditName(title)
	if name == "" {
		return ""
	}
	for _, existing := range service.config.Subreddits {
		if strings.EqualFold(existing, name) {
			return ""
		}
	}

	if err := service.pacer.Wait(ctx); err != nil {
		return ""
	}

	about, err := service.searcher.AboutSubreddit(ctx, name)
	if err != nil {
		log.Emit(logger.DEBUG, "No usable community at r/%s: %s\n", name, err.Error())
		return ""
	}

	if about.Over18 {
		log.Emit(logger.DEBUG, "Community r/%s is age-gated, skipping\n", name)
		return ""
	}

	if about.Subscribers <= service.config.MinSubscribers {
		return ""
	}

	similarity := strutil.Similarity(strings.ToLower(about.Title), strings.ToLower(title), service.titleMetric)
	if similarity < subredditSimilarityThreshold {
		log.Emit(logger.DEBUG, "Community r/%s title %q does not resemble show %q (%.2f), skipping\n", name, about.Title, title, similarity)
		return ""
	}

	log.Emit(logger.INFO, "Found show community: r/%s (%d subscribers)\n", name, about.Subscribers)
	return name
}

// checkpoint saves everything accumulated so far and writes the progress
// marker. Checkpoint failures degrade the run outcome but never stop the
// crawl; the next checkpoint retries the full accumulated set.
func (service *crawlService) checkpoint(completed int) persist.Outcome {
	result, err := service.sink.SaveDiscussions(service.discussions)
	if err != nil {
		log.Emit(logger.ERROR, "Checkpoint persistence failed entirely: %s\n", err.Error())
		return persist.Failure
	}

	marker := persist.ProgressMarker{
		SessionID:        service.sessionID,
		Timestamp:        time.Now().UTC(),
		CompletedShows:   completed,
		TotalDiscussions: len(service.discussions),
		RequestCount:     service.pacer.Requests(),
	}
	if err := persist.WriteProgress(service.config.ProgressPath, marker); err != nil {
		log.Emit(logger.WARNING, "Failed to write progress marker: %s\n", err.Error())
	}

	log.Emit(logger.INFO, "Checkpoint saved: %d shows completed, %d discussions\n", completed, len(service.discussions))
	return result.Outcome
}

func (service *crawlService) markPersisted(from int, to int) {
	for _, item := range service.items[from:to] {
		if item.State == DEDUPLICATING {
			item.State = PERSISTED
		}
	}
}

func (service *crawlService) betweenShows(ctx context.Context) error {
	delay := service.config.ShowDelayDuration()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (service *crawlService) report(outcome persist.Outcome) *Report {
	return &Report{
		SessionID:   service.sessionID,
		Items:       service.items,
		Discussions: len(service.discussions),
		Requests:    service.pacer.Requests(),
		Elapsed:     service.pacer.Elapsed(),
		Outcome:     outcome,
	}
}

func postToDiscussion(post *reddit.Post, showID int64) *discussion.Discussion {
	ratio := post.UpvoteRatio
	return &discussion.Discussion{
		ShowID:       showID,
		RedditID:     post.ID,
		Title:        post.Title,
		Content:      discussion.TruncateContent(post.SelfText),
		Score:        post.Score,
		UpvoteRatio:  &ratio,
		NumComments:  post.NumComments,
		CreatedUTC:   post.CreatedAt(),
		Subreddit:    post.Subreddit,
		Author:       post.AuthorName(),
		URL:          post.URL,
		IsDiscussion: isDiscussionPost(post.Title),
	}
}

func worseOf(a persist.Outcome, b persist.Outcome) persist.Outcome {
	if b > a {
		return b
	}

	return a
}
