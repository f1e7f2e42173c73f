package media_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/showdex/showdex/internal/database"
	"github.com/showdex/showdex/internal/discussion"
	"github.com/showdex/showdex/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// spawnDatabase starts a throwaway postgres container and connects the
// database manager to it, running the embedded migrations.
func spawnDatabase(t *testing.T) database.Manager {
	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:14.1-alpine"),
		postgres.WithDatabase("SHOWDEX_TEST_DB"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		timeout := 5 * time.Second
		_ = pgContainer.Stop(ctx, &timeout)
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	manager := database.New()
	require.NoError(t, manager.Connect(database.DatabaseConfig{
		User:     "postgres",
		Password: "postgres",
		Name:     "SHOWDEX_TEST_DB",
		Host:     host,
		Port:     port.Port(),
		SSLMode:  "disable",
	}))

	return manager
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func Test_Stores_AgainstRealDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}

	manager := spawnDatabase(t)
	db := manager.GetSqlxDb()
	store := &media.Store{}

	shows := []*media.Show{
		{ImdbID: "tt0001", Title: "The Keeper", StartYear: 1995, Genres: []string{"Drama", "Mystery"}, AverageRating: floatPtr(8.1), NumVotes: intPtr(5000)},
		{ImdbID: "tt0002", Title: "Nightwatch", StartYear: 2001, Genres: []string{}, AverageRating: floatPtr(7.2), NumVotes: intPtr(9000)},
	}
	require.NoError(t, store.UpsertShows(db, shows))

	mappings, err := store.GetShowIDMappings(db)
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	// Re-upserting must update in place without changing assigned IDs.
	shows[0].Title = "The Keeper (1995)"
	shows[0].NumVotes = intPtr(15000)
	require.NoError(t, store.UpsertShows(db, shows))

	after, err := store.GetShowIDMappings(db)
	require.NoError(t, err)
	assert.Equal(t, mappings, after)

	listed, err := store.ListShows(db)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "tt0001", listed[0].ImdbID, "most-voted show must come first")
	assert.Equal(t, "The Keeper (1995)", listed[0].Title)
	assert.Equal(t, []string{"Drama", "Mystery"}, []string(listed[0].Genres))

	episodes := []*media.Episode{
		{ShowID: mappings["tt0001"], ImdbID: "tt1001", SeasonNumber: 1, EpisodeNumber: 1, AverageRating: floatPtr(8.9), NumVotes: intPtr(400)},
		{ShowID: mappings["tt0001"], ImdbID: "tt1002", SeasonNumber: 1, EpisodeNumber: 2},
	}
	require.NoError(t, store.UpsertEpisodes(db, episodes))
	require.NoError(t, store.UpsertEpisodes(db, episodes), "episode upsert must be idempotent")

	var episodeCount int
	require.NoError(t, db.Get(&episodeCount, "SELECT COUNT(*) FROM episodes"))
	assert.Equal(t, 2, episodeCount)

	discussionStore := &discussion.Store{}
	posts := []*discussion.Discussion{
		{
			ShowID:       mappings["tt0001"],
			RedditID:     "abc123",
			Title:        "The Keeper finale discussion",
			Content:      "what an ending",
			Score:        512,
			UpvoteRatio:  floatPtr(0.97),
			NumComments:  48,
			CreatedUTC:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Subreddit:    "television",
			Author:       "someone",
			URL:          "https://reddit.com/abc123",
			IsDiscussion: true,
		},
	}
	require.NoError(t, discussionStore.UpsertDiscussions(db, posts))

	posts[0].Score = 1024
	require.NoError(t, discussionStore.UpsertDiscussions(db, posts))

	var row struct {
		Score      int       `db:"score"`
		CreatedUTC time.Time `db:"created_utc"`
	}
	require.NoError(t, db.Get(&row, "SELECT score, created_utc FROM reddit_posts WHERE reddit_id = 'abc123'"))
	assert.Equal(t, 1024, row.Score)
	assert.True(t, row.CreatedUTC.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	// An error inside WrapTx must roll the whole transaction back.
	abort := errors.New("abort")
	err = manager.WrapTx(func(tx *sqlx.Tx) error {
		if err := store.UpsertShows(tx, []*media.Show{{ImdbID: "tt0003", Title: "Phantom", StartYear: 2010, Genres: []string{}}}); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	var phantomCount int
	require.NoError(t, db.Get(&phantomCount, "SELECT COUNT(*) FROM shows WHERE imdb_id = 'tt0003'"))
	assert.Zero(t, phantomCount, "rolled-back show must not be visible")
}
