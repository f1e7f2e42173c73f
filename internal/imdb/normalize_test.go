package imdb_test

import (
	"testing"

	"github.com/showdex/showdex/internal/imdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratedTitle(mutate func(*imdb.RatedTitle)) imdb.RatedTitle {
	title := imdb.RatedTitle{
		TitleRow: imdb.TitleRow{
			Tconst:         "tt0001",
			TitleType:      "tvSeries",
			PrimaryTitle:   "The Keeper",
			OriginalTitle:  "The Keeper",
			IsAdult:        "0",
			StartYear:      "1995",
			EndYear:        "2001",
			RuntimeMinutes: "45",
			Genres:         "Drama,Mystery",
		},
		Rating: imdb.Rating{AverageRating: 8.1, NumVotes: 5000},
	}
	if mutate != nil {
		mutate(&title)
	}

	return title
}

func Test_ShowToMedia_MapsFields(t *testing.T) {
	t.Parallel()
	show := imdb.ShowToMedia(ratedTitle(nil))

	assert.Equal(t, "tt0001", show.ImdbID)
	assert.Equal(t, "The Keeper", show.Title)
	assert.Equal(t, 1995, show.StartYear)
	require.NotNil(t, show.EndYear)
	assert.Equal(t, 2001, *show.EndYear)
	require.NotNil(t, show.RuntimeMinutes)
	assert.Equal(t, 45, *show.RuntimeMinutes)
	assert.Equal(t, []string{"Drama", "Mystery"}, []string(show.Genres))
	require.NotNil(t, show.AverageRating)
	assert.Equal(t, 8.1, *show.AverageRating)
	require.NotNil(t, show.NumVotes)
	assert.Equal(t, 5000, *show.NumVotes)
}

func Test_ShowToMedia_SentinelsBecomeAbsent(t *testing.T) {
	t.Parallel()
	show := imdb.ShowToMedia(ratedTitle(func(title *imdb.RatedTitle) {
		title.EndYear = `\N`
		title.RuntimeMinutes = `\N`
		title.Genres = `\N`
	}))

	assert.Nil(t, show.EndYear)
	assert.Nil(t, show.RuntimeMinutes)
	assert.NotNil(t, show.Genres, "missing genres become an empty list, not an absent one")
	assert.Empty(t, show.Genres)
}

func Test_ShowToMedia_OriginalTitleOnlyWhenDistinct(t *testing.T) {
	t.Parallel()
	same := imdb.ShowToMedia(ratedTitle(nil))
	assert.Nil(t, same.OriginalTitle)

	differs := imdb.ShowToMedia(ratedTitle(func(title *imdb.RatedTitle) {
		title.OriginalTitle = "Le Gardien"
	}))
	require.NotNil(t, differs.OriginalTitle)
	assert.Equal(t, "Le Gardien", *differs.OriginalTitle)
}

func Test_NormalizeEpisodes_DropsRowsMissingKeyFields(t *testing.T) {
	t.Parallel()
	rows := []imdb.RatedEpisode{
		{EpisodeRow: imdb.EpisodeRow{Tconst: "tt1001", ParentTconst: "tt0001", SeasonNumber: "1", EpisodeNumber: "1"}},
		{EpisodeRow: imdb.EpisodeRow{Tconst: "tt1002", ParentTconst: "tt0001", SeasonNumber: `\N`, EpisodeNumber: "2"}},
		{EpisodeRow: imdb.EpisodeRow{Tconst: "tt1003", ParentTconst: "tt0001", SeasonNumber: "1", EpisodeNumber: `\N`}},
		{EpisodeRow: imdb.EpisodeRow{Tconst: "tt1004", ParentTconst: "tt0001", SeasonNumber: "2", EpisodeNumber: "5"}},
	}

	episodes := imdb.NormalizeEpisodes(rows)
	require.Len(t, episodes, 2)
	assert.Equal(t, "tt1001", episodes[0].ImdbID)
	assert.Equal(t, "tt1004", episodes[1].ImdbID)
	assert.Equal(t, 2, episodes[1].SeasonNumber)
	assert.Equal(t, 5, episodes[1].EpisodeNumber)
}

func Test_NormalizeEpisodes_RatingFailsSoft(t *testing.T) {
	t.Parallel()
	rows := []imdb.RatedEpisode{
		{
			EpisodeRow: imdb.EpisodeRow{Tconst: "tt1001", ParentTconst: "tt0001", SeasonNumber: "1", EpisodeNumber: "1"},
			Rating:     &imdb.Rating{AverageRating: 9.0, NumVotes: 150},
		},
		{EpisodeRow: imdb.EpisodeRow{Tconst: "tt1002", ParentTconst: "tt0001", SeasonNumber: "1", EpisodeNumber: "2"}},
	}

	episodes := imdb.NormalizeEpisodes(rows)
	require.Len(t, episodes, 2)

	require.NotNil(t, episodes[0].AverageRating)
	assert.Equal(t, 9.0, *episodes[0].AverageRating)
	require.NotNil(t, episodes[0].NumVotes)
	assert.Equal(t, 150, *episodes[0].NumVotes)

	assert.Nil(t, episodes[1].AverageRating)
	assert.Nil(t, episodes[1].NumVotes)
}

func Test_EpisodeToMedia_AttachesParentID(t *testing.T) {
	t.Parallel()
	episode := imdb.Episode{ImdbID: "tt1001", ParentImdbID: "tt0001", SeasonNumber: 3, EpisodeNumber: 7}

	model := imdb.EpisodeToMedia(episode, 42)
	assert.Equal(t, int64(42), model.ShowID)
	assert.Equal(t, "tt1001", model.ImdbID)
	assert.Equal(t, 3, model.SeasonNumber)
	assert.Equal(t, 7, model.EpisodeNumber)
}
