package imdb

import (
	"strconv"
	"strings"

	"github.com/showdex/showdex/internal/media"
	"github.com/showdex/showdex/pkg/logger"
)

// Episode is a normalized episode row awaiting parent resolution: the
// owning shows store-assigned ID is not known until the shows have been
// upserted and the ID mapping re-read.
type Episode struct {
	ImdbID        string
	ParentImdbID  string
	SeasonNumber  int
	EpisodeNumber int
	AverageRating *float64
	NumVotes      *int
}

// ShowToMedia converts a selected title row into the store model,
// translating the datasets missing-value sentinel into true absence. The
// original title is only carried when it differs from the primary title.
func ShowToMedia(title RatedTitle) *media.Show {
	show := &media.Show{
		ImdbID:         title.Tconst,
		Title:          title.PrimaryTitle,
		EndYear:        optionalInt(title.EndYear),
		RuntimeMinutes: optionalInt(title.RuntimeMinutes),
		Genres:         splitGenres(title.Genres),
		AverageRating:  &title.AverageRating,
		NumVotes:       &title.Rating.NumVotes,
	}

	// Start year was validated as numeric during filtering.
	show.StartYear, _ = strconv.Atoi(title.StartYear)

	if title.OriginalTitle != title.PrimaryTitle && title.OriginalTitle != MissingSentinel {
		original := title.OriginalTitle
		show.OriginalTitle = &original
	}

	return show
}

// NormalizeEpisodes converts raw episode rows, dropping any row whose
// season or episode number cannot be resolved to an integer - those two
// fields key the episode and must never be persisted as nulls. All other
// numeric conversions fail soft into absence.
func NormalizeEpisodes(rows []RatedEpisode) []Episode {
	episodes := make([]Episode, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		season := optionalInt(row.SeasonNumber)
		number := optionalInt(row.EpisodeNumber)
		if season == nil || number == nil {
			dropped++
			continue
		}

		episode := Episode{
			ImdbID:        row.Tconst,
			ParentImdbID:  row.ParentTconst,
			SeasonNumber:  *season,
			EpisodeNumber: *number,
		}
		if row.Rating != nil {
			rating := row.Rating.AverageRating
			votes := row.Rating.NumVotes
			episode.AverageRating = &rating
			episode.NumVotes = &votes
		}

		episodes = append(episodes, episode)
	}

	if dropped > 0 {
		log.Emit(logger.DEBUG, "Dropped %d episodes with unresolved season/episode numbers\n", dropped)
	}

	return episodes
}

// EpisodeToMedia attaches a normalized episode to its owning shows
// store-assigned ID.
func EpisodeToMedia(episode Episode, showID int64) *media.Episode {
	return &media.Episode{
		ShowID:        showID,
		ImdbID:        episode.ImdbID,
		SeasonNumber:  episode.SeasonNumber,
		EpisodeNumber: episode.EpisodeNumber,
		AverageRating: episode.AverageRating,
		NumVotes:      episode.NumVotes,
	}
}

// optionalInt maps the missing-value sentinel (or any unparseable value)
// to nil rather than raising.
func optionalInt(value string) *int {
	if value == MissingSentinel {
		return nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}

	return &parsed
}

// splitGenres returns the ordered genre labels of a delimited genre field,
// or an empty (non-nil) list for the missing-value sentinel.
func splitGenres(value string) []string {
	if value == MissingSentinel || value == "" {
		return []string{}
	}

	return strings.Split(value, ",")
}
