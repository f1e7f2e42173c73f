package media

import (
	"strconv"
	"strings"
)

// CSV projections used by the persistence layers backup artifacts. Absent
// optional fields serialize as empty strings.

func ShowCsvHeader() []string {
	return []string{"imdb_id", "title", "original_title", "start_year", "end_year", "runtime_minutes", "genres", "average_rating", "num_votes"}
}

func ShowCsvRow(show *Show) []string {
	return []string{
		show.ImdbID,
		show.Title,
		optionalString(show.OriginalTitle),
		strconv.Itoa(show.StartYear),
		optionalIntString(show.EndYear),
		optionalIntString(show.RuntimeMinutes),
		strings.Join(show.Genres, ","),
		optionalFloatString(show.AverageRating),
		optionalIntString(show.NumVotes),
	}
}

func EpisodeCsvHeader() []string {
	return []string{"show_id", "imdb_id", "season_number", "episode_number", "average_rating", "num_votes"}
}

func EpisodeCsvRow(episode *Episode) []string {
	return []string{
		strconv.FormatInt(episode.ShowID, 10),
		episode.ImdbID,
		strconv.Itoa(episode.SeasonNumber),
		strconv.Itoa(episode.EpisodeNumber),
		optionalFloatString(episode.AverageRating),
		optionalIntString(episode.NumVotes),
	}
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}

func optionalIntString(value *int) string {
	if value == nil {
		return ""
	}

	return strconv.Itoa(*value)
}

func optionalFloatString(value *float64) string {
	if value == nil {
		return ""
	}

	return strconv.FormatFloat(*value, 'f', -1, 64)
}
