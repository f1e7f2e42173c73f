package media

import (
	"time"

	"github.com/lib/pq"
)

type (
	// Show is the catalog entry for a single television series. The row is
	// keyed internally by a store-assigned ID, but externally (and for
	// upsert purposes) the IMDb ID is the stable identifier.
	Show struct {
		ID             int64          `db:"id"`
		ImdbID         string         `db:"imdb_id"`
		Title          string         `db:"title"`
		OriginalTitle  *string        `db:"original_title"`
		StartYear      int            `db:"start_year"`
		EndYear        *int           `db:"end_year"`
		RuntimeMinutes *int           `db:"runtime_minutes"`
		Genres         pq.StringArray `db:"genres"`
		AverageRating  *float64       `db:"average_rating"`
		NumVotes       *int           `db:"num_votes"`
		CreatedAt      time.Time      `db:"created_at"`
		UpdatedAt      time.Time      `db:"updated_at"`
	}

	// Episode belongs to a Show via the shows store-assigned ID. Season and
	// episode numbers are NOT NULL in the schema; rows which could not
	// resolve those fields must be dropped upstream, never persisted.
	Episode struct {
		ID            int64     `db:"id"`
		ShowID        int64     `db:"show_id"`
		ImdbID        string    `db:"imdb_id"`
		SeasonNumber  int       `db:"season_number"`
		EpisodeNumber int       `db:"episode_number"`
		AverageRating *float64  `db:"average_rating"`
		NumVotes      *int      `db:"num_votes"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
)
