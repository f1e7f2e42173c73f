package media

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/showdex/showdex/internal/database"
)

type Store struct{}

// UpsertShows writes the provided shows to the database, using the IMDb ID
// as the conflict target. Existing rows are updated in place; the
// store-assigned row ID is never changed by an upsert.
func (store *Store) UpsertShows(db database.Queryable, shows []*Show) error {
	if len(shows) == 0 {
		return nil
	}

	_, err := db.NamedExec(`
		INSERT INTO shows(imdb_id, title, original_title, start_year, end_year, runtime_minutes, genres, average_rating, num_votes)
		VALUES(:imdb_id, :title, :original_title, :start_year, :end_year, :runtime_minutes, :genres, :average_rating, :num_votes)
		ON CONFLICT(imdb_id) DO UPDATE SET
			title=excluded.title,
			original_title=excluded.original_title,
			start_year=excluded.start_year,
			end_year=excluded.end_year,
			runtime_minutes=excluded.runtime_minutes,
			genres=excluded.genres,
			average_rating=excluded.average_rating,
			num_votes=excluded.num_votes,
			updated_at=current_timestamp
	`, shows)

	return err
}

// UpsertEpisodes writes the provided episodes to the database, keyed on the
// episodes own IMDb ID. Callers must have resolved each episodes ShowID
// against the shows table beforehand.
func (store *Store) UpsertEpisodes(db database.Queryable, episodes []*Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	_, err := db.NamedExec(`
		INSERT INTO episodes(show_id, imdb_id, season_number, episode_number, average_rating, num_votes)
		VALUES(:show_id, :imdb_id, :season_number, :episode_number, :average_rating, :num_votes)
		ON CONFLICT(imdb_id) DO UPDATE SET
			show_id=excluded.show_id,
			season_number=excluded.season_number,
			episode_number=excluded.episode_number,
			average_rating=excluded.average_rating,
			num_votes=excluded.num_votes,
			updated_at=current_timestamp
	`, episodes)

	return err
}

// GetShowIDMappings returns the store-assigned ID for every show row, keyed
// by the shows IMDb ID. Child records (episodes, discussions) use this
// mapping to attach themselves to the correct parent.
func (store *Store) GetShowIDMappings(db database.Queryable) (map[string]int64, error) {
	query, args, err := squirrel.
		Select("id", "imdb_id").
		From("shows").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct show mapping query: %w", err)
	}

	var rows []struct {
		ID     int64  `db:"id"`
		ImdbID string `db:"imdb_id"`
	}
	if err := db.Select(&rows, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	mappings := make(map[string]int64, len(rows))
	for _, row := range rows {
		mappings[row.ImdbID] = row.ID
	}

	return mappings, nil
}

// ListShows returns all shows currently persisted, ordered by descending
// vote count (most popular first). This is the work queue the discussion
// crawler walks.
func (store *Store) ListShows(db database.Queryable) ([]*Show, error) {
	query, args, err := squirrel.
		Select("*").
		From("shows").
		OrderBy("num_votes DESC NULLS LAST", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list shows query: %w", err)
	}

	var results []*Show
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return results, nil
}
