package imdb

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/showdex/showdex/pkg/logger"
)

// MissingSentinel is the two-character marker IMDb uses for absent values;
// the exports never leave a field empty.
const MissingSentinel = `\N`

// DataError indicates the bulk data itself was unusable: a required column
// is absent, the TSV could not be parsed, or filtering matched nothing.
// It is fatal to the pipeline phase which encountered it.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "dataset error: " + e.Reason
}

type (
	// TitleRow is a raw (unnormalized) row of the title basics export.
	// All fields remain strings until normalization; absent values hold
	// the MissingSentinel.
	TitleRow struct {
		Tconst         string
		TitleType      string
		PrimaryTitle   string
		OriginalTitle  string
		IsAdult        string
		StartYear      string
		EndYear        string
		RuntimeMinutes string
		Genres         string
	}

	// Rating is a row of the ratings export.
	Rating struct {
		AverageRating float64
		NumVotes      int
	}

	// EpisodeRow is a raw row of the episode export.
	EpisodeRow struct {
		Tconst        string
		ParentTconst  string
		SeasonNumber  string
		EpisodeNumber string
	}

	// RatedTitle joins a surviving TitleRow with its rating.
	RatedTitle struct {
		TitleRow
		Rating
	}

	// RatedEpisode joins an EpisodeRow with its rating, which may be
	// absent - episode survival depends only on show membership.
	RatedEpisode struct {
		EpisodeRow
		Rating *Rating
	}

	// SelectOptions tune the filter/join pass over the title basics export.
	SelectOptions struct {
		MinStartYear int
		MinVotes     int
		MaxShows     int
		ChunkSize    int
	}
)

var showCategories = map[string]bool{
	"tvSeries":     true,
	"tvMiniSeries": true,
}

// SelectShows streams the title basics export in bounded chunks, retains
// non-adult series/mini-series with a valid start year at or after
// MinStartYear, inner-joins the survivors against the ratings set, drops
// rows below the MinVotes threshold (inclusive boundary) and returns at
// most MaxShows results ordered by vote count descending. Ties keep their
// encounter order.
func SelectShows(r io.Reader, ratings map[string]Rating, opts SelectOptions) ([]RatedTitle, error) {
	reader := newTsvReader(r)

	columns, err := readColumns(reader, "tconst", "titleType", "primaryTitle", "originalTitle", "isAdult", "startYear", "endYear", "runtimeMinutes", "genres")
	if err != nil {
		return nil, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 50000
	}

	// Chunked streaming keeps memory proportional to the chunk size plus
	// the (far smaller) surviving set, never the whole export.
	var selected []TitleRow
	chunk := make([]TitleRow, 0, chunkSize)
	flush := func() {
		for _, row := range chunk {
			if keepShow(row, opts.MinStartYear) {
				selected = append(selected, row)
			}
		}
		chunk = chunk[:0]
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("title basics export is malformed: %s", err.Error())}
		}

		chunk = append(chunk, TitleRow{
			Tconst:         columns.get(record, "tconst"),
			TitleType:      columns.get(record, "titleType"),
			PrimaryTitle:   columns.get(record, "primaryTitle"),
			OriginalTitle:  columns.get(record, "originalTitle"),
			IsAdult:        columns.get(record, "isAdult"),
			StartYear:      columns.get(record, "startYear"),
			EndYear:        columns.get(record, "endYear"),
			RuntimeMinutes: columns.get(record, "runtimeMinutes"),
			Genres:         columns.get(record, "genres"),
		})
		if len(chunk) >= chunkSize {
			flush()
		}
	}
	flush()

	if len(selected) == 0 {
		return nil, &DataError{Reason: "no television shows survived filtering"}
	}
	log.Emit(logger.INFO, "Found %d candidate television shows\n", len(selected))

	rated := make([]RatedTitle, 0, len(selected))
	for _, row := range selected {
		rating, ok := ratings[row.Tconst]
		if !ok || rating.NumVotes < opts.MinVotes {
			continue
		}

		rated = append(rated, RatedTitle{TitleRow: row, Rating: rating})
	}

	sort.SliceStable(rated, func(i, j int) bool { return rated[i].NumVotes > rated[j].NumVotes })
	if opts.MaxShows > 0 && len(rated) > opts.MaxShows {
		rated = rated[:opts.MaxShows]
	}

	log.Emit(logger.INFO, "Selected %d popular shows (>= %d votes)\n", len(rated), opts.MinVotes)
	return rated, nil
}

// keepShow applies the per-row predicates: series category, no adult
// content, and a present, numeric start year at or after minStartYear.
func keepShow(row TitleRow, minStartYear int) bool {
	if !showCategories[row.TitleType] || row.IsAdult != "0" {
		return false
	}
	if row.StartYear == MissingSentinel {
		return false
	}

	year, err := strconv.Atoi(row.StartYear)
	if err != nil {
		return false
	}

	return year >= minStartYear
}

// LoadRatings reads the full ratings export into memory, keyed by title ID.
// The ratings set is orders of magnitude smaller than the basics export.
func LoadRatings(r io.Reader) (map[string]Rating, error) {
	reader := newTsvReader(r)

	columns, err := readColumns(reader, "tconst", "averageRating", "numVotes")
	if err != nil {
		return nil, err
	}

	ratings := make(map[string]Rating)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("ratings export is malformed: %s", err.Error())}
		}

		rating, err := strconv.ParseFloat(columns.get(record, "averageRating"), 64)
		if err != nil {
			continue
		}
		votes, err := strconv.Atoi(columns.get(record, "numVotes"))
		if err != nil {
			continue
		}

		ratings[columns.get(record, "tconst")] = Rating{AverageRating: rating, NumVotes: votes}
	}

	return ratings, nil
}

// SelectEpisodes streams the episode export, retaining only rows whose
// parent title is in the given show set, and left-joins each against the
// ratings set. An unrated episode survives with a nil rating.
func SelectEpisodes(r io.Reader, showIDs map[string]struct{}, ratings map[string]Rating) ([]RatedEpisode, error) {
	reader := newTsvReader(r)

	columns, err := readColumns(reader, "tconst", "parentTconst", "seasonNumber", "episodeNumber")
	if err != nil {
		return nil, err
	}

	var episodes []RatedEpisode
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("episode export is malformed: %s", err.Error())}
		}

		if _, ok := showIDs[columns.get(record, "parentTconst")]; !ok {
			continue
		}

		episode := RatedEpisode{
			EpisodeRow: EpisodeRow{
				Tconst:        columns.get(record, "tconst"),
				ParentTconst:  columns.get(record, "parentTconst"),
				SeasonNumber:  columns.get(record, "seasonNumber"),
				EpisodeNumber: columns.get(record, "episodeNumber"),
			},
		}
		if rating, ok := ratings[episode.Tconst]; ok {
			episode.Rating = &rating
		}

		episodes = append(episodes, episode)
	}

	log.Emit(logger.INFO, "Found %d episodes across selected shows\n", len(episodes))
	return episodes, nil
}

// columnIndex maps export column names to their record positions.
type columnIndex map[string]int

func (c columnIndex) get(record []string, name string) string {
	index := c[name]
	if index >= len(record) {
		return MissingSentinel
	}

	return record[index]
}

func readColumns(reader *csv.Reader, required ...string) (columnIndex, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, &DataError{Reason: fmt.Sprintf("export has no header row: %s", err.Error())}
	}

	columns := make(columnIndex, len(header))
	for index, name := range header {
		columns[name] = index
	}

	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, &DataError{Reason: fmt.Sprintf("export is missing required column %q", name)}
		}
	}

	return columns, nil
}

func newTsvReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	return reader
}
