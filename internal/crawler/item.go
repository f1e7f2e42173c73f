package crawler

import (
	"fmt"

	"github.com/showdex/showdex/internal/media"
)

type (
	CrawlState int

	// ShowCrawl tracks one show through the crawl: what state it reached,
	// how many unique discussions it produced, and the error which stopped
	// it (if any). A single shows failure never aborts the overall crawl;
	// it is recorded here and the crawler advances.
	ShowCrawl struct {
		Show  *media.Show
		State CrawlState
		Found int
		Err   error
	}
)

const (
	PENDING CrawlState = iota
	SEARCHING
	DEDUPLICATING
	PERSISTED
	FAILED
)

func (item *ShowCrawl) String() string {
	return fmt.Sprintf("ShowCrawl{imdb=%s title=%q state=%s}", item.Show.ImdbID, item.Show.Title, item.State)
}

func (s CrawlState) String() string {
	switch s {
	case PENDING:
		return fmt.Sprintf("PENDING[%d]", s)
	case SEARCHING:
		return fmt.Sprintf("SEARCHING[%d]", s)
	case DEDUPLICATING:
		return fmt.Sprintf("DEDUPLICATING[%d]", s)
	case PERSISTED:
		return fmt.Sprintf("PERSISTED[%d]", s)
	case FAILED:
		return fmt.Sprintf("FAILED[%d]", s)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", s)
	}
}
