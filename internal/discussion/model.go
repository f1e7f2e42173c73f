package discussion

import (
	"time"
)

// MaxContentRunes bounds the stored body text of a discussion. Reddit self
// posts can reach 40k characters; rows that large bloat the table for no
// analytical gain, so the tail is dropped at persist time.
const MaxContentRunes = 10000

// Discussion is a single crowd-sourced post about a show, found via the
// search provider. Uniqueness is owned by the RedditID; the same post is
// legitimately rediscovered across the query cross-product and must be
// collapsed before persistence.
type Discussion struct {
	ID           int64     `db:"id"`
	ShowID       int64     `db:"show_id"`
	RedditID     string    `db:"reddit_id"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	Score        int       `db:"score"`
	UpvoteRatio  *float64  `db:"upvote_ratio"`
	NumComments  int       `db:"num_comments"`
	CreatedUTC   time.Time `db:"created_utc"`
	Subreddit    string    `db:"subreddit"`
	Author       string    `db:"author"`
	URL          string    `db:"url"`
	IsDiscussion bool      `db:"is_discussion"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TruncateContent caps the body text at MaxContentRunes. Multi-byte safe.
func TruncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxContentRunes {
		return content
	}

	return string(runes[:MaxContentRunes])
}
