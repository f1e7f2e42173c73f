package discussion

import (
	"time"

	"github.com/showdex/showdex/internal/database"
)

type Store struct{}

// discussionRow is the transport shape for a discussion upsert. The creation
// time travels as an ISO-8601 string rather than a driver-native timestamp;
// the store on the other end parses it back into a timestamptz.
type discussionRow struct {
	ShowID       int64    `db:"show_id"`
	RedditID     string   `db:"reddit_id"`
	Title        string   `db:"title"`
	Content      string   `db:"content"`
	Score        int      `db:"score"`
	UpvoteRatio  *float64 `db:"upvote_ratio"`
	NumComments  int      `db:"num_comments"`
	CreatedUTC   string   `db:"created_utc"`
	Subreddit    string   `db:"subreddit"`
	Author       string   `db:"author"`
	URL          string   `db:"url"`
	IsDiscussion bool     `db:"is_discussion"`
}

// UpsertDiscussions writes the provided discussions, keyed on the posts
// Reddit ID. Re-running a crawl over the same shows updates the scores and
// comment counts of posts already collected.
func (store *Store) UpsertDiscussions(db database.Queryable, discussions []*Discussion) error {
	if len(discussions) == 0 {
		return nil
	}

	rows := make([]discussionRow, len(discussions))
	for k, v := range discussions {
		rows[k] = discussionRow{
			ShowID:       v.ShowID,
			RedditID:     v.RedditID,
			Title:        v.Title,
			Content:      TruncateContent(v.Content),
			Score:        v.Score,
			UpvoteRatio:  v.UpvoteRatio,
			NumComments:  v.NumComments,
			CreatedUTC:   v.CreatedUTC.UTC().Format(time.RFC3339),
			Subreddit:    v.Subreddit,
			Author:       v.Author,
			URL:          v.URL,
			IsDiscussion: v.IsDiscussion,
		}
	}

	_, err := db.NamedExec(`
		INSERT INTO reddit_posts(show_id, reddit_id, title, content, score, upvote_ratio, num_comments, created_utc, subreddit, author, url, is_discussion)
		VALUES(:show_id, :reddit_id, :title, :content, :score, :upvote_ratio, :num_comments, :created_utc, :subreddit, :author, :url, :is_discussion)
		ON CONFLICT(reddit_id) DO UPDATE SET
			show_id=excluded.show_id,
			title=excluded.title,
			content=excluded.content,
			score=excluded.score,
			upvote_ratio=excluded.upvote_ratio,
			num_comments=excluded.num_comments,
			created_utc=excluded.created_utc,
			subreddit=excluded.subreddit,
			author=excluded.author,
			url=excluded.url,
			is_discussion=excluded.is_discussion,
			updated_at=current_timestamp
	`, rows)

	return err
}
