package discussion

import (
	"strconv"
	"time"
)

// CSV projection used by the persistence layers backup artifact.

func CsvHeader() []string {
	return []string{"show_id", "reddit_id", "title", "content", "score", "upvote_ratio", "num_comments", "created_utc", "subreddit", "author", "url", "is_discussion"}
}

func CsvRow(disc *Discussion) []string {
	ratio := ""
	if disc.UpvoteRatio != nil {
		ratio = strconv.FormatFloat(*disc.UpvoteRatio, 'f', -1, 64)
	}

	return []string{
		strconv.FormatInt(disc.ShowID, 10),
		disc.RedditID,
		disc.Title,
		TruncateContent(disc.Content),
		strconv.Itoa(disc.Score),
		ratio,
		strconv.Itoa(disc.NumComments),
		disc.CreatedUTC.UTC().Format(time.RFC3339),
		disc.Subreddit,
		disc.Author,
		disc.URL,
		strconv.FormatBool(disc.IsDiscussion),
	}
}
