package reddit

import (
	"time"
)

type (
	// Post is the subset of a Reddit submission the crawler cares about.
	Post struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		SelfText    string  `json:"selftext"`
		Score       int     `json:"score"`
		UpvoteRatio float64 `json:"upvote_ratio"`
		NumComments int     `json:"num_comments"`
		CreatedUTC  float64 `json:"created_utc"`
		Subreddit   string  `json:"subreddit"`
		Author      string  `json:"author"`
		URL         string  `json:"url"`
	}

	// SubredditAbout is the existence/activity summary of a community.
	SubredditAbout struct {
		DisplayName string `json:"display_name"`
		Title       string `json:"title"`
		Subscribers int    `json:"subscribers"`
		Over18      bool   `json:"over18"`
	}

	// Listing envelopes wrap every Reddit API payload in a 'kind'/'data'
	// pair; only the data we project out is declared here.
	listingEnvelope struct {
		Data struct {
			Children []struct {
				Data Post `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}

	aboutEnvelope struct {
		Data SubredditAbout `json:"data"`
	}

	tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
)

// CreatedAt converts the epoch-seconds creation time to a UTC timestamp.
func (post *Post) CreatedAt() time.Time {
	return time.Unix(int64(post.CreatedUTC), 0).UTC()
}

// AuthorName returns the posts author, or the conventional sentinel when
// the account no longer exists.
func (post *Post) AuthorName() string {
	if post.Author == "" {
		return "[deleted]"
	}

	return post.Author
}
