package crawler

import (
	"strings"
	"unicode"

	"github.com/showdex/showdex/internal/http/reddit"
)

// searchSuffixes are combined with the bare show title to form the search
// term variants probed in every community.
var searchSuffixes = []string{"discussion", "episode", "finale", "season"}

// discussionKeywords flag a post title as an episode/series discussion
// rather than incidental news or memes.
var discussionKeywords = []string{"discussion", "episode", "finale", "thoughts"}

// searchQuery is one (community, term) cell of the search cross-product.
type searchQuery struct {
	Subreddit string
	Term      string
}

// searchTerms returns the term variants for a show: the bare title first,
// then the title combined with each suffix.
func searchTerms(title string) []string {
	terms := make([]string, 0, len(searchSuffixes)+1)
	terms = append(terms, title)
	for _, suffix := range searchSuffixes {
		terms = append(terms, title+" "+suffix)
	}

	return terms
}

// buildQueries expands the full cross-product in its declared order:
// communities outermost, term variants within each community.
func buildQueries(subreddits []string, terms []string) []searchQuery {
	queries := make([]searchQuery, 0, len(subreddits)*len(terms))
	for _, subreddit := range subreddits {
		for _, term := range terms {
			queries = append(queries, searchQuery{Subreddit: subreddit, Term: term})
		}
	}

	return queries
}

// deriveSubredditName guesses a show-specific community name by
// lower-casing the title and stripping everything but letters and digits
// ("Breaking Bad" -> "breakingbad").
func deriveSubredditName(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// isRelevant retains a post only when the show title appears
// (case-insensitively) in the posts title or body text.
func isRelevant(title string, post *reddit.Post) bool {
	needle := strings.ToLower(title)
	return strings.Contains(strings.ToLower(post.Title), needle) ||
		strings.Contains(strings.ToLower(post.SelfText), needle)
}

// isDiscussionPost reports whether the post title reads like an episode or
// series discussion thread.
func isDiscussionPost(title string) bool {
	lowered := strings.ToLower(title)
	for _, keyword := range discussionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	return false
}

// collapseByID deduplicates posts by their external identifier, keeping
// the first occurrence of each and preserving encounter order. Running it
// over its own output is a no-op.
func collapseByID(posts []*reddit.Post) []*reddit.Post {
	seen := make(map[string]bool, len(posts))
	unique := make([]*reddit.Post, 0, len(posts))
	for _, post := range posts {
		if seen[post.ID] {
			continue
		}

		seen[post.ID] = true
		unique = append(unique, post)
	}

	return unique
}
