package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(config Config, server *httptest.Server) *redditSearcher {
	searcher := NewSearcher(config)
	searcher.publicUrl = server.URL
	searcher.oauthUrl = server.URL
	searcher.tokenUrl = server.URL + "/api/v1/access_token"

	return searcher
}

func listingBody(posts ...Post) any {
	children := make([]map[string]any, len(posts))
	for k, post := range posts {
		children[k] = map[string]any{"kind": "t3", "data": post}
	}

	return map[string]any{
		"kind": "Listing",
		"data": map[string]any{"children": children},
	}
}

func Test_SearchSubreddit_ParsesListing(t *testing.T) {
	t.Parallel()
	var requested *url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		require.NoError(t, json.NewEncoder(w).Encode(listingBody(
			Post{ID: "abc", Title: "Severance discussion", Score: 42, NumComments: 7, Subreddit: "television", Author: "someone", CreatedUTC: 1700000000},
		)))
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{}, server)
	posts, err := searcher.SearchSubreddit(context.Background(), "television", "Severance finale", 25)
	require.NoError(t, err)

	assert.Equal(t, "/r/television/search.json", requested.Path)
	assert.Equal(t, "Severance finale", requested.Query().Get("q"))
	assert.Equal(t, "1", requested.Query().Get("restrict_sr"))
	assert.Equal(t, "top", requested.Query().Get("sort"))
	assert.Equal(t, "25", requested.Query().Get("limit"))

	require.Len(t, posts, 1)
	assert.Equal(t, "abc", posts[0].ID)
	assert.Equal(t, 42, posts[0].Score)
	assert.Equal(t, int64(1700000000), posts[0].CreatedAt().Unix())
}

func Test_SearchSubreddit_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{}, server)
	_, err := searcher.SearchSubreddit(context.Background(), "television", "anything", 25)

	var httpErr *HttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
}

func Test_AboutSubreddit_ExistingCommunity(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/severance/about.json", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"kind": "t5",
			"data": SubredditAbout{DisplayName: "severance", Title: "Severance", Subscribers: 50000},
		}))
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{}, server)
	about, err := searcher.AboutSubreddit(context.Background(), "severance")
	require.NoError(t, err)

	assert.Equal(t, "severance", about.DisplayName)
	assert.Equal(t, 50000, about.Subscribers)
}

func Test_AboutSubreddit_MissingCommunityIsAnError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The anonymous endpoints answer a missing community with an
		// empty-ish payload rather than a 404.
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"kind": "t5", "data": map[string]any{}}))
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{}, server)
	_, err := searcher.AboutSubreddit(context.Background(), "doesnotexist")
	assert.Error(t, err)
}

func Test_Search_UsesTokenWhenCredentialsConfigured(t *testing.T) {
	t.Parallel()
	var tokenRequests, authedSearches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			tokenRequests++
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client", user)
			assert.Equal(t, "secret", pass)
			require.NoError(t, json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", TokenType: "bearer", ExpiresIn: 3600}))
			return
		}

		if r.Header.Get("Authorization") == "Bearer tok-1" {
			authedSearches++
		}
		require.NoError(t, json.NewEncoder(w).Encode(listingBody()))
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{ClientID: "client", ClientSecret: "secret"}, server)

	_, err := searcher.SearchSubreddit(context.Background(), "television", "a", 25)
	require.NoError(t, err)
	_, err = searcher.SearchSubreddit(context.Background(), "television", "b", 25)
	require.NoError(t, err)

	assert.Equal(t, 1, tokenRequests, "the token must be cached across searches")
	assert.Equal(t, 2, authedSearches)
}

func Test_Search_TokenFailureFallsBackToAnonymous(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(listingBody()))
	}))
	defer server.Close()

	searcher := newTestSearcher(Config{ClientID: "client", ClientSecret: "bad"}, server)
	_, err := searcher.SearchSubreddit(context.Background(), "television", "a", 25)
	assert.NoError(t, err)
}

func Test_AuthorName_DeletedAccountSentinel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "[deleted]", (&Post{}).AuthorName())
	assert.Equal(t, "someone", (&Post{Author: "someone"}).AuthorName())
}
