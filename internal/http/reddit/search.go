// Package reddit implements the search-provider client used by the
// discussion crawler. It talks to Reddit's JSON API, preferring the OAuth
// endpoints when application credentials are configured and falling back
// to the anonymous public endpoints when they are not.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	publicBaseUrl = "https://www.reddit.com"
	oauthBaseUrl  = "https://oauth.reddit.com"
	tokenUrl      = "https://www.reddit.com/api/v1/access_token"

	searchTemplate = "%s/r/%s/search.json?q=%s&restrict_sr=1&sort=top&t=all&limit=%d&raw_json=1"
	aboutTemplate  = "%s/r/%s/about.json?raw_json=1"

	defaultUserAgent = "showdex discussion collector"
)

type (
	Config struct {
		ClientID     string
		ClientSecret string
		UserAgent    string
	}

	// HttpError is raised when the provider answers with a non-success
	// status; the crawler treats these as per-query failures.
	HttpError struct {
		Status int
	}

	// redditSearcher issues per-community keyword searches and subscriber
	// lookups. It holds an app-only OAuth token when credentials allow,
	// refreshing it transparently as it expires.
	redditSearcher struct {
		config Config
		client *http.Client

		publicUrl string
		oauthUrl  string
		tokenUrl  string

		token       string
		tokenExpiry time.Time
	}
)

func (e *HttpError) Error() string {
	return fmt.Sprintf("search provider replied with status %d", e.Status)
}

func NewSearcher(config Config) *redditSearcher {
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	return &redditSearcher{
		config:    config,
		client:    &http.Client{Timeout: time.Second * 30},
		publicUrl: publicBaseUrl,
		oauthUrl:  oauthBaseUrl,
		tokenUrl:  tokenUrl,
	}
}

// SearchSubreddit performs a keyword search restricted to the given
// community, returning at most limit posts ordered by top score across all
// time.
func (searcher *redditSearcher) SearchSubreddit(ctx context.Context, subreddit string, query string, limit int) ([]Post, error) {
	path := fmt.Sprintf(searchTemplate, searcher.baseUrl(ctx), url.PathEscape(subreddit), url.QueryEscape(query), limit)

	var listing listingEnvelope
	if err := searcher.getJson(ctx, path, &listing); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}

	return posts, nil
}

// AboutSubreddit returns the existence/activity summary for a community.
// A community that does not exist surfaces as an HttpError (404), or a
// redirect to the search page on the anonymous endpoints - both are
// errors from the callers perspective.
func (searcher *redditSearcher) AboutSubreddit(ctx context.Context, subreddit string) (*SubredditAbout, error) {
	path := fmt.Sprintf(aboutTemplate, searcher.baseUrl(ctx), url.PathEscape(subreddit))

	var about aboutEnvelope
	if err := searcher.getJson(ctx, path, &about); err != nil {
		return nil, err
	}

	if about.Data.DisplayName == "" {
		return nil, fmt.Errorf("subreddit %s does not exist", subreddit)
	}

	return &about.Data, nil
}

// baseUrl selects the OAuth host when a token can be obtained, otherwise
// the anonymous public host. Token acquisition failures quietly downgrade
// to anonymous access - the searches themselves work either way, just
// under a tighter rate limit.
func (searcher *redditSearcher) baseUrl(ctx context.Context) string {
	if searcher.config.ClientID == "" || searcher.config.ClientSecret == "" {
		return searcher.publicUrl
	}

	if err := searcher.ensureToken(ctx); err != nil {
		return searcher.publicUrl
	}

	return searcher.oauthUrl
}

func (searcher *redditSearcher) ensureToken(ctx context.Context) error {
	if searcher.token != "" && time.Now().Before(searcher.tokenExpiry) {
		return nil
	}

	form := url.Values{"grant_type": []string{"client_credentials"}}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, searcher.tokenUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	request.SetBasicAuth(searcher.config.ClientID, searcher.config.ClientSecret)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("User-Agent", searcher.config.UserAgent)

	response, err := searcher.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return &HttpError{Status: response.StatusCode}
	}

	var token tokenResponse
	if err := json.NewDecoder(response.Body).Decode(&token); err != nil {
		return fmt.Errorf("failed to decode access token response: %w", err)
	}

	searcher.token = token.AccessToken
	// Shave a minute off the reported lifetime to avoid using a token
	// that expires mid-flight.
	searcher.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return nil
}

func (searcher *redditSearcher) getJson(ctx context.Context, path string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	request.Header.Set("User-Agent", searcher.config.UserAgent)
	if searcher.token != "" && strings.HasPrefix(path, searcher.oauthUrl) {
		request.Header.Set("Authorization", "Bearer "+searcher.token)
	}

	response, err := searcher.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		io.Copy(io.Discard, response.Body)
		return &HttpError{Status: response.StatusCode}
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode search provider response: %w", err)
	}

	return nil
}
