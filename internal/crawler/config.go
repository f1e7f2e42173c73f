package crawler

import "time"

// Config contains configuration options that control how the discussion
// crawler walks the show queue and paces itself against the search
// provider.
type Config struct {
	// The fixed list of general communities searched for every show. A
	// show-specific community is additionally probed at crawl time.
	Subreddits []string `yaml:"subreddits" env:"CRAWL_SUBREDDITS" env-default:"television,netflix,hbo,AskReddit"`

	// Maximum number of posts requested per individual search query.
	LimitPerSearch int `yaml:"limit_per_search" env:"CRAWL_LIMIT_PER_SEARCH" env-default:"25" validate:"gt=0"`

	// A show-specific community is only searched when its subscriber
	// count exceeds this threshold (a proxy for the community actually
	// being active).
	MinSubscribers int `yaml:"min_subscribers" env:"CRAWL_MIN_SUBSCRIBERS" env-default:"100"`

	// Fixed pause inserted after every request to the search provider.
	// Deliberately conservative and uniform; the provider's rate limits
	// are generous enough that adapting to throttle responses is not
	// worth the moving parts.
	RequestDelayMs int `yaml:"request_delay_ms" env:"CRAWL_REQUEST_DELAY_MS" env-default:"1500" validate:"gte=0"`

	// Courtesy pause between shows, on top of the per-request delay.
	ShowDelaySeconds int `yaml:"show_delay_seconds" env:"CRAWL_SHOW_DELAY_SECONDS" env-default:"5" validate:"gte=0"`

	// Accumulated discussions are persisted, and the progress marker
	// written, after every this-many completed shows.
	CheckpointEvery int `yaml:"checkpoint_every" env:"CRAWL_CHECKPOINT_EVERY" env-default:"10" validate:"gt=0"`

	// Path the JSON progress marker is written to at each checkpoint.
	ProgressPath string `yaml:"-"`
}

func (config *Config) RequestDelayDuration() time.Duration {
	return time.Duration(config.RequestDelayMs) * time.Millisecond
}

func (config *Config) ShowDelayDuration() time.Duration {
	return time.Duration(config.ShowDelaySeconds) * time.Second
}
