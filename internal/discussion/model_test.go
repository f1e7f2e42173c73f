package discussion_test

import (
	"strings"
	"testing"
	"time"

	"github.com/showdex/showdex/internal/discussion"
	"github.com/stretchr/testify/assert"
)

func Test_TruncateContent(t *testing.T) {
	t.Parallel()
	short := "a perfectly reasonable post body"
	assert.Equal(t, short, discussion.TruncateContent(short))

	long := strings.Repeat("x", discussion.MaxContentRunes+500)
	assert.Len(t, discussion.TruncateContent(long), discussion.MaxContentRunes)

	// Truncation must cut on rune boundaries, never mid-codepoint.
	multibyte := strings.Repeat("é", discussion.MaxContentRunes+1)
	truncated := discussion.TruncateContent(multibyte)
	assert.Equal(t, discussion.MaxContentRunes, len([]rune(truncated)))
	assert.Equal(t, strings.Repeat("é", discussion.MaxContentRunes), truncated)
}

func Test_CsvRow_ProjectsAllFields(t *testing.T) {
	t.Parallel()
	ratio := 0.97
	disc := &discussion.Discussion{
		ShowID:       7,
		RedditID:     "abc123",
		Title:        "finale discussion",
		Content:      "spoilers inside",
		Score:        512,
		UpvoteRatio:  &ratio,
		NumComments:  48,
		CreatedUTC:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Subreddit:    "television",
		Author:       "someone",
		URL:          "https://reddit.com/abc123",
		IsDiscussion: true,
	}

	row := discussion.CsvRow(disc)
	assert.Len(t, row, len(discussion.CsvHeader()))
	assert.Equal(t, "7", row[0])
	assert.Equal(t, "abc123", row[1])
	assert.Equal(t, "0.97", row[5])
	assert.Equal(t, "2024-03-01T12:00:00Z", row[7])
	assert.Equal(t, "true", row[11])
}

func Test_CsvRow_AbsentRatioIsEmpty(t *testing.T) {
	t.Parallel()
	row := discussion.CsvRow(&discussion.Discussion{RedditID: "abc"})
	assert.Equal(t, "", row[5])
}
