package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeBasic(t *testing.T) {
	got := Compose("blog-post", "urban beekeeping", "friendly", "medium", "")

	assert.Contains(t, got, `Create a friendly blog-post about "urban beekeeping".`)
	assert.Contains(t, got, "The content should be 300-500 words.")
	assert.NotContains(t, got, "Additional context:")
}

func TestComposeWithAdditionalContext(t *testing.T) {
	got := Compose("email", "quarterly results", "formal", "short", "focus on revenue growth")

	assert.Contains(t, got, "Additional context: focus on revenue growth")
	// Context sits in its own paragraph between the request and the closer.
	parts := strings.Split(got, "\n\n")
	assert.Len(t, parts, 3)
	assert.True(t, strings.HasPrefix(parts[1], "Additional context:"))
}

func TestComposeBlankContextOmitted(t *testing.T) {
	got := Compose("article", "deep sea mining", "neutral", "long", "   ")

	assert.NotContains(t, got, "Additional context:")
}

func TestComposeUnknownLengthUsesMediumRange(t *testing.T) {
	got := Compose("story", "a lighthouse keeper", "whimsical", "huge", "")

	assert.Contains(t, got, "300-500 words")
}
