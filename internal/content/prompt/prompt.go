package prompt

import (
	"fmt"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/content/pricing"
)

// SystemPrompt frames every provider call.
const SystemPrompt = "You are a professional content writer. Generate high-quality, engaging content based on the user's requirements."

// Compose builds the natural-language instruction sent to the provider.
// It is deterministic and never fails: an unmapped length tag still
// produces an instruction using the medium word range.
func Compose(contentType, topic, tone, length, additionalContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a %s %s about %q. The content should be %s.",
		tone, contentType, topic, pricing.LengthRange(length))

	if ctx := strings.TrimSpace(additionalContext); ctx != "" {
		b.WriteString("\n\nAdditional context: ")
		b.WriteString(ctx)
	}

	b.WriteString("\n\nMake sure the content is engaging, well-structured, and appropriate for the specified tone and length.")

	return b.String()
}
