package slug

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9 -]+`)
	separators   = regexp.MustCompile(`[\s-]+`)
)

// Make lowercases s, strips punctuation and joins words with hyphens.
func Make(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = invalidChars.ReplaceAllString(out, "")
	out = separators.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// WithSuffix derives a slug from title and appends a short random suffix.
// Titles without any ASCII letters or digits fall back to the given prefix.
func WithSuffix(title, fallback string) string {
	base := Make(title)
	if base == "" {
		base = fallback
	}
	if len(base) > 80 {
		base = strings.Trim(base[:80], "-")
	}
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}
