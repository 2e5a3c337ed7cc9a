package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Profile names a sanitization rule set.
type Profile string

const (
	// ProfileDefault is user generated content: blog bodies.
	ProfileDefault Profile = "default"
	// ProfileAnnouncement is the stricter profile for admin-edited site HTML.
	ProfileAnnouncement Profile = "announcement"
	// ProfilePlain strips every tag.
	ProfilePlain Profile = "plain"
)

// Sanitizer cleans untrusted HTML according to a named profile.
type Sanitizer interface {
	Sanitize(input string, profile Profile) string
	// PlainText is the visible text of input, HTML-escaped.
	PlainText(input string) string
	// Text is the visible text of input with entities decoded. It is not
	// safe to render as HTML.
	Text(input string) string
}

type bluemondaySanitizer struct {
	policies map[Profile]*bluemonday.Policy
}

func New() Sanitizer {
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	announcement := bluemonday.NewPolicy()
	announcement.AllowElements("p", "br", "strong", "b", "em", "i", "u", "ul", "ol", "li", "span")
	announcement.AllowAttrs("href").OnElements("a")
	announcement.AllowStandardURLs()
	announcement.RequireParseableURLs(true)
	announcement.RequireNoFollowOnLinks(true)

	return &bluemondaySanitizer{
		policies: map[Profile]*bluemonday.Policy{
			ProfileDefault:      ugc,
			ProfileAnnouncement: announcement,
			ProfilePlain:        bluemonday.StrictPolicy(),
		},
	}
}

// Sanitize applies the named profile; unknown profiles fall back to the strict one.
func (s *bluemondaySanitizer) Sanitize(input string, profile Profile) string {
	policy, ok := s.policies[profile]
	if !ok {
		policy = s.policies[ProfilePlain]
	}
	return strings.TrimSpace(policy.Sanitize(input))
}

// PlainText returns the visible text of an HTML fragment with normalized
// whitespace, escaped for HTML output.
func (s *bluemondaySanitizer) PlainText(input string) string {
	return html.EscapeString(s.Text(input))
}

func (s *bluemondaySanitizer) Text(input string) string {
	input = strings.ReplaceAll(input, "</p>", " ")
	input = strings.ReplaceAll(input, "<br>", " ")
	input = strings.ReplaceAll(input, "</div>", " ")
	input = strings.ReplaceAll(input, "</li>", " ")

	text := html.UnescapeString(s.policies[ProfilePlain].Sanitize(input))
	return strings.Join(strings.Fields(text), " ")
}
