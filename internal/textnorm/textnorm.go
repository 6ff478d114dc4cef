package textnorm

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// entityReplacer decodes the small entity set the upstream emits. bluemonday
// escapes & < > " ' in text nodes, so decoding runs after sanitizing.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&#160;", " ",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&#039;", "'",
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

var (
	policyOnce   sync.Once
	stripPolicy  *bluemonday.Policy
	blockClosers = strings.NewReplacer(
		"</p>", "</p> ",
		"<br>", "<br> ",
		"<br/>", "<br/> ",
		"<br />", "<br /> ",
		"</li>", "</li> ",
		"</div>", "</div> ",
	)
)

func policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// StripMarkup removes tags, decodes common entities and collapses whitespace.
func StripMarkup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	spaced := blockClosers.Replace(raw)
	sanitized := policy().Sanitize(spaced)
	decoded := entityReplacer.Replace(sanitized)
	return CollapseWhitespace(decoded)
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify builds a URL-safe slug from title with externalID appended so that
// duplicate titles from one source still produce distinct slugs.
func Slugify(title, externalID string) string {
	folded, _, err := transform.String(foldMarks, title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	base := strings.Trim(b.String(), "-")
	if base == "" {
		base = "event"
	}
	id := strings.Trim(slugID(externalID), "-")
	if id == "" {
		return base
	}
	return base + "-" + id
}

func slugID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(id)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// AffiliateRewriter wraps outbound booking links behind the partner redirect.
type AffiliateRewriter struct {
	base       string
	partnerRef string
}

func NewAffiliateRewriter(base, partnerRef string) (*AffiliateRewriter, error) {
	trimmed := strings.TrimSpace(base)
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("affiliate base url: %w", err)
	}
	ref := strings.TrimSpace(partnerRef)
	if ref == "" {
		return nil, fmt.Errorf("partner reference is required")
	}
	return &AffiliateRewriter{base: trimmed, partnerRef: ref}, nil
}

// Rewrite returns the affiliate redirect for original. The original is not fetched.
func (a *AffiliateRewriter) Rewrite(original string) string {
	trimmed := strings.TrimSpace(original)
	if a == nil || trimmed == "" {
		return ""
	}
	q := url.Values{}
	q.Set("ref", a.partnerRef)
	q.Set("link", trimmed)

	sep := "?"
	if strings.Contains(a.base, "?") {
		sep = "&"
	}
	return a.base + sep + q.Encode()
}
