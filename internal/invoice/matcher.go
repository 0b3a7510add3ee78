package invoice

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Matcher finds PO candidates of a single tier in document text
type Matcher interface {
	Tier() Tier
	Name() string
	Match(text string) []Candidate
}

// regexMatcher is a Matcher backed by a regular expression with one capture group
type regexMatcher struct {
	tier      Tier
	name      string
	re        *regexp.Regexp
	normalize func(raw string) string
	exclude   func(text string, start, end int) bool
}

func (m *regexMatcher) Tier() Tier   { return m.tier }
func (m *regexMatcher) Name() string { return m.name }

func (m *regexMatcher) Match(text string) []Candidate {
	var out []Candidate
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[len(loc)-2], loc[len(loc)-1]
		if start < 0 {
			continue
		}
		raw := text[start:end]
		if m.exclude != nil && m.exclude(text, start, end) {
			out = append(out, Candidate{
				Value: raw, Raw: raw, Tier: m.tier, Source: m.name,
				Rejected: true, Reason: "catalog context",
			})
			continue
		}
		out = append(out, Candidate{
			Value:  m.normalize(raw),
			Raw:    raw,
			Tier:   m.tier,
			Source: m.name,
		})
	}
	return out
}

var (
	specialPattern = regexp.MustCompile(`(?i)pedido\s+de\s+compra\b[^#\n]{0,60}#\s?P\s?(\d{4,})`)

	primaryPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}#])((?:#?PO|#?P|OC) ?\d{4,})\b`)

	secondaryPattern = regexp.MustCompile(`(?i)(?:\bCORRESPONDE(?:\s+A)?|\bP\.\s?O\.|\bPURCHASE\s+ORDER|\bOC\s?#|\bO\.\s?C\.|\bREFERENCIA|\bREF\b\.?|\bORDEN\s+DE\s+COMPRA|\bPEDIDO)[^\d\n]{0,30}?(#?[A-Z]{0,2}\d[A-Z0-9-]*)`)

	tertiaryPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])P(\d{4,})\b`)

	catalogKeywords = []string{"CODIGO", "PRODUCTO", "ITEM"}
)

// catalogContextWindow is how many bytes around a tertiary hit are inspected,
// widened to whole runes
const catalogContextWindow = 20

// DefaultMatchers returns the tiered PO matchers in priority order
func DefaultMatchers() []Matcher {
	return []Matcher{
		&regexMatcher{
			tier:      TierPrimary,
			name:      "prefixed-number",
			re:        primaryPattern,
			normalize: canonicalP,
		},
		&regexMatcher{
			tier:      TierSecondary,
			name:      "labelled-reference",
			re:        secondaryPattern,
			normalize: normalizeLabelled,
		},
		&regexMatcher{
			tier:      TierTertiary,
			name:      "standalone-p-number",
			re:        tertiaryPattern,
			normalize: canonicalP,
			exclude:   inCatalogContext,
		},
	}
}

// canonicalP turns "PO 0345", "#P0345" or "OC0345" into "P0345"
func canonicalP(raw string) string {
	return "P" + DigitsOnly(raw)
}

// normalizeLabelled upper-cases a labelled token; purely numeric tokens get a P prefix
func normalizeLabelled(raw string) string {
	v := strings.ToUpper(strings.Trim(raw, "-"))
	if d := DigitsOnly(v); d == v && len(d) >= MinPODigits {
		return "P" + d
	}
	return v
}

func inCatalogContext(text string, start, end int) bool {
	from := start - catalogContextWindow
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + catalogContextWindow
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	window := Fold(text[from:to])
	for _, kw := range catalogKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}
