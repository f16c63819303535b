package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var (
	apostropheReplacer = strings.NewReplacer(
		"’", "'",
		"‘", "'",
		"`", "'",
		"´", "'",
		"“", `"`,
		"”", `"`,
	)
	whitespacePattern = regexp.MustCompile(`\s+`)
	qualifierPattern  = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)
)

// ExactKey produces the comparison form used by the exact pass: Unicode case
// fold, typographic apostrophes and quotes unified to ASCII, whitespace
// collapsed. Punctuation is kept so that "Don'cha" and "Don Cha" stay
// distinct at this level.
func ExactKey(input string) string {
	folded := cases.Fold().String(apostropheReplacer.Replace(input))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(folded, " "))
}

// FoldKey produces the aggressive comparison form: case folded with symbols
// translated ("&" and "+" become "and") and everything except letters and
// digits removed. Used for name comparison where punctuation is noise.
func FoldKey(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	folded := cases.Fold().String(apostropheReplacer.Replace(input))
	folded = strings.ReplaceAll(folded, "&", "and")
	folded = strings.ReplaceAll(folded, "+", "and")

	var builder strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// StripQualifiers removes parenthetical and bracketed segments, the usual
// home of live-version and alternate-take annotations.
func StripQualifiers(input string) string {
	stripped := qualifierPattern.ReplaceAllString(input, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
}
