package utils // package utils provides title normalization and small parsing helpers

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stripped lists the punctuation removed from titles before comparison.
var stripped = strings.NewReplacer(":", "", ",", "", ".", "")

// Sanitize reduces a title to the form used for matching and id derivation:
// lower-cased, without ':' ',' '.', with accents folded to base Latin letters
// (á→a, ñ→n, ü→u) and surrounding whitespace trimmed.  Applying it twice
// yields the same result as applying it once.
func Sanitize(title string) string {
	s := strings.ToLower(title)
	s = stripped.Replace(s)
	s = foldAccents(s)
	return strings.TrimSpace(s)
}

// Slug derives a show id from a title: Sanitize followed by joining the
// whitespace-separated words with '-'.  The result never contains
// whitespace.
func Slug(title string) string {
	return strings.Join(strings.Fields(Sanitize(title)), "-")
}

// FormatDuration renders minutes as "{h}h {m}m", dropping the minutes part
// when it is zero: 90 → "1h 30m", 60 → "1h", 0 → "0h".  Callers must not
// pass negative values.
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// ParseLocalDate converts a "DD/MM/YYYY" date as printed by Spanish cinema
// sites into ISO "YYYY-MM-DD".
func ParseLocalDate(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return "", fmt.Errorf("invalid date %q", s)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("invalid date %q", s)
		}
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0], nil
}

// ParseMinutes extracts the leading run of digits from text such as
// "115 min".  ok is false when the text holds no digits.
func ParseMinutes(s string) (minutes int, ok bool) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitList splits a separator-delimited list, trimming items and dropping
// empty ones.  A blank input yields nil.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// foldAccents drops combining marks that sit on Latin letters.  Marks on
// other scripts carry meaning (kana voicing, Devanagari anusvara) and stay.
func foldAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latin := false
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if !latin {
				b.WriteRune(r)
			}
			continue
		}
		latin = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
