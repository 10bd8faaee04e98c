// Package textsim provides the text normalization and similarity primitives
// used by grouping, canonical-name resolution, and identity validation.
// Everything here is deterministic and side-effect free.
package textsim

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonKeyRx     = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)
	nonWordRx    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spacesRx     = regexp.MustCompile(`\s+`)
	parensRx     = regexp.MustCompile(`\s*\([^)]*\)`)
	trademarkRx  = regexp.MustCompile(`[®™]`)
	nonSlugRx    = regexp.MustCompile(`[^a-z0-9\s-]+`)
	sentenceRx   = regexp.MustCompile(`(?:[.!?])\s+`)
	digitRx      = regexp.MustCompile(`\d`)
	streetNumRx  = regexp.MustCompile(`(?:^|[\s,])\d+(?:-\d+)?\s+[\p{L}\d]`)
	streetTypeRx = regexp.MustCompile(`(?i)^\s*\d+[\p{L}\p{N}\s\-.,/]*\b(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|ct|court|hwy|highway|pkwy|parkway|way|pl|place)\b`)
	nicknameRx   = regexp.MustCompile(`(?i)^(old|former|historic)\b`)
	acronymRx    = regexp.MustCompile(`^[A-Z]{2,4}$`)
)

// punctFold maps typographic punctuation and invisible characters to their
// canonical ASCII forms so that lookups keyed on normalized text agree across
// generation passes.
var punctFold = strings.NewReplacer(
	"‘", "'", "’", "'", "“", `"`, "”", `"`,
	"–", "-", "—", "-", "‐", "-",
	"″", `"`, "′", "'",
	"\u00a0", " ", "\u200b", "", "\ufeff", "",
)

// addressVagueHints flag addresses that describe an area or a route rather
// than a visitable point.
var addressVagueHints = []string{
	"rough", "boundary", "boundaries", "district", "route",
	"starts at", "trailhead", "—", " / ",
}

// typeNouns are descriptive place words whose presence in a name is a strong
// identity signal ("Ferry Building", "Portsmouth Square").
var typeNouns = map[string]struct{}{
	"mint": {}, "square": {}, "trail": {}, "pier": {}, "cathedral": {},
	"museum": {}, "building": {}, "district": {}, "fort": {}, "plaza": {},
	"tower": {}, "ferry": {}, "park": {}, "monument": {}, "memorial": {},
	"church": {}, "site": {}, "fountain": {}, "wharf": {}, "library": {},
}

// landmarkWords are the nouns that make an otherwise vague address visitable
// ("Portsmouth Square", "Pier 39").
var landmarkRx = regexp.MustCompile(`(?i)\b(square|pier|park|building|cathedral|fountain|library|mint|wharf|plaza|tower|church|museum)\b`)

// FoldPunct maps curly quotes, long dashes, and invisible characters to
// canonical ASCII and trims surrounding whitespace.
func FoldPunct(s string) string {
	return strings.TrimSpace(punctFold.Replace(s))
}

// NormalizeKey lowercases, strips punctuation, and collapses whitespace,
// producing a key suitable for equality-based lookup.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(FoldPunct(s))
	s = nonKeyRx.ReplaceAllString(s, "")
	return strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
}

// NormalizeName prepares a display name for similarity comparison: ampersands
// become "and", parentheticals are dropped, punctuation becomes whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(FoldPunct(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = parensRx.ReplaceAllString(s, " ")
	s = nonWordRx.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
}

// NormalizeBaseName strips trademark marks, parentheticals, slash-joined
// variants, and a leading "The " so that frequency counting sees the base
// form of a name.
func NormalizeBaseName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = trademarkRx.ReplaceAllString(s, "")
	s = parensRx.ReplaceAllString(s, "")
	if i := strings.Index(s, " / "); i >= 0 {
		s = s[:i]
	}
	if len(s) > 4 && strings.EqualFold(s[:4], "the ") {
		s = s[4:]
	}
	return strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
}

// Slugify converts a name to a stable ASCII slug. Diacritics are
// transliterated away via NFKD decomposition before non-slug characters are
// dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugRx.ReplaceAllString(s, "")
	s = spacesRx.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "poi"
	}
	return s
}

// ShortHash returns the first n hex characters of the SHA-1 of s, used to
// disambiguate slug collisions.
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

// CleanAddress drops parenthetical notes and collapses whitespace.
func CleanAddress(s string) string {
	s = parensRx.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
}

// AddressLooksVague reports whether an address describes an area or a route
// rather than a point a visitor can stand at.
func AddressLooksVague(s string) bool {
	lower := strings.ToLower(s)
	for _, hint := range addressVagueHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// IsPostalAddress reports whether s is a bare street address (leading house
// number followed by a street-type token) rather than a place name.
func IsPostalAddress(s string) bool {
	return streetTypeRx.MatchString(s)
}

// IsIntersection reports whether s is a street-intersection string such as
// "Market St & 5th St". Intersections are excluded from place-lookup queries
// because they resolve to road geometry, not places.
func IsIntersection(s string) bool {
	if !strings.Contains(s, " & ") && !strings.Contains(s, "/") {
		return false
	}
	return digitRx.MatchString(s) || streetTypeRx.MatchString(s)
}

// HasDigit reports whether s contains any decimal digit.
func HasDigit(s string) bool {
	return digitRx.MatchString(s)
}

// HasStreetNumber reports whether s contains a house-number token: digits
// standing alone before a street word. Ordinals like "5th St" do not count.
func HasStreetNumber(s string) bool {
	return streetNumRx.MatchString(s)
}

// HasLandmarkWord reports whether s names a recognizable landmark noun.
func HasLandmarkWord(s string) bool {
	return landmarkRx.MatchString(s)
}

// NameTokens splits a name into word tokens.
func NameTokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return fields
}

// HasTypeNoun reports whether any token of the name is a recognized place
// type noun.
func HasTypeNoun(s string) bool {
	for _, tok := range NameTokens(s) {
		if _, ok := typeNouns[strings.ToLower(tok)]; ok {
			return true
		}
	}
	return false
}

// TypeNoun returns the first recognized type noun in the name, or "".
func TypeNoun(s string) string {
	for _, tok := range NameTokens(s) {
		lower := strings.ToLower(tok)
		if _, ok := typeNouns[lower]; ok {
			return lower
		}
	}
	return ""
}

// IsNicknameStyle reports whether a name starts with a nickname-style prefix
// such as "Old" or "Historic".
func IsNicknameStyle(s string) bool {
	return nicknameRx.MatchString(s)
}

// IsAcronym reports whether s is a short all-caps acronym like "BCT".
func IsAcronym(s string) bool {
	return acronymRx.MatchString(strings.TrimSpace(s))
}

// CleanTeaser collapses whitespace, keeps at most two sentences, and caps the
// result at maxLen runes on a word boundary.
func CleanTeaser(s string, maxLen int) string {
	s = strings.TrimSpace(spacesRx.ReplaceAllString(s, " "))
	if s == "" {
		return s
	}
	if locs := sentenceRx.FindAllStringIndex(s, -1); len(locs) >= 2 {
		s = strings.TrimSpace(s[:locs[1][0]+1])
	}
	runesS := []rune(s)
	if maxLen > 0 && len(runesS) > maxLen {
		cut := string(runesS[:maxLen])
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		s = cut + "…"
	}
	return s
}

// DedupePreserve removes case-insensitive duplicates while preserving order,
// keeping at most cap entries. A cap of 0 means unlimited.
func DedupePreserve(in []string, capN int) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if capN > 0 && len(out) >= capN {
			break
		}
	}
	return out
}
