// Package spimi implements C7: a SPIMI-built inverted text index ranked
// by TF-IDF cosine similarity (spec.md §4.7).
package spimi

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Profile selects the normalization/stopword/stemming behavior for one of
// the two language profiles spec.md §4.7 names.
type Profile string

const (
	ProfileEnglish Profile = "english"
	ProfileSpanish Profile = "spanish"
)

var stopwordsEnglish = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true,
}

var stopwordsSpanish = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "de": true, "del": true,
	"y": true, "o": true, "en": true, "un": true, "una": true, "que": true,
	"con": true, "por": true, "para": true, "es": true, "su": true, "al": true,
}

// diacriticsTransformer strips combining marks after NFD decomposition, the
// standard golang.org/x/text recipe for accent stripping.
var diacriticsTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize lowercases s, folds ñ→n for the Spanish profile, strips
// diacritics, splits on non-alphanumerics, drops stopwords for the given
// profile, and optionally stems with github.com/kljensen/snowball.
func Tokenize(s string, profile Profile, stem bool) []string {
	s = strings.ToLower(s)
	if profile == ProfileSpanish {
		s = strings.ReplaceAll(s, "ñ", "n")
	}
	s = stripDiacritics(s)

	stopwords := stopwordsEnglish
	lang := "english"
	if profile == ProfileSpanish {
		stopwords = stopwordsSpanish
		lang = "spanish"
	}

	// ':' is kept token-internal (not a split point) so a FieldScope'd
	// "field:term" survives tokenization as a single token.
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ':'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		if stem {
			if stemmed, err := snowball.Stem(f, lang, true); err == nil && stemmed != "" {
				f = stemmed
			}
		}
		tokens = append(tokens, f)
	}
	return tokens
}
