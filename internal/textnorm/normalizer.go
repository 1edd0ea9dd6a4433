// Package textnorm turns bug report prose and Java source into normalized,
// whitespace-joined token streams that the TF-IDF model can compare.
//
// Every function here is total: any input string, including empty or
// invalid UTF-8 text, yields a string and never an error.
package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"bugloc/internal/javalex"
)

// wordPunct splits on word/punctuation boundaries: runs of word characters
// or runs of symbols, whitespace discarded.
var wordPunct = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+|[^\p{L}\p{M}\p{N}_\s]+`)

// maxStemPasses bounds the search for a stem that stems to itself.
const maxStemPasses = 8

// NormalizeNatural tokenizes natural-language text, enriches the tokens with
// their camel-case and digit-run pieces, lowercases them, strips punctuation
// and digits, optionally drops stop words and stems, and returns the sorted
// unique token set joined by single spaces.
//
// Stemming is repeated until the stem is stable ("agreed" -> "agre" -> "agr")
// and stop words are checked again on the stem, so feeding the output back in
// returns it unchanged.
func NormalizeNatural(text string, stem, removeStopWords bool) string {
	text = ValidUTF8(text)
	tokens := CamelSplit(wordPunct.FindAllString(text, -1))

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = stripPunctAndDigits(strings.TrimSpace(strings.ToLower(t)))
		if t == "" {
			continue
		}
		if removeStopWords && IsStopWord(t) {
			continue
		}
		if stem {
			t = stableStem(t)
			if t == "" || removeStopWords && IsStopWord(t) {
				continue
			}
		}
		out = append(out, t)
	}
	return joinUnique(out)
}

// NormalizeSource tokenizes Java source with the Java lexer, applies the same
// camel-case split, lowercasing and optional stemming as NormalizeNatural, and
// then runs StripJavaSyntax over the joined tokens instead of stop-word removal.
//
// Stripping can split tokens and leave pieces of literals behind, so the
// survivors are stemmed again, reduced to identifier-shaped words and
// re-sorted.
func NormalizeSource(text string, stem bool) string {
	text = ValidUTF8(text)
	words, err := javalex.Words(text)
	if err != nil {
		words = wordPunct.FindAllString(text, -1)
	}
	tokens := CamelSplit(words)

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		if stem {
			t = stableStem(t)
		}
		out = append(out, t)
	}

	stripped := strings.Fields(StripJavaSyntax(joinUnique(out)))
	kept := stripped[:0]
	for _, t := range stripped {
		if stem {
			t = stableStem(t)
		}
		if isIdentifier(t) && !isJavaReserved(t) {
			kept = append(kept, t)
		}
	}
	return joinUnique(kept)
}

// ValidUTF8 replaces every byte that is not part of a valid UTF-8 sequence
// with its own U+FFFD, so rune offsets of the valid text are preserved.
func ValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func stableStem(t string) string {
	for i := 0; i < maxStemPasses; i++ {
		next := porterstemmer.StemString(t)
		if next == t {
			break
		}
		t = next
	}
	return t
}

// isIdentifier reports whether t starts with a letter and continues with
// letters, digits, underscores or dollar signs.
func isIdentifier(t string) bool {
	for i, r := range t {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_' || r == '$'):
		default:
			return false
		}
	}
	return t != ""
}

// CamelSplit returns the sorted union of tokens and their sub-tokens, where a
// sub-token is an uppercase/digit run followed by a lowercase/digit run
// ("getFileName" -> "get", "File", "Name"). Characters outside [A-Za-z0-9]
// become single-character sub-tokens.
func CamelSplit(tokens []string) []string {
	set := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		set[t] = struct{}{}
		for _, part := range camelParts(t) {
			set[part] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func camelParts(token string) []string {
	runes := []rune(token)
	var parts []string
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && (isASCIIUpper(runes[j]) || isASCIIDigit(runes[j])) {
			j++
		}
		for j < len(runes) && (isASCIILower(runes[j]) || isASCIIDigit(runes[j])) {
			j++
		}
		if j == i {
			if !unicode.IsSpace(runes[i]) {
				parts = append(parts, string(runes[i]))
			}
			i++
			continue
		}
		parts = append(parts, string(runes[i:j]))
		i = j
	}
	return parts
}

func stripPunctAndDigits(token string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsDigit(r) {
			return -1
		}
		return r
	}, token)
}

func joinUnique(tokens []string) string {
	sort.Strings(tokens)
	out := tokens[:0]
	for _, t := range tokens {
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
