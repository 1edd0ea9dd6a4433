package textnorm

import (
	"regexp"
	"strings"
)

var javaReservedWords = []string{
	"abstract", "continue", "for", "new", "switch", "assert", "default", "goto",
	"package", "synchronized", "boolean", "do", "if", "private", "this", "break",
	"double", "implements", "protected", "throw", "byte", "else", "import", "public",
	"throws", "case", "enum", "instanceof", "return", "transient", "catch", "extends",
	"int", "short", "try", "char", "final", "interface", "static", "void", "class",
	"finally", "long", "strictfp", "volatile", "const", "float", "native", "super", "while",
}

var javaReserved = func() map[string]struct{} {
	set := make(map[string]struct{}, len(javaReservedWords))
	for _, w := range javaReservedWords {
		set[w] = struct{}{}
	}
	return set
}()

func isJavaReserved(t string) bool {
	_, ok := javaReserved[t]
	return ok
}

// Patterns replaced by the separator, applied in order.
var javaNoise = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:` + strings.Join(javaReservedWords, "|") + `)\b`),
	regexp.MustCompile(`//[^\n]*(?:\n|$)`),
	regexp.MustCompile(`0[xX][0-9A-Za-z_]+`),
	regexp.MustCompile(`<[\w/!\-.]+>`),
	regexp.MustCompile(`"[^"\n]*"`),
}

// Numeric literals may share their delimiters with a neighbour, so these are
// re-applied until the text stops changing.
var javaNumbers = []*regexp.Regexp{
	regexp.MustCompile(`["#(\[{\s.:;,]-?[0-9][0-9a-fA-F_]*["dDfFlLeE\s.,:;})\]]`),
	regexp.MustCompile(`[\s.,:;][0-9]+$`),
	regexp.MustCompile(`^[0-9]+[\s.,:;]`),
	regexp.MustCompile(`;[0-9;]+`),
}

const javaSeparator = ";"

var javaPunctuation = strings.NewReplacer(
	"(", " ", ")", " ", "[", " ", "]", " ", "+", " ", "-", " ", "!", " ", "~", " ",
	"*", " ", "/", " ", "%", " ", "<", " ", ">", " ", "=", " ", "&", " ", "^", " ",
	"|", " ", "?", " ", ":", " ", ";", " ", "{", " ", "}", " ", ",", " ", ".", " ",
	`"`, " ", `\`, " ", "#", " ", "`", " ", "@", " ",
)

// StripJavaSyntax removes Java reserved words, line comments, hex literals,
// tag-like substrings, string literals and numeric literals (each replaced by
// a separator), turns operators and punctuation into whitespace and drops
// remaining single quotes. Ambiguous input such as an operator inside a
// string literal may be over- or under-stripped.
func StripJavaSyntax(text string) string {
	for _, re := range javaNoise {
		text = re.ReplaceAllString(text, javaSeparator)
	}
	for changed := true; changed; {
		changed = false
		for _, re := range javaNumbers {
			next := re.ReplaceAllString(text, javaSeparator)
			if next != text {
				text = next
				changed = true
			}
		}
	}
	text = javaPunctuation.Replace(text)
	return strings.ReplaceAll(text, "'", "")
}
