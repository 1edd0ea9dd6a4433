// Package javalex wraps the chroma Java lexer so that text normalization and
// structural extraction read the same token stream.
package javalex

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

var javaLexer = lexers.Get("java")

// Lex tokenizes Java source. Characters the lexer cannot classify are
// returned as chroma.Error tokens rather than aborting the scan.
func Lex(src string) ([]chroma.Token, error) {
	lexer := javaLexer
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return nil, err
	}
	return it.Tokens(), nil
}

// Words returns the significant token values of src in lexical order:
// whitespace and comments are dropped, malformed tokens are skipped and the
// pieces of one string literal are merged back into a single value.
func Words(src string) ([]string, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	words := make([]string, 0, len(tokens))
	var literal strings.Builder
	inLiteral := false
	flush := func() {
		if inLiteral {
			words = append(words, literal.String())
			literal.Reset()
			inLiteral = false
		}
	}

	for _, tok := range tokens {
		switch {
		case tok.Type.InSubCategory(chroma.LiteralString):
			literal.WriteString(tok.Value)
			inLiteral = true
			continue
		case tok.Type == chroma.Error,
			tok.Type.InCategory(chroma.Comment),
			IsWhitespace(tok):
			flush()
			continue
		}
		flush()
		words = append(words, tok.Value)
	}
	flush()
	return words, nil
}

// IsWhitespace reports whether tok carries only layout.
func IsWhitespace(tok chroma.Token) bool {
	if tok.Type == chroma.TextWhitespace || tok.Type == chroma.Text {
		return strings.TrimSpace(tok.Value) == ""
	}
	return false
}
