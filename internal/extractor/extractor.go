package extractor

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"bugloc/internal/javalex"
	"bugloc/internal/textnorm"
)

// Extractor combines a syntactic parse with a lexical scan. The parse may
// fail; the lexical scan always runs.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "java":
		langExt = &JavaExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// ExtractFromFile reads a single source file and extracts its structural facts.
func (e *Extractor) ExtractFromFile(ctx context.Context, filepath string) (Result, error) {
	sourceCode, err := os.ReadFile(filepath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return e.Extract(ctx, string(sourceCode)), nil
}

// Parse runs the syntactic parser. A tree containing error or missing nodes
// counts as a failed parse.
func (e *Extractor) Parse(ctx context.Context, source string) ParseResult {
	sourceCode := []byte(source)

	// Parsers are not safe for concurrent use; one per call.
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return &ParseFailed{Reason: err.Error()}
	}
	root := tree.RootNode()
	if root.HasError() {
		return &ParseFailed{Reason: describeSyntaxError(root)}
	}
	return &Parsed{Tree: tree, Source: sourceCode}
}

// Extract never fails: a failed parse leaves attributes, variables and the
// package name empty and marks the result as degraded.
func (e *Extractor) Extract(ctx context.Context, source string) Result {
	res := Result{
		ClassNames:  []string{},
		MethodNames: []string{},
		Attributes:  []string{},
		Variables:   []string{},
	}

	source = textnorm.ValidUTF8(source)
	body := source
	skipHeaderComment := true

	switch p := e.Parse(ctx, source).(type) {
	case *Parsed:
		decls := e.langExtractor.CollectDeclarations(p.Tree.RootNode(), p.Source)
		res.Attributes = decls.Attributes
		res.Variables = decls.Variables
		res.PackageName = decls.PackageName
		if decls.HeaderEnd > 0 {
			body = string(p.Source[decls.HeaderEnd:])
			skipHeaderComment = false
		}
	case *ParseFailed:
		res.Degraded = true
		res.DegradedReason = p.Reason
	}

	e.scanLexical(body, skipHeaderComment, &res)
	return res
}

// scanLexical collects multi-line comments, class names and method names.
// With skipHeaderComment set, a comment that is the first significant token
// is treated as a license header and left out.
func (e *Extractor) scanLexical(body string, skipHeaderComment bool, res *Result) {
	tokens, err := javalex.Lex(body)
	if err != nil {
		return
	}

	var comments []byte
	classes := newOrderedSet()
	methods := newOrderedSet()
	first := true

	for _, tok := range tokens {
		if javalex.IsWhitespace(tok) {
			continue
		}
		leading := first
		first = false

		switch {
		case tok.Type == chroma.CommentMultiline:
			if leading && skipHeaderComment {
				continue
			}
			if len(comments) > 0 {
				comments = append(comments, '\n')
			}
			comments = append(comments, tok.Value...)
		case tok.Type == chroma.NameClass:
			classes.add(tok.Value)
		case tok.Type == chroma.NameFunction:
			methods.add(tok.Value)
		}
	}

	res.Comments = string(comments)
	res.ClassNames = classes.items
	res.MethodNames = methods.items
}

func describeSyntaxError(root *sitter.Node) string {
	if node := firstErrorNode(root); node != nil {
		p := node.StartPoint()
		return fmt.Sprintf("syntax error at line %d, column %d", p.Row+1, p.Column+1)
	}
	return "syntax error"
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
