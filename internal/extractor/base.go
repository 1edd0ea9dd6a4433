package extractor

import sitter "github.com/smacker/go-tree-sitter"

// Result holds the structural facts mined from one source file. Every field
// is always populated; list fields are empty rather than nil and keep the
// order in which names first appear in the source.
type Result struct {
	Comments       string   `json:"comments"`
	ClassNames     []string `json:"class_names"`
	MethodNames    []string `json:"method_names"`
	Attributes     []string `json:"attributes"`
	Variables      []string `json:"variables"`
	PackageName    *string  `json:"package_name"`
	Degraded       bool     `json:"degraded"`
	DegradedReason string   `json:"degraded_reason,omitempty"`
}

// ParseResult is the outcome of a syntactic parse: either *Parsed or
// *ParseFailed.
type ParseResult interface {
	parseResult()
}

// Parsed carries a syntax tree without errors.
type Parsed struct {
	Tree   *sitter.Tree
	Source []byte
}

// ParseFailed records why no usable tree was produced.
type ParseFailed struct {
	Reason string
}

func (*Parsed) parseResult()      {}
func (*ParseFailed) parseResult() {}

// Declarations are the facts only a successful parse can provide.
type Declarations struct {
	Attributes  []string
	Variables   []string
	PackageName *string
	// HeaderEnd is the byte offset just past the last import, or past the
	// package declaration when there are no imports. Zero means no header.
	HeaderEnd int
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	CollectDeclarations(root *sitter.Node, sourceCode []byte) Declarations
}
