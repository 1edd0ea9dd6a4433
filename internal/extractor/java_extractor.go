package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaExtractor implements LanguageExtractor for Java.
type JavaExtractor struct{}

func (j *JavaExtractor) GetLanguage() *sitter.Language {
	return java.GetLanguage()
}

// CollectDeclarations walks the tree in source order. A variable declarator
// directly inside a field or constant declaration is an attribute; one inside
// a local variable declaration, like an enhanced-for loop variable, is a
// local variable.
func (j *JavaExtractor) CollectDeclarations(root *sitter.Node, sourceCode []byte) Declarations {
	var decls Declarations
	attributes := newOrderedSet()
	variables := newOrderedSet()
	var packageEnd, importEnd int

	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	var visit func(*sitter.TreeCursor)
	visit = func(c *sitter.TreeCursor) {
		node := c.CurrentNode()
		switch node.Type() {
		case "package_declaration":
			if name := j.packageName(node, sourceCode); name != "" && decls.PackageName == nil {
				decls.PackageName = &name
			}
			packageEnd = int(node.EndByte())
			return
		case "import_declaration":
			importEnd = int(node.EndByte())
			return
		case "variable_declarator":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				name := nameNode.Content(sourceCode)
				if parent := node.Parent(); parent != nil {
					switch parent.Type() {
					case "field_declaration", "constant_declaration":
						attributes.add(name)
					case "local_variable_declaration":
						variables.add(name)
					}
				}
			}
		case "enhanced_for_statement":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				variables.add(nameNode.Content(sourceCode))
			}
		}

		if c.GoToFirstChild() {
			for {
				visit(c)
				if !c.GoToNextSibling() {
					break
				}
			}
			c.GoToParent()
		}
	}
	visit(cursor)

	decls.Attributes = attributes.items
	decls.Variables = variables.items

	switch {
	case importEnd > 0:
		decls.HeaderEnd = importEnd
	case packageEnd > 0:
		decls.HeaderEnd = packageEnd
	}
	return decls
}

func (j *JavaExtractor) packageName(node *sitter.Node, sourceCode []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "scoped_identifier", "identifier":
			return child.Content(sourceCode)
		}
	}
	return ""
}
