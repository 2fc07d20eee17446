package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// normalizer flattens markdown to plain text so chunk boundaries fall on
// prose rather than on formatting syntax. Drive exports are mostly plain
// text, but docs pasted from markdown sources keep their markup.
type normalizer struct {
	parser goldmark.Markdown
}

func newNormalizer() *normalizer {
	return &normalizer{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Flatten strips markdown structure and returns the plain text content.
// Headings, list items, and paragraphs become newline-separated lines.
func (n *normalizer) Flatten(content string) string {
	source := []byte(content)
	doc := n.parser.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.HardLineBreak() || v.SoftLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeBlock:
			writeLines(&b, v, source)
		case *ast.FencedCodeBlock:
			writeLines(&b, v, source)
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			ensureNewline(&b)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

func writeLines(b *strings.Builder, node interface{ Lines() *text.Segments }, source []byte) {
	ensureNewline(b)
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(source))
	}
}

func ensureNewline(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}
