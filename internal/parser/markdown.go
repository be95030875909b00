package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown walks the goldmark AST and reconstructs plain text.
// Inline formatting and links are reduced to their text; ATX heading
// markers are kept so the chunker can split heading-first downstream.
func parseMarkdown(data []byte) (string, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				sb.WriteString(strings.Repeat("#", node.Level))
				sb.WriteString(" ")
			} else {
				sb.WriteString("\n\n")
			}
		case *ast.Paragraph:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.ListItem:
			if entering {
				sb.WriteString("- ")
			} else {
				sb.WriteString("\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(data))
				}
				sb.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteString("\n")
				}
			}
		case *ast.ThematicBreak:
			if entering {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(sb.String()) + "\n", nil
}
