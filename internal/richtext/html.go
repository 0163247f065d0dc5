package richtext

import (
	"fmt"
	"html"
	"strings"
)

// RenderHTML converts a document tree to HTML. Used by the tagged-content
// digest export; not a general-purpose sanitizer.
func RenderHTML(node *Node) string {
	if node == nil {
		return ""
	}
	return renderNode(node)
}

func renderNode(node *Node) string {
	switch node.Type {
	case TypeDoc:
		return renderContent(node.Content)
	case TypeParagraph:
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node.Content))
	case TypeHeading:
		level := 1
		if lvl, ok := node.Attrs["level"].(float64); ok {
			level = int(lvl)
		} else if lvl, ok := node.Attrs["level"].(int); ok {
			level = lvl
		}
		if level < 1 || level > 6 {
			level = 1
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node.Content), level)
	case TypeBulletList:
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node.Content))
	case TypeOrderedList:
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node.Content))
	case TypeListItem:
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node.Content))
	case TypeBlockquote:
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node.Content))
	case TypeCodeBlock:
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(ExtractText(node)))
	case TypeText:
		return renderTextWithMarks(node.Text, node.Marks)
	case TypeHardBreak:
		return "<br>"
	case TypeHorizontalRule:
		return "<hr>\n"
	default:
		// Unknown node type - render content if any
		return renderContent(node.Content)
	}
}

func renderContent(content []*Node) string {
	var result strings.Builder
	for _, child := range content {
		result.WriteString(renderNode(child))
	}
	return result.String()
}

func renderTextWithMarks(text string, marks []Mark) string {
	if text == "" {
		return ""
	}

	htmlText := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		case MarkHighlight:
			htmlText = fmt.Sprintf(`<mark data-highlight-id="%s">%s</mark>`,
				html.EscapeString(marks[i].HighlightID()), htmlText)
		}
	}

	return htmlText
}
