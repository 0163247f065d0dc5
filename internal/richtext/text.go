package richtext

import "strings"

// DefaultPreviewLength is the preview size used when callers have no better
// bound.
const DefaultPreviewLength = 200

// ExtractText recursively concatenates every leaf text run in document order.
// A single separating space follows each block-level child, which is also the
// offset-addressing convention: highlight offsets count runes of this exact
// flattening, separators included.
func ExtractText(node *Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	writeText(&b, node)
	return b.String()
}

func writeText(b *strings.Builder, node *Node) {
	if node.Text != "" {
		b.WriteString(node.Text)
	}
	for _, child := range node.Content {
		writeText(b, child)
		if isBlock(child.Type) {
			b.WriteByte(' ')
		}
	}
}

// ContentLength returns the total rune length of the flattened text stream.
func ContentLength(node *Node) int {
	return len([]rune(ExtractText(node)))
}

// TextInRange returns the flattened text strictly within [from, to), using
// the same block-separator convention as ExtractText. Out-of-bounds or
// inverted ranges yield "".
func TextInRange(node *Node, from, to int) string {
	runes := []rune(ExtractText(node))
	if from < 0 || to > len(runes) || from >= to {
		return ""
	}
	return string(runes[from:to])
}

// HasSubstantialContent reports whether the document contains any
// non-whitespace text.
func HasSubstantialContent(node *Node) bool {
	return strings.TrimSpace(ExtractText(node)) != ""
}

// PreviewText extracts and trims the document text, truncating to maxLength
// runes. When a word boundary exists within the last 20% of the truncated
// window the cut backs up to it before the ellipsis is appended; otherwise the
// text is hard-truncated.
func PreviewText(node *Node, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultPreviewLength
	}
	text := strings.TrimSpace(ExtractText(node))
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	window := runes[:maxLength]
	cut := maxLength
	boundary := maxLength - maxLength/5
	for i := maxLength - 1; i >= boundary && i >= 0; i-- {
		if window[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(window[:cut]), " ") + "..."
}
