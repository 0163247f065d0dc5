// Package richtext models the Tiptap/ProseMirror-style document tree that
// journal entries are stored as, and the offset-addressed text operations the
// highlight subsystem needs on top of it.
package richtext

// Node is a node in the rich-text document tree. A node carries either Text
// (leaf text runs) or Content (structural nodes); Attrs is an opaque bag of
// presentation data that the core never inspects beyond heading levels.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark is a style or annotation marker attached to a text run.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node type discriminators the core cares about.
const (
	TypeDoc            = "doc"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeText           = "text"
	TypeBlockquote     = "blockquote"
	TypeCodeBlock      = "codeBlock"
	TypeBulletList     = "bulletList"
	TypeOrderedList    = "orderedList"
	TypeListItem       = "listItem"
	TypeHorizontalRule = "horizontalRule"
	TypeHardBreak      = "hardBreak"
)

// MarkHighlight is the mark type carrying a persisted highlight's marker
// identity and denormalized tag names.
const MarkHighlight = "highlight"

// blockTypes are the node types that contribute a separating space to the
// flattened text stream, so words never concatenate across block boundaries.
var blockTypes = map[string]struct{}{
	TypeParagraph:      {},
	TypeHeading:        {},
	TypeBlockquote:     {},
	TypeCodeBlock:      {},
	TypeBulletList:     {},
	TypeOrderedList:    {},
	TypeListItem:       {},
	TypeHorizontalRule: {},
	TypeHardBreak:      {},
}

func isBlock(nodeType string) bool {
	_, ok := blockTypes[nodeType]
	return ok
}

// HighlightMark builds a highlight mark for the given marker identity and tag
// names. The id correlates the in-document mark to its persisted highlight
// record; it is not the storage id.
func HighlightMark(markerID string, tags []string) Mark {
	tagValues := make([]any, len(tags))
	for i, tag := range tags {
		tagValues[i] = tag
	}
	return Mark{
		Type: MarkHighlight,
		Attrs: map[string]any{
			"id":   markerID,
			"tags": tagValues,
		},
	}
}

// HighlightID returns the marker identity of a highlight mark, or "" for any
// other mark type.
func (m Mark) HighlightID() string {
	if m.Type != MarkHighlight || m.Attrs == nil {
		return ""
	}
	id, _ := m.Attrs["id"].(string)
	return id
}

// HighlightTags returns the denormalized tag names carried by a highlight
// mark. Tags survive a JSON round-trip as []any, so both shapes are accepted.
func (m Mark) HighlightTags() []string {
	if m.Type != MarkHighlight || m.Attrs == nil {
		return nil
	}
	switch tags := m.Attrs["tags"].(type) {
	case []string:
		return append([]string(nil), tags...)
	case []any:
		names := make([]string, 0, len(tags))
		for _, tag := range tags {
			if name, ok := tag.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}
