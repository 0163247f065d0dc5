package richtext

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func textNode(text string, marks ...Mark) *Node {
	return &Node{Type: TypeText, Text: text, Marks: marks}
}

func para(children ...*Node) *Node {
	return &Node{Type: TypeParagraph, Content: children}
}

func doc(children ...*Node) *Node {
	return &Node{Type: TypeDoc, Content: children}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		input    *Node
		expected string
	}{
		{
			name:     "nil input",
			input:    nil,
			expected: "",
		},
		{
			name:     "single paragraph",
			input:    doc(para(textNode("Hello world"))),
			expected: "Hello world ",
		},
		{
			name:     "block separator between paragraphs",
			input:    doc(para(textNode("one")), para(textNode("two"))),
			expected: "one two ",
		},
		{
			name: "heading then paragraph",
			input: doc(
				&Node{Type: TypeHeading, Attrs: map[string]any{"level": 2.0}, Content: []*Node{textNode("Title")}},
				para(textNode("body")),
			),
			expected: "Title body ",
		},
		{
			name:     "inline runs concatenate without separator",
			input:    doc(para(textNode("Hello "), textNode("world", Mark{Type: "bold"}))),
			expected: "Hello world ",
		},
		{
			name:     "horizontal rule contributes only a separator",
			input:    doc(para(textNode("a")), &Node{Type: TypeHorizontalRule}, para(textNode("b"))),
			expected: "a  b ",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractText(tc.input); got != tc.expected {
				t.Fatalf("ExtractText() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestHasSubstantialContent(t *testing.T) {
	if HasSubstantialContent(nil) {
		t.Fatal("nil document should not have content")
	}
	if HasSubstantialContent(doc(para(textNode("   ")))) {
		t.Fatal("whitespace-only document should not have content")
	}
	if !HasSubstantialContent(doc(para(textNode(" hi ")))) {
		t.Fatal("expected substantial content")
	}
}

func TestPreviewText(t *testing.T) {
	tests := []struct {
		name      string
		input     *Node
		maxLength int
		expected  string
	}{
		{
			name:      "nil input",
			input:     nil,
			maxLength: 10,
			expected:  "",
		},
		{
			name:      "short text returned as-is",
			input:     doc(para(textNode("short"))),
			maxLength: 10,
			expected:  "short",
		},
		{
			name:      "hard truncation when no boundary in window tail",
			input:     doc(para(textNode("abcdefghij klmnop"))),
			maxLength: 10,
			expected:  "abcdefghij...",
		},
		{
			name:      "backs up to word boundary in window tail",
			input:     doc(para(textNode("abcdefgh ij klmnop"))),
			maxLength: 10,
			expected:  "abcdefgh...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PreviewText(tc.input, tc.maxLength)
			if got != tc.expected {
				t.Fatalf("PreviewText() = %q, want %q", got, tc.expected)
			}
			if len([]rune(got)) > tc.maxLength+3 {
				t.Fatalf("preview longer than max+ellipsis: %q", got)
			}
		})
	}
}

func TestTextInRange(t *testing.T) {
	d := doc(para(textNode("hello world")), para(textNode("second")))

	tests := []struct {
		name     string
		from, to int
		expected string
	}{
		{name: "prefix", from: 0, to: 5, expected: "hello"},
		{name: "full first block", from: 0, to: 11, expected: "hello world"},
		{name: "across separator", from: 6, to: 18, expected: "world second"},
		{name: "inverted", from: 5, to: 2, expected: ""},
		{name: "out of bounds", from: 0, to: 999, expected: ""},
		{name: "negative", from: -1, to: 3, expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TextInRange(d, tc.from, tc.to); got != tc.expected {
				t.Fatalf("TextInRange(%d, %d) = %q, want %q", tc.from, tc.to, got, tc.expected)
			}
		})
	}
}

func TestApplyMarkSplitsTextRun(t *testing.T) {
	d := doc(para(textNode("hello world")))
	mark := HighlightMark("m-1", []string{"a"})

	marked := ApplyMark(d, 0, 5, mark)

	if got := ExtractText(marked); got != "hello world " {
		t.Fatalf("text changed by mark application: %q", got)
	}
	if CountHighlightMarks(marked, "m-1") != 1 {
		t.Fatalf("expected exactly one marked run, got %d", CountHighlightMarks(marked, "m-1"))
	}
	runs := marked.Content[0].Content
	if len(runs) != 2 {
		t.Fatalf("expected split into 2 runs, got %d", len(runs))
	}
	if runs[0].Text != "hello" || len(runs[0].Marks) != 1 {
		t.Fatalf("first run wrong: %+v", runs[0])
	}
	if runs[1].Text != " world" || len(runs[1].Marks) != 0 {
		t.Fatalf("second run wrong: %+v", runs[1])
	}
	// Original untouched.
	if len(d.Content[0].Content) != 1 {
		t.Fatal("input tree was mutated")
	}
}

func TestApplyMarkInteriorRange(t *testing.T) {
	d := doc(para(textNode("hello world")))
	marked := ApplyMark(d, 6, 11, HighlightMark("m-2", nil))

	runs := marked.Content[0].Content
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[1].Text != "world" {
		t.Fatalf("marked run = %q, want %q", runs[1].Text, "world")
	}
	if !HasHighlightMark(marked, 6, 11, "m-2") {
		t.Fatal("mark not found in range")
	}
	if HasHighlightMark(marked, 0, 5, "m-2") {
		t.Fatal("mark leaked outside range")
	}
}

func TestApplyMarkAcrossBlocks(t *testing.T) {
	d := doc(para(textNode("one")), para(textNode("two")))
	marked := ApplyMark(d, 0, 7, HighlightMark("m-3", nil))

	// Both runs marked; the synthetic separator carries nothing.
	if CountHighlightMarks(marked, "m-3") != 2 {
		t.Fatalf("expected 2 marked runs, got %d", CountHighlightMarks(marked, "m-3"))
	}
	if got := ExtractText(marked); got != "one two " {
		t.Fatalf("text changed: %q", got)
	}
}

func TestRemoveMarkByIDRestoresOriginalTree(t *testing.T) {
	d := doc(para(textNode("hello world")), para(textNode("second")))
	before, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	marked := ApplyMark(d, 2, 9, HighlightMark("m-4", []string{"x"}))
	restored := RemoveMarkByID(marked, "m-4")

	after, err := json.Marshal(restored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("remove is not the inverse of apply:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestRemoveMarkByIDKeepsOtherMarks(t *testing.T) {
	d := doc(para(textNode("hello world")))
	marked := ApplyMark(d, 0, 5, HighlightMark("keep", nil))
	marked = ApplyMark(marked, 0, 5, HighlightMark("drop", nil))

	result := RemoveMarkByID(marked, "drop")

	if CountHighlightMarks(result, "drop") != 0 {
		t.Fatal("dropped mark still present")
	}
	if CountHighlightMarks(result, "keep") != 1 {
		t.Fatal("unrelated mark was removed")
	}
}

func TestTransactionAppliesAllMarksAtOnce(t *testing.T) {
	d := doc(para(textNode("hello world")), para(textNode("second")))

	var tx Transaction
	tx.AddMark(0, 5, HighlightMark("m-a", nil))
	tx.AddMark(6, 11, HighlightMark("m-b", nil))
	tx.AddMark(12, 18, HighlightMark("m-c", nil))
	if tx.Len() != 3 {
		t.Fatalf("expected 3 staged ops, got %d", tx.Len())
	}

	applied := tx.Apply(d)

	for _, id := range []string{"m-a", "m-b", "m-c"} {
		if CountHighlightMarks(applied, id) != 1 {
			t.Fatalf("mark %s applied %d times, want 1", id, CountHighlightMarks(applied, id))
		}
	}
	if got := ExtractText(applied); got != "hello world second " {
		t.Fatalf("transaction changed text: %q", got)
	}
}

func TestHighlightMarkRoundTrip(t *testing.T) {
	mark := HighlightMark("marker-1", []string{"go", "reading"})

	data, err := json.Marshal(mark)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Mark
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.HighlightID() != "marker-1" {
		t.Fatalf("HighlightID() = %q", decoded.HighlightID())
	}
	if got := decoded.HighlightTags(); !reflect.DeepEqual(got, []string{"go", "reading"}) {
		t.Fatalf("HighlightTags() = %v", got)
	}
}

func TestRenderHTML(t *testing.T) {
	d := doc(
		&Node{Type: TypeHeading, Attrs: map[string]any{"level": 2.0}, Content: []*Node{textNode("Title")}},
		para(
			textNode("plain "),
			textNode("marked", HighlightMark("m-9", []string{"t"})),
		),
	)

	html := RenderHTML(d)

	for _, want := range []string{"<h2>Title</h2>", `<mark data-highlight-id="m-9">marked</mark>`, "plain "} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered HTML missing %q:\n%s", want, html)
		}
	}
}
