package richtext

import "reflect"

// ApplyMark returns a copy of the tree with mark attached to every text run
// within [from, to). Text nodes straddling a range edge are split; the
// flattened text, and therefore every offset, is unchanged. The input tree is
// not mutated.
func ApplyMark(root *Node, from, to int, mark Mark) *Node {
	if root == nil || from >= to {
		return root
	}
	pos := 0
	nodes := markNode(root, &pos, from, to, mark)
	if len(nodes) != 1 {
		// The root is structural, never a splittable text leaf.
		return root
	}
	return nodes[0]
}

func markNode(node *Node, pos *int, from, to int, mark Mark) []*Node {
	if node.Type == TypeText || node.Text != "" {
		runes := []rune(node.Text)
		start := *pos
		end := start + len(runes)
		*pos = end

		overlapFrom := max(from, start)
		overlapTo := min(to, end)
		if overlapFrom >= overlapTo {
			return []*Node{node}
		}

		var out []*Node
		if overlapFrom > start {
			out = append(out, textSlice(node, runes[:overlapFrom-start], node.Marks))
		}
		out = append(out, textSlice(node, runes[overlapFrom-start:overlapTo-start], appendMark(node.Marks, mark)))
		if overlapTo < end {
			out = append(out, textSlice(node, runes[overlapTo-start:], node.Marks))
		}
		return out
	}

	if len(node.Content) == 0 {
		return []*Node{node}
	}

	children := make([]*Node, 0, len(node.Content))
	for _, child := range node.Content {
		children = append(children, markNode(child, pos, from, to, mark)...)
		if isBlock(child.Type) {
			*pos++ // block separator in the flattened stream
		}
	}
	copied := *node
	copied.Content = children
	return []*Node{&copied}
}

func textSlice(node *Node, runes []rune, marks []Mark) *Node {
	copied := *node
	copied.Text = string(runes)
	copied.Marks = append([]Mark(nil), marks...)
	if len(copied.Marks) == 0 {
		copied.Marks = nil
	}
	return &copied
}

func appendMark(marks []Mark, mark Mark) []Mark {
	out := append(append([]Mark(nil), marks...), mark)
	return out
}

// RemoveMarkByID returns a copy of the tree with every highlight mark whose
// marker identity equals markerID removed. Adjacent text runs left with
// identical mark sets are merged back together, so removing a mark is the
// exact inverse of applying it.
func RemoveMarkByID(root *Node, markerID string) *Node {
	if root == nil {
		return nil
	}
	copied := *root
	if len(root.Marks) > 0 {
		copied.Marks = filterMarks(root.Marks, markerID)
	}
	if len(root.Content) > 0 {
		children := make([]*Node, 0, len(root.Content))
		for _, child := range root.Content {
			children = append(children, RemoveMarkByID(child, markerID))
		}
		copied.Content = mergeTextRuns(children)
	}
	return &copied
}

func filterMarks(marks []Mark, markerID string) []Mark {
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		if m.Type == MarkHighlight && m.HighlightID() == markerID {
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergeTextRuns joins adjacent text siblings carrying identical marks and
// attrs into a single run.
func mergeTextRuns(nodes []*Node) []*Node {
	merged := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		if len(merged) > 0 {
			prev := merged[len(merged)-1]
			if prev.Type == TypeText && node.Type == TypeText &&
				marksEqual(prev.Marks, node.Marks) && reflect.DeepEqual(prev.Attrs, node.Attrs) {
				joined := *prev
				joined.Text = prev.Text + node.Text
				merged[len(merged)-1] = &joined
				continue
			}
		}
		merged = append(merged, node)
	}
	return merged
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !reflect.DeepEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
	}
	return true
}

// HasHighlightMark reports whether any text run within [from, to) already
// carries a highlight mark with the given marker identity.
func HasHighlightMark(root *Node, from, to int, markerID string) bool {
	for _, mark := range MarksInRange(root, from, to) {
		if mark.HighlightID() == markerID {
			return true
		}
	}
	return false
}

// MarksInRange collects the marks present on text runs overlapping [from, to).
func MarksInRange(root *Node, from, to int) []Mark {
	var marks []Mark
	pos := 0
	collectMarks(root, &pos, from, to, &marks)
	return marks
}

func collectMarks(node *Node, pos *int, from, to int, marks *[]Mark) {
	if node == nil {
		return
	}
	if node.Type == TypeText || node.Text != "" {
		start := *pos
		end := start + len([]rune(node.Text))
		*pos = end
		if max(from, start) < min(to, end) {
			*marks = append(*marks, node.Marks...)
		}
		return
	}
	for _, child := range node.Content {
		collectMarks(child, pos, from, to, marks)
		if isBlock(child.Type) {
			*pos++
		}
	}
}

// CountHighlightMarks returns how many text runs anywhere in the tree carry a
// highlight mark with the given marker identity.
func CountHighlightMarks(root *Node, markerID string) int {
	if root == nil {
		return 0
	}
	count := 0
	for _, mark := range root.Marks {
		if mark.HighlightID() == markerID {
			count++
		}
	}
	for _, child := range root.Content {
		count += CountHighlightMarks(child, markerID)
	}
	return count
}

// Transaction stages mark applications so a whole batch lands on the document
// as one tree rewrite instead of one rewrite per mark.
type Transaction struct {
	ops []markOp
}

type markOp struct {
	from, to int
	mark     Mark
}

// AddMark stages a mark application over [from, to).
func (t *Transaction) AddMark(from, to int, mark Mark) {
	t.ops = append(t.ops, markOp{from: from, to: to, mark: mark})
}

// Len reports the number of staged operations.
func (t *Transaction) Len() int {
	return len(t.ops)
}

// Apply performs every staged operation against root and returns the new
// tree. Offsets stay valid across operations because mark application never
// changes the flattened text. The input tree is not mutated.
func (t *Transaction) Apply(root *Node) *Node {
	for _, op := range t.ops {
		root = ApplyMark(root, op.from, op.to, op.mark)
	}
	return root
}
