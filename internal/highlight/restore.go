package highlight

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"chronomind/api/internal/richtext"
	"chronomind/api/internal/store"
)

// Restorer re-applies persisted highlights onto a freshly loaded document.
// It remembers the identity of the last (owner, highlight list) pairing it
// reconciled so a stable list is never processed twice, while switching to a
// different owner (or a changed list) restores again.
type Restorer struct {
	lastKey string
}

// NewRestorer creates a restoration engine.
func NewRestorer() *Restorer {
	return &Restorer{}
}

// Restore stages a highlight mark for every persisted highlight whose
// captured text still matches the live document at its stored offsets, then
// applies all staged marks as one tree rewrite. Highlights whose text has
// diverged, whose offsets no longer fit, or whose marks are already present
// are skipped without error; a malformed highlight is logged and skipped.
// The returned count is the number of marks applied.
func (r *Restorer) Restore(doc *richtext.Node, owner store.OwnerRef, highlights []store.Highlight) (*richtext.Node, int) {
	if doc == nil || len(highlights) == 0 {
		return doc, 0
	}

	key := listKey(owner, highlights)
	if key == r.lastKey {
		return doc, 0
	}
	r.lastKey = key

	total := richtext.ContentLength(doc)
	var tx richtext.Transaction
	staged := make(map[string]struct{})

	for _, h := range highlights {
		stageErr := stageHighlight(doc, h, total, staged, &tx)
		if stageErr != nil {
			log.Printf("restore: skipping highlight %s on %s/%s: %v", h.ID, owner.Kind, owner.ID, stageErr)
		}
	}

	if tx.Len() == 0 {
		return doc, 0
	}
	return tx.Apply(doc), tx.Len()
}

// Reset clears the last-reconciled identity, forcing the next Restore to run.
func (r *Restorer) Reset() {
	r.lastKey = ""
}

// stageHighlight decides whether one highlight's mark should be re-applied.
// A nil return with nothing staged is a silent skip (stale text, marker
// already present); an error is a malformed record.
func stageHighlight(doc *richtext.Node, h store.Highlight, total int, staged map[string]struct{}, tx *richtext.Transaction) error {
	if h.StartOffset < 0 || h.EndOffset < h.StartOffset {
		return fmt.Errorf("malformed offsets [%d, %d)", h.StartOffset, h.EndOffset)
	}
	if h.MarkerID == "" {
		return fmt.Errorf("missing marker id")
	}
	if h.EndOffset > total {
		// Document shrank below the stored range.
		return nil
	}

	live := richtext.TextInRange(doc, h.StartOffset, h.EndOffset)
	if live != h.Text {
		// The underlying passage was edited since capture. Do not guess a new
		// location.
		return nil
	}

	if _, dup := staged[h.MarkerID]; dup {
		return nil
	}
	if richtext.HasHighlightMark(doc, h.StartOffset, h.EndOffset, h.MarkerID) {
		return nil
	}

	staged[h.MarkerID] = struct{}{}
	tx.AddMark(h.StartOffset, h.EndOffset, richtext.HighlightMark(h.MarkerID, tagNames(h.Tags)))
	return nil
}

func tagNames(tags []store.Tag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}

// listKey fingerprints an (owner, highlight list) pairing.
func listKey(owner store.OwnerRef, highlights []store.Highlight) string {
	var b strings.Builder
	b.WriteString(string(owner.Kind))
	b.WriteByte('/')
	b.WriteString(owner.ID)
	for _, h := range highlights {
		b.WriteByte('|')
		b.WriteString(h.ID)
		b.WriteByte(':')
		b.WriteString(h.MarkerID)
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
