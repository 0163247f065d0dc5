// Package highlight implements the capture and restoration flows for
// text-span annotations over rich-text journal documents.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chronomind/api/internal/richtext"
	"chronomind/api/internal/store"
)

// ErrInvalidSelection means a selection's offsets do not address the current
// document.
var ErrInvalidSelection = errors.New("selection out of range")

// CommitStage names the step of a capture commit that failed, so callers can
// distinguish tag resolution failures from persistence failures.
type CommitStage string

const (
	StageTagResolution CommitStage = "tag_resolution"
	StagePersistence   CommitStage = "persistence"
)

// CommitError reports a failed capture commit. The optimistic document mark
// has already been rolled back by the time the caller sees it.
type CommitError struct {
	Stage CommitStage
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("capture commit failed (%s): %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// State is the capture flow's position in its per-surface state machine.
type State int

const (
	StateIdle State = iota
	StateSelectionPending
	StateMenuOpen
	StateCommitting
)

// Selection is a captured text selection: flattened-stream offsets plus the
// extracted text at capture time.
type Selection struct {
	From int
	To   int
	Text string
}

// TagResolver resolves tag names to identities with get-or-create semantics.
type TagResolver interface {
	GetOrCreateTags(ctx context.Context, userID string, names []string) ([]store.Tag, error)
}

// Writer persists captured highlights.
type Writer interface {
	CreateHighlight(ctx context.Context, h store.Highlight) (store.Highlight, error)
}

// Surface is one editing surface's capture flow. All state is explicit:
// document handle, owner reference and user identity are supplied at
// construction, never ambient. A Surface is driven from a single logical
// thread, matching how one editor instance is used.
type Surface struct {
	doc    *richtext.Node
	owner  store.OwnerRef
	userID string
	tags   TagResolver
	writer Writer

	state   State
	sel     Selection
	pending []string

	// generation guards against stale persistence responses: it is bumped on
	// every owner switch, and a commit that started under an older generation
	// must not touch the document it no longer owns.
	generation uint64
}

// NewSurface creates a capture surface for the given document and owner.
func NewSurface(doc *richtext.Node, owner store.OwnerRef, userID string, tags TagResolver, writer Writer) *Surface {
	return &Surface{
		doc:    doc,
		owner:  owner,
		userID: userID,
		tags:   tags,
		writer: writer,
		state:  StateIdle,
	}
}

// Doc returns the surface's current document tree, including any optimistic
// marks.
func (s *Surface) Doc() *richtext.Node {
	return s.doc
}

// Owner returns the surface's current owner reference.
func (s *Surface) Owner() store.OwnerRef {
	return s.owner
}

// State returns the capture flow's current state.
func (s *Surface) State() State {
	return s.state
}

// PendingTags returns a copy of the pending tag name list.
func (s *Surface) PendingTags() []string {
	return append([]string(nil), s.pending...)
}

// SetDocument points the surface at a different owner's document, discarding
// any pending capture state. In-flight commits from the previous owner become
// stale and their responses are ignored.
func (s *Surface) SetDocument(doc *richtext.Node, owner store.OwnerRef) {
	s.doc = doc
	s.owner = owner
	s.generation++
	s.reset()
}

// Select captures a non-empty text selection and moves to SelectionPending.
func (s *Surface) Select(from, to int) error {
	if from < 0 || to <= from || to > richtext.ContentLength(s.doc) {
		return ErrInvalidSelection
	}
	s.sel = Selection{From: from, To: to, Text: richtext.TextInRange(s.doc, from, to)}
	s.pending = nil
	s.state = StateSelectionPending
	return nil
}

// Selection returns the pending selection.
func (s *Surface) Selection() Selection {
	return s.sel
}

// OpenMenu opens the tag-entry flow for the pending selection.
func (s *Surface) OpenMenu() error {
	if s.state != StateSelectionPending {
		return fmt.Errorf("no pending selection")
	}
	s.state = StateMenuOpen
	return nil
}

// AddTag adds a tag name to the pending set. Names are trimmed and
// deduplicated case-sensitively; blank names are ignored.
func (s *Surface) AddTag(name string) {
	if s.state != StateMenuOpen {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	for _, existing := range s.pending {
		if existing == name {
			return
		}
	}
	s.pending = append(s.pending, name)
}

// RemoveTag drops a tag name from the pending set.
func (s *Surface) RemoveTag(name string) {
	if s.state != StateMenuOpen {
		return
	}
	kept := s.pending[:0]
	for _, existing := range s.pending {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	s.pending = kept
}

// Cancel discards pending capture state without touching the document.
func (s *Surface) Cancel() {
	s.reset()
}

func (s *Surface) reset() {
	s.state = StateIdle
	s.sel = Selection{}
	s.pending = nil
}

// Commit turns the pending selection and tag names into a persisted
// highlight. The highlight mark is applied to the document before
// persistence; if tag resolution or the write fails, the mark is removed
// again, so the document never stays ahead of persisted truth. Committing
// with no pending tags is a cancel, reported by ok=false with no error.
func (s *Surface) Commit(ctx context.Context) (h store.Highlight, ok bool, err error) {
	if s.state != StateMenuOpen {
		return store.Highlight{}, false, fmt.Errorf("nothing to commit")
	}
	if len(s.pending) == 0 {
		s.Cancel()
		return store.Highlight{}, false, nil
	}

	s.state = StateCommitting
	gen := s.generation
	sel := s.sel
	pending := s.pending

	markerID := uuid.NewString()
	mark := richtext.HighlightMark(markerID, pending)

	// Optimistic apply: the mark lands before persistence confirms.
	s.doc = richtext.ApplyMark(s.doc, sel.From, sel.To, mark)

	tags, err := s.tags.GetOrCreateTags(ctx, s.userID, pending)
	if err != nil {
		s.rollback(gen, markerID)
		return store.Highlight{}, false, &CommitError{Stage: StageTagResolution, Err: err}
	}

	created, err := s.writer.CreateHighlight(ctx, store.Highlight{
		Owner:       s.owner,
		UserID:      s.userID,
		MarkerID:    markerID,
		Text:        sel.Text,
		StartOffset: sel.From,
		EndOffset:   sel.To,
		Tags:        tags,
	})
	if err != nil {
		s.rollback(gen, markerID)
		return store.Highlight{}, false, &CommitError{Stage: StagePersistence, Err: err}
	}

	if gen == s.generation {
		s.reset()
	}
	return created, true, nil
}

// rollback removes the optimistic mark, unless the surface has moved on to a
// different owner's document in the meantime.
func (s *Surface) rollback(gen uint64, markerID string) {
	if gen != s.generation {
		return
	}
	s.doc = richtext.RemoveMarkByID(s.doc, markerID)
	s.reset()
}
