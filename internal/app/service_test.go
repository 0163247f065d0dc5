package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"chronomind/api/internal/richtext"
	"chronomind/api/internal/search"
	"chronomind/api/internal/store"
)

type fakeStore struct {
	ensureUserByNameFn       func(context.Context, string) (store.User, error)
	getUserByIDFn            func(context.Context, string) (store.User, error)
	listTagsFn               func(context.Context, string) ([]store.Tag, error)
	getTagFn                 func(context.Context, string, string) (store.Tag, error)
	createTagFn              func(context.Context, string, string) (store.Tag, error)
	getOrCreateTagsFn        func(context.Context, string, []string) ([]store.Tag, error)
	deleteTagFn              func(context.Context, string, string) error
	createHighlightFn        func(context.Context, store.Highlight) (store.Highlight, error)
	getHighlightFn           func(context.Context, string) (store.Highlight, error)
	deleteHighlightFn        func(context.Context, string) error
	listHighlightsForOwnerFn func(context.Context, store.OwnerRef) ([]store.Highlight, error)
	listHighlightsForTagFn   func(context.Context, string, string) ([]store.Highlight, error)
	listHighlightsForUserFn  func(context.Context, string) ([]store.Highlight, error)
	resolveSourceFn          func(context.Context, store.OwnerRef) (store.ContentSource, string, error)
	getOwnerDocumentFn       func(context.Context, store.OwnerRef) (json.RawMessage, error)
	saveOwnerDocumentFn      func(context.Context, store.OwnerRef, json.RawMessage) error
}

func (f *fakeStore) EnsureUserByName(ctx context.Context, name string) (store.User, error) {
	if f.ensureUserByNameFn != nil {
		return f.ensureUserByNameFn(ctx, name)
	}
	return store.User{ID: "user_1", DisplayName: name}, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "Avery"}, nil
}

func (f *fakeStore) ListTags(ctx context.Context, userID string) ([]store.Tag, error) {
	if f.listTagsFn != nil {
		return f.listTagsFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) GetTag(ctx context.Context, userID, tagID string) (store.Tag, error) {
	if f.getTagFn != nil {
		return f.getTagFn(ctx, userID, tagID)
	}
	return store.Tag{}, sql.ErrNoRows
}

func (f *fakeStore) CreateTag(ctx context.Context, userID, name string) (store.Tag, error) {
	if f.createTagFn != nil {
		return f.createTagFn(ctx, userID, name)
	}
	return store.Tag{ID: "tag_1", UserID: userID, Name: name}, nil
}

func (f *fakeStore) GetOrCreateTags(ctx context.Context, userID string, names []string) ([]store.Tag, error) {
	if f.getOrCreateTagsFn != nil {
		return f.getOrCreateTagsFn(ctx, userID, names)
	}
	tags := make([]store.Tag, 0, len(names))
	for i, name := range names {
		tags = append(tags, store.Tag{ID: "tag_" + name, UserID: userID, Name: name, CreatedAt: time.Now().Add(time.Duration(i))})
	}
	return tags, nil
}

func (f *fakeStore) DeleteTag(ctx context.Context, userID, tagID string) error {
	if f.deleteTagFn != nil {
		return f.deleteTagFn(ctx, userID, tagID)
	}
	return nil
}

func (f *fakeStore) CreateHighlight(ctx context.Context, h store.Highlight) (store.Highlight, error) {
	if f.createHighlightFn != nil {
		return f.createHighlightFn(ctx, h)
	}
	h.ID = "hl_1"
	h.CreatedAt = time.Now()
	return h, nil
}

func (f *fakeStore) GetHighlight(ctx context.Context, highlightID string) (store.Highlight, error) {
	if f.getHighlightFn != nil {
		return f.getHighlightFn(ctx, highlightID)
	}
	return store.Highlight{}, sql.ErrNoRows
}

func (f *fakeStore) DeleteHighlight(ctx context.Context, highlightID string) error {
	if f.deleteHighlightFn != nil {
		return f.deleteHighlightFn(ctx, highlightID)
	}
	return nil
}

func (f *fakeStore) ListHighlightsForOwner(ctx context.Context, owner store.OwnerRef) ([]store.Highlight, error) {
	if f.listHighlightsForOwnerFn != nil {
		return f.listHighlightsForOwnerFn(ctx, owner)
	}
	return nil, nil
}

func (f *fakeStore) ListHighlightsForTag(ctx context.Context, userID, tagID string) ([]store.Highlight, error) {
	if f.listHighlightsForTagFn != nil {
		return f.listHighlightsForTagFn(ctx, userID, tagID)
	}
	return nil, nil
}

func (f *fakeStore) ListHighlightsForUser(ctx context.Context, userID string) ([]store.Highlight, error) {
	if f.listHighlightsForUserFn != nil {
		return f.listHighlightsForUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) ResolveSource(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
	if f.resolveSourceFn != nil {
		return f.resolveSourceFn(ctx, owner)
	}
	return store.ContentSource{
		Year:      2026,
		Section:   owner.Kind.Section(),
		ItemID:    owner.ID,
		ItemTitle: "August 30, 2026",
	}, "user_1", nil
}

func (f *fakeStore) GetOwnerDocument(ctx context.Context, owner store.OwnerRef) (json.RawMessage, error) {
	if f.getOwnerDocumentFn != nil {
		return f.getOwnerDocumentFn(ctx, owner)
	}
	return mustMarshal(testDoc()), nil
}

func (f *fakeStore) SaveOwnerDocument(ctx context.Context, owner store.OwnerRef, doc json.RawMessage) error {
	if f.saveOwnerDocumentFn != nil {
		return f.saveOwnerDocumentFn(ctx, owner, doc)
	}
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

// testDoc is a single paragraph reading "hello world". Its flattened stream
// is "hello world " with the trailing block separator.
func testDoc() *richtext.Node {
	return &richtext.Node{
		Type: richtext.TypeDoc,
		Content: []*richtext.Node{
			{
				Type: richtext.TypeParagraph,
				Content: []*richtext.Node{
					{Type: richtext.TypeText, Text: "hello world"},
				},
			},
		},
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func parseDocOrFail(t *testing.T, raw json.RawMessage) *richtext.Node {
	t.Helper()
	var doc richtext.Node
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return &doc
}

// memoryStore layers an in-memory highlight list over fakeStore so capture
// and read flows can be tested end to end.
type memoryStore struct {
	fakeStore
	mu         sync.Mutex
	highlights []store.Highlight
	docs       map[store.OwnerRef]json.RawMessage
	nextID     int
}

func newMemoryStore() *memoryStore {
	m := &memoryStore{docs: map[store.OwnerRef]json.RawMessage{}}
	m.createHighlightFn = func(ctx context.Context, h store.Highlight) (store.Highlight, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.nextID++
		h.ID = "hl_" + strconv.Itoa(m.nextID)
		h.CreatedAt = time.Now()
		m.highlights = append(m.highlights, h)
		return h, nil
	}
	m.listHighlightsForOwnerFn = func(ctx context.Context, owner store.OwnerRef) ([]store.Highlight, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var out []store.Highlight
		for _, h := range m.highlights {
			if h.Owner == owner {
				out = append(out, h)
			}
		}
		return out, nil
	}
	m.getOwnerDocumentFn = func(ctx context.Context, owner store.OwnerRef) (json.RawMessage, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if doc, ok := m.docs[owner]; ok {
			return doc, nil
		}
		return mustMarshal(testDoc()), nil
	}
	m.saveOwnerDocumentFn = func(ctx context.Context, owner store.OwnerRef, doc json.RawMessage) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.docs[owner] = doc
		return nil
	}
	return m
}

func TestCaptureHighlightPersistsRecordAndMarksDocument(t *testing.T) {
	mem := newMemoryStore()
	svc := NewService(mem, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}

	h, err := svc.CaptureHighlight(context.Background(), "user_1", owner, CaptureInput{
		From: 0, To: 5, Tags: []string{"focus", "learning"},
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if h.Text != "hello" {
		t.Errorf("expected captured text %q, got %q", "hello", h.Text)
	}
	if h.MarkerID == "" {
		t.Error("expected a minted marker id")
	}
	if len(h.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(h.Tags))
	}

	doc := parseDocOrFail(t, mem.docs[owner])
	if n := richtext.CountHighlightMarks(doc, h.MarkerID); n != 1 {
		t.Errorf("expected 1 mark in saved document, got %d", n)
	}
}

func TestCaptureThenListShowsHighlightWithTags(t *testing.T) {
	mem := newMemoryStore()
	svc := NewService(mem, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerChapter, ID: "ch_1"}

	if _, err := svc.CaptureHighlight(context.Background(), "user_1", owner, CaptureInput{
		From: 6, To: 11, Tags: []string{"learning", "someday"},
	}); err != nil {
		t.Fatalf("capture: %v", err)
	}

	highlights, err := svc.OwnerHighlights(context.Background(), "user_1", owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(highlights) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(highlights))
	}
	if highlights[0].Text != "world" {
		t.Errorf("expected text %q, got %q", "world", highlights[0].Text)
	}
	if len(highlights[0].Tags) != 2 {
		t.Errorf("expected both tags on the record, got %d", len(highlights[0].Tags))
	}
}

func TestCaptureRejectsInvalidSelection(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}

	_, err := svc.CaptureHighlight(context.Background(), "user_1", owner, CaptureInput{
		From: 5, To: 500, Tags: []string{"focus"},
	})
	assertDomainError(t, err, 422, "INVALID_SELECTION")
}

func TestCaptureRequiresAtLeastOneTag(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}

	_, err := svc.CaptureHighlight(context.Background(), "user_1", owner, CaptureInput{
		From: 0, To: 5, Tags: []string{"  ", ""},
	})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestCaptureRejectsOtherUsersContent(t *testing.T) {
	fs := &fakeStore{
		resolveSourceFn: func(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
			return store.ContentSource{Year: 2026}, "user_9", nil
		},
	}
	svc := NewService(fs, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}

	_, err := svc.CaptureHighlight(context.Background(), "user_1", owner, CaptureInput{
		From: 0, To: 5, Tags: []string{"focus"},
	})
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestLoadDocumentDeletedOwnerIsNotFound(t *testing.T) {
	fs := &fakeStore{
		resolveSourceFn: func(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
			return store.ContentSource{}, "", store.ErrOwnerNotFound
		},
	}
	svc := NewService(fs, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_gone"}

	_, err := svc.LoadDocument(context.Background(), "user_1", owner)
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestExportDocumentDeletedOwnerIsNotFound(t *testing.T) {
	fs := &fakeStore{
		resolveSourceFn: func(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
			return store.ContentSource{}, "", store.ErrOwnerNotFound
		},
	}
	svc := NewService(fs, nil, nil)
	owner := store.OwnerRef{Kind: store.OwnerLesson, ID: "les_gone"}

	_, _, err := svc.ExportDocument(context.Background(), "user_1", owner)
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestLoadDocumentRestoresMissingMarks(t *testing.T) {
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}
	fs := &fakeStore{
		listHighlightsForOwnerFn: func(ctx context.Context, o store.OwnerRef) ([]store.Highlight, error) {
			return []store.Highlight{{
				ID: "hl_1", Owner: owner, UserID: "user_1", MarkerID: "marker-1",
				Text: "hello", StartOffset: 0, EndOffset: 5,
				Tags: []store.Tag{{ID: "tag_1", Name: "focus"}},
			}}, nil
		},
	}
	svc := NewService(fs, nil, nil)

	payload, err := svc.LoadDocument(context.Background(), "user_1", owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if payload.Restored != 1 {
		t.Fatalf("expected 1 restored mark, got %d", payload.Restored)
	}
	doc := parseDocOrFail(t, payload.Doc)
	if n := richtext.CountHighlightMarks(doc, "marker-1"); n != 1 {
		t.Errorf("expected restored mark in response doc, got %d", n)
	}
}

func TestLoadDocumentSkipsStaleHighlights(t *testing.T) {
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}
	fs := &fakeStore{
		listHighlightsForOwnerFn: func(ctx context.Context, o store.OwnerRef) ([]store.Highlight, error) {
			return []store.Highlight{{
				ID: "hl_1", Owner: owner, UserID: "user_1", MarkerID: "marker-1",
				Text: "HELLO", StartOffset: 0, EndOffset: 5,
			}}, nil
		},
	}
	svc := NewService(fs, nil, nil)

	payload, err := svc.LoadDocument(context.Background(), "user_1", owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if payload.Restored != 0 {
		t.Errorf("edited text must not be re-marked, restored %d", payload.Restored)
	}
}

func TestRemoveHighlightStripsMarkAndDeletesRecord(t *testing.T) {
	owner := store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_1"}
	marked := richtext.ApplyMark(testDoc(), 0, 5, richtext.HighlightMark("marker-1", []string{"focus"}))

	var deleted string
	var saved json.RawMessage
	fs := &fakeStore{
		getHighlightFn: func(ctx context.Context, id string) (store.Highlight, error) {
			return store.Highlight{ID: id, Owner: owner, UserID: "user_1", MarkerID: "marker-1", Text: "hello", EndOffset: 5}, nil
		},
		getOwnerDocumentFn: func(ctx context.Context, o store.OwnerRef) (json.RawMessage, error) {
			return mustMarshal(marked), nil
		},
		saveOwnerDocumentFn: func(ctx context.Context, o store.OwnerRef, doc json.RawMessage) error {
			saved = doc
			return nil
		},
		deleteHighlightFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(fs, nil, nil)

	if err := svc.RemoveHighlight(context.Background(), "user_1", "hl_1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if deleted != "hl_1" {
		t.Errorf("expected record hl_1 deleted, got %q", deleted)
	}
	doc := parseDocOrFail(t, saved)
	if n := richtext.CountHighlightMarks(doc, "marker-1"); n != 0 {
		t.Errorf("expected mark stripped from saved doc, found %d", n)
	}
}

func TestRemoveHighlightHidesOtherUsersRecords(t *testing.T) {
	fs := &fakeStore{
		getHighlightFn: func(ctx context.Context, id string) (store.Highlight, error) {
			return store.Highlight{ID: id, UserID: "user_9"}, nil
		},
	}
	svc := NewService(fs, nil, nil)

	err := svc.RemoveHighlight(context.Background(), "user_1", "hl_1")
	assertDomainError(t, err, 404, "NOT_FOUND")
}

func TestAllTaggedContentIncludesEmptyTags(t *testing.T) {
	owner := store.OwnerRef{Kind: store.OwnerChapter, ID: "ch_1"}
	fs := &fakeStore{
		listTagsFn: func(ctx context.Context, userID string) ([]store.Tag, error) {
			return []store.Tag{
				{ID: "tag_1", Name: "learning"},
				{ID: "tag_2", Name: "someday"},
			}, nil
		},
		listHighlightsForTagFn: func(ctx context.Context, userID, tagID string) ([]store.Highlight, error) {
			if tagID == "tag_1" {
				return []store.Highlight{{ID: "hl_1", Owner: owner, UserID: userID, Text: "hello"}}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(fs, nil, nil)

	groups, err := svc.AllTaggedContent(context.Background(), "user_1", 0)
	if err != nil {
		t.Fatalf("grouped view: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].HighlightCount != 1 || len(groups[0].Content) != 1 {
		t.Errorf("first group count mismatch: %+v", groups[0])
	}
	if groups[1].HighlightCount != 0 {
		t.Errorf("empty tag must report count 0, got %d", groups[1].HighlightCount)
	}
	if groups[1].Content == nil || len(groups[1].Content) != 0 {
		t.Errorf("empty tag must carry an empty content list, got %#v", groups[1].Content)
	}
	for _, g := range groups {
		if g.HighlightCount != len(g.Content) {
			t.Errorf("count %d does not match content length %d for %s", g.HighlightCount, len(g.Content), g.Tag.Name)
		}
	}
}

func TestAllTaggedContentFiltersByYear(t *testing.T) {
	fs := &fakeStore{
		listTagsFn: func(ctx context.Context, userID string) ([]store.Tag, error) {
			return []store.Tag{{ID: "tag_1", Name: "learning"}}, nil
		},
		listHighlightsForTagFn: func(ctx context.Context, userID, tagID string) ([]store.Highlight, error) {
			return []store.Highlight{
				{ID: "hl_1", Owner: store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_2025"}, UserID: userID},
				{ID: "hl_2", Owner: store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_2026"}, UserID: userID},
			}, nil
		},
		resolveSourceFn: func(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
			year := 2026
			if owner.ID == "dl_2025" {
				year = 2025
			}
			return store.ContentSource{Year: year, Section: store.SectionDailyLogs, ItemID: owner.ID}, "user_1", nil
		},
	}
	svc := NewService(fs, nil, nil)

	groups, err := svc.AllTaggedContent(context.Background(), "user_1", 2025)
	if err != nil {
		t.Fatalf("grouped view: %v", err)
	}
	if len(groups) != 1 || groups[0].HighlightCount != 1 {
		t.Fatalf("expected a single 2025 entry, got %+v", groups)
	}
	if groups[0].Content[0].ID != "hl_1" {
		t.Errorf("wrong highlight survived the year filter: %s", groups[0].Content[0].ID)
	}
}

func TestAllTaggedContentDropsUnresolvableOwners(t *testing.T) {
	fs := &fakeStore{
		listTagsFn: func(ctx context.Context, userID string) ([]store.Tag, error) {
			return []store.Tag{{ID: "tag_1", Name: "learning"}}, nil
		},
		listHighlightsForTagFn: func(ctx context.Context, userID, tagID string) ([]store.Highlight, error) {
			return []store.Highlight{
				{ID: "hl_gone", Owner: store.OwnerRef{Kind: store.OwnerDailyLog, ID: "dl_gone"}, UserID: userID},
			}, nil
		},
		resolveSourceFn: func(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error) {
			return store.ContentSource{}, "", store.ErrOwnerNotFound
		},
	}
	svc := NewService(fs, nil, nil)

	groups, err := svc.AllTaggedContent(context.Background(), "user_1", 0)
	if err != nil {
		t.Fatalf("grouped view: %v", err)
	}
	if groups[0].HighlightCount != 0 || len(groups[0].Content) != 0 {
		t.Errorf("unresolvable owners must be dropped, got %+v", groups[0])
	}
}

func TestCreateTagValidatesName(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil)

	tests := []struct {
		name    string
		tagName string
		wantErr bool
	}{
		{name: "valid", tagName: "learning", wantErr: false},
		{name: "valid with spaces", tagName: "deep work", wantErr: false},
		{name: "empty", tagName: "", wantErr: true},
		{name: "whitespace only", tagName: "   ", wantErr: true},
		{name: "too long", tagName: strings.Repeat("x", 51), wantErr: true},
		{name: "illegal chars", tagName: "tag/with/slashes", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTag(context.Background(), "user_1", tc.tagName)
			if tc.wantErr && err == nil {
				t.Errorf("expected %q to be rejected", tc.tagName)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected %q to be accepted: %v", tc.tagName, err)
			}
		})
	}
}

func TestSearchUnavailableWithoutIndex(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, nil)

	_, err := svc.Search(context.Background(), search.Query{Text: "hello", UserID: "user_1"})
	assertDomainError(t, err, 503, "SEARCH_UNAVAILABLE")
}

func assertDomainError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Status != status || domainErr.Code != code {
		t.Errorf("expected %d %s, got %d %s", status, code, domainErr.Status, domainErr.Code)
	}
}
