package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"chronomind/api/internal/export"
	"chronomind/api/internal/highlight"
	"chronomind/api/internal/richtext"
	"chronomind/api/internal/search"
	"chronomind/api/internal/store"
)

type dataStore interface {
	EnsureUserByName(ctx context.Context, name string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	ListTags(ctx context.Context, userID string) ([]store.Tag, error)
	GetTag(ctx context.Context, userID, tagID string) (store.Tag, error)
	CreateTag(ctx context.Context, userID, name string) (store.Tag, error)
	GetOrCreateTags(ctx context.Context, userID string, names []string) ([]store.Tag, error)
	DeleteTag(ctx context.Context, userID, tagID string) error
	CreateHighlight(ctx context.Context, h store.Highlight) (store.Highlight, error)
	GetHighlight(ctx context.Context, highlightID string) (store.Highlight, error)
	DeleteHighlight(ctx context.Context, highlightID string) error
	ListHighlightsForOwner(ctx context.Context, owner store.OwnerRef) ([]store.Highlight, error)
	ListHighlightsForTag(ctx context.Context, userID, tagID string) ([]store.Highlight, error)
	ListHighlightsForUser(ctx context.Context, userID string) ([]store.Highlight, error)
	ResolveSource(ctx context.Context, owner store.OwnerRef) (store.ContentSource, string, error)
	GetOwnerDocument(ctx context.Context, owner store.OwnerRef) (json.RawMessage, error)
	SaveOwnerDocument(ctx context.Context, owner store.OwnerRef, doc json.RawMessage) error
	Ping(ctx context.Context) error
}

// searchIndex is the slice of the search service the app layer uses. Nil means
// search is not configured; operations degrade rather than fail.
type searchIndex interface {
	Search(q search.Query) search.Response
	IndexHighlight(record search.HighlightRecord)
	DeleteHighlight(id string)
	Reindex(records []search.HighlightRecord) error
}

// tagViewCache caches the grouped tagged-content view per user. Nil disables
// caching.
type tagViewCache interface {
	GetGrouped(ctx context.Context, userID string) ([]store.TagGroup, bool)
	SetGrouped(ctx context.Context, userID string, groups []store.TagGroup)
	Invalidate(ctx context.Context, userID string)
}

type Service struct {
	store  dataStore
	search searchIndex
	cache  tagViewCache
}

func NewService(store dataStore, search searchIndex, cache tagViewCache) *Service {
	return &Service{store: store, search: search, cache: cache}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// EnsureUser looks up or creates a user by display name.
func (s *Service) EnsureUser(ctx context.Context, name string) (store.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.User{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	user, err := s.store.EnsureUserByName(ctx, name)
	if err != nil {
		return store.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// User returns the user for an identity header value.
func (s *Service) User(ctx context.Context, userID string) (store.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// DocumentPayload is the response for document reads: the owner's document
// with any missing highlight marks reconciled back in.
type DocumentPayload struct {
	Owner      store.OwnerRef    `json:"owner"`
	Doc        json.RawMessage   `json:"doc"`
	Highlights []store.Highlight `json:"highlights"`
	Restored   int               `json:"restored"`
}

// LoadDocument loads an owner's document and reconciles its highlight marks
// against the annotation records. Restoration happens in the response only;
// the stored document is not rewritten on read.
func (s *Service) LoadDocument(ctx context.Context, userID string, owner store.OwnerRef) (DocumentPayload, error) {
	if err := s.checkOwner(ctx, userID, owner); err != nil {
		return DocumentPayload{}, err
	}

	raw, err := s.store.GetOwnerDocument(ctx, owner)
	if err != nil {
		return DocumentPayload{}, err
	}
	doc, err := parseDoc(raw)
	if err != nil {
		return DocumentPayload{}, err
	}

	highlights, err := s.store.ListHighlightsForOwner(ctx, owner)
	if err != nil {
		return DocumentPayload{}, fmt.Errorf("list highlights: %w", err)
	}

	restored, applied := highlight.NewRestorer().Restore(doc, owner, highlights)

	out, err := json.Marshal(restored)
	if err != nil {
		return DocumentPayload{}, fmt.Errorf("encode document: %w", err)
	}
	return DocumentPayload{
		Owner:      owner,
		Doc:        out,
		Highlights: highlights,
		Restored:   applied,
	}, nil
}

// SaveDocument replaces an owner's document.
func (s *Service) SaveDocument(ctx context.Context, userID string, owner store.OwnerRef, raw json.RawMessage) error {
	if err := s.checkOwner(ctx, userID, owner); err != nil {
		return err
	}
	if _, err := parseDoc(raw); err != nil {
		return err
	}
	if err := s.store.SaveOwnerDocument(ctx, owner, raw); err != nil {
		return err
	}
	return nil
}

// CaptureInput is a highlight capture request: a selection range over the
// owner's current document plus the tags to attach.
type CaptureInput struct {
	From int      `json:"from"`
	To   int      `json:"to"`
	Tags []string `json:"tags"`
}

// CaptureHighlight runs the full capture flow server-side: select the range
// on the owner's stored document, apply the mark optimistically, persist the
// annotation, and save the marked document. Any persistence failure rolls the
// mark back and leaves the stored document untouched.
func (s *Service) CaptureHighlight(ctx context.Context, userID string, owner store.OwnerRef, input CaptureInput) (store.Highlight, error) {
	if err := s.checkOwner(ctx, userID, owner); err != nil {
		return store.Highlight{}, err
	}

	tags := make([]string, 0, len(input.Tags))
	for _, t := range input.Tags {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		return store.Highlight{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one tag is required", nil)
	}
	for _, t := range tags {
		if err := store.ValidateTagName(t); err != nil {
			return store.Highlight{}, domainError(http.StatusUnprocessableEntity, "INVALID_TAG_NAME", err.Error(), map[string]any{"tag": t})
		}
	}

	raw, err := s.store.GetOwnerDocument(ctx, owner)
	if err != nil {
		return store.Highlight{}, err
	}
	doc, err := parseDoc(raw)
	if err != nil {
		return store.Highlight{}, err
	}

	surface := highlight.NewSurface(doc, owner, userID, s.store, s.store)
	if err := surface.Select(input.From, input.To); err != nil {
		if errors.Is(err, highlight.ErrInvalidSelection) {
			return store.Highlight{}, domainError(http.StatusUnprocessableEntity, "INVALID_SELECTION", "selection range is outside the document", map[string]any{"from": input.From, "to": input.To})
		}
		return store.Highlight{}, err
	}
	if err := surface.OpenMenu(); err != nil {
		return store.Highlight{}, err
	}
	for _, t := range tags {
		surface.AddTag(t)
	}

	h, ok, err := surface.Commit(ctx)
	if err != nil {
		var commitErr *highlight.CommitError
		if errors.As(err, &commitErr) {
			return store.Highlight{}, fmt.Errorf("capture highlight: %w", err)
		}
		return store.Highlight{}, err
	}
	if !ok {
		return store.Highlight{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "nothing to capture", nil)
	}

	// The annotation record is durable; saving the marked document is best
	// effort on top of it. A failed save is repaired by restoration on the
	// next read.
	marked, err := json.Marshal(surface.Doc())
	if err == nil {
		err = s.store.SaveOwnerDocument(ctx, owner, marked)
	}
	if err != nil {
		log.Printf("capture: save marked document for %s/%s: %v", owner.Kind, owner.ID, err)
	}

	s.indexHighlight(ctx, h)
	s.invalidate(ctx, userID)
	return h, nil
}

// OwnerHighlights lists the annotation records for one owner.
func (s *Service) OwnerHighlights(ctx context.Context, userID string, owner store.OwnerRef) ([]store.Highlight, error) {
	if err := s.checkOwner(ctx, userID, owner); err != nil {
		return nil, err
	}
	highlights, err := s.store.ListHighlightsForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	if highlights == nil {
		highlights = []store.Highlight{}
	}
	return highlights, nil
}

// RemoveHighlight deletes an annotation record and strips its mark from the
// owner's stored document.
func (s *Service) RemoveHighlight(ctx context.Context, userID, highlightID string) error {
	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return err
	}
	if h.UserID != userID {
		return notFound("Highlight not found")
	}

	if raw, err := s.store.GetOwnerDocument(ctx, h.Owner); err == nil {
		if doc, parseErr := parseDoc(raw); parseErr == nil {
			stripped := richtext.RemoveMarkByID(doc, h.MarkerID)
			if out, marshalErr := json.Marshal(stripped); marshalErr == nil {
				if saveErr := s.store.SaveOwnerDocument(ctx, h.Owner, out); saveErr != nil {
					log.Printf("remove highlight: save document for %s/%s: %v", h.Owner.Kind, h.Owner.ID, saveErr)
				}
			}
		}
	}

	if err := s.store.DeleteHighlight(ctx, highlightID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteHighlight(highlightID)
	}
	s.invalidate(ctx, userID)
	return nil
}

// Tags lists a user's tags sorted by name.
func (s *Service) Tags(ctx context.Context, userID string) ([]store.Tag, error) {
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	return tags, nil
}

// CreateTag creates a tag, or returns the existing one when the name is
// already taken.
func (s *Service) CreateTag(ctx context.Context, userID, name string) (store.Tag, error) {
	name = strings.TrimSpace(name)
	if err := store.ValidateTagName(name); err != nil {
		return store.Tag{}, domainError(http.StatusUnprocessableEntity, "INVALID_TAG_NAME", err.Error(), nil)
	}
	tag, err := s.store.CreateTag(ctx, userID, name)
	if err != nil {
		return store.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	s.invalidate(ctx, userID)
	return tag, nil
}

// RemoveTag deletes a tag. Highlight associations go with it; the annotation
// records themselves survive.
func (s *Service) RemoveTag(ctx context.Context, userID, tagID string) error {
	if err := s.store.DeleteTag(ctx, userID, tagID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// TaggedContentByTag returns one tag's collected passages across all of the
// user's content, newest first. Year filters to a single journal year; zero
// means all years.
func (s *Service) TaggedContentByTag(ctx context.Context, userID, tagID string, year int) (store.TagGroup, error) {
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if err != nil {
		return store.TagGroup{}, err
	}
	content, err := s.collectForTag(ctx, userID, tagID, year, map[store.OwnerRef]sourceEntry{})
	if err != nil {
		return store.TagGroup{}, err
	}
	return store.TagGroup{
		Tag:            tag,
		HighlightCount: len(content),
		Content:        content,
	}, nil
}

// AllTaggedContent returns every tag the user has, each with its collected
// passages. Tags with nothing tagged still appear, with an empty content
// list. The all-years view is served from cache when one is configured.
func (s *Service) AllTaggedContent(ctx context.Context, userID string, year int) ([]store.TagGroup, error) {
	if year == 0 && s.cache != nil {
		if cached, ok := s.cache.GetGrouped(ctx, userID); ok {
			return cached, nil
		}
	}

	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	groups := make([]store.TagGroup, 0, len(tags))
	sources := map[store.OwnerRef]sourceEntry{}
	for _, tag := range tags {
		content, err := s.collectForTag(ctx, userID, tag.ID, year, sources)
		if err != nil {
			return nil, err
		}
		groups = append(groups, store.TagGroup{
			Tag:            tag,
			HighlightCount: len(content),
			Content:        content,
		})
	}

	if year == 0 && s.cache != nil {
		s.cache.SetGrouped(ctx, userID, groups)
	}
	return groups, nil
}

// ExportDocument renders one owner's document as standalone HTML, with all
// restorable highlight marks applied.
func (s *Service) ExportDocument(ctx context.Context, userID string, owner store.OwnerRef) (string, string, error) {
	src, _, err := s.store.ResolveSource(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrOwnerNotFound) {
			return "", "", notFound("Content item not found")
		}
		return "", "", fmt.Errorf("resolve owner: %w", err)
	}

	payload, err := s.LoadDocument(ctx, userID, owner)
	if err != nil {
		return "", "", err
	}
	doc, err := parseDoc(payload.Doc)
	if err != nil {
		return "", "", err
	}
	return src.ItemTitle, richtext.RenderHTML(doc), nil
}

// ExportTaggedContent renders the grouped view as a downloadable digest.
func (s *Service) ExportTaggedContent(ctx context.Context, userID string, format export.Format, year int) (*export.Result, error) {
	groups, err := s.AllTaggedContent(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := export.Digest(export.Request{UserID: userID, Format: format, Year: year}, user.DisplayName, groups)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html or pdf", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
		}
		return nil, err
	}
	return result, nil
}

// Search runs a full-text search over the user's highlights.
func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	if strings.TrimSpace(q.Text) == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
	}
	return s.search.Search(q), nil
}

// ReindexSearch rebuilds the search index from a user's annotation records.
func (s *Service) ReindexSearch(ctx context.Context, userID string) (int, error) {
	if s.search == nil {
		return 0, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	highlights, err := s.store.ListHighlightsForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list highlights: %w", err)
	}
	records := make([]search.HighlightRecord, 0, len(highlights))
	for _, h := range highlights {
		src, _, err := s.store.ResolveSource(ctx, h.Owner)
		if err != nil {
			log.Printf("reindex: resolve source for %s: %v", h.ID, err)
			continue
		}
		records = append(records, buildRecord(h, src))
	}
	if err := s.search.Reindex(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

type sourceEntry struct {
	src store.ContentSource
	err error
}

// collectForTag loads one tag's highlights and resolves each one's source,
// memoizing owner lookups across tags within a request. Highlights whose
// owner no longer resolves are dropped from the view, not surfaced as errors.
func (s *Service) collectForTag(ctx context.Context, userID, tagID string, year int, sources map[store.OwnerRef]sourceEntry) ([]store.TaggedHighlight, error) {
	highlights, err := s.store.ListHighlightsForTag(ctx, userID, tagID)
	if err != nil {
		return nil, fmt.Errorf("list highlights for tag: %w", err)
	}

	content := make([]store.TaggedHighlight, 0, len(highlights))
	for _, h := range highlights {
		entry, ok := sources[h.Owner]
		if !ok {
			src, _, err := s.store.ResolveSource(ctx, h.Owner)
			entry = sourceEntry{src: src, err: err}
			sources[h.Owner] = entry
		}
		if entry.err != nil {
			log.Printf("tagged content: resolve source for %s/%s: %v", h.Owner.Kind, h.Owner.ID, entry.err)
			continue
		}
		if year != 0 && entry.src.Year != year {
			continue
		}
		content = append(content, store.TaggedHighlight{Highlight: h, Source: entry.src})
	}
	return content, nil
}

// checkOwner verifies the owner exists and belongs to the user. Another
// user's content is reported as not found, never as forbidden.
func (s *Service) checkOwner(ctx context.Context, userID string, owner store.OwnerRef) error {
	_, ownerUserID, err := s.store.ResolveSource(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrOwnerNotFound) {
			return notFound("Content item not found")
		}
		return fmt.Errorf("resolve owner: %w", err)
	}
	if ownerUserID != userID {
		return notFound("Content item not found")
	}
	return nil
}

func (s *Service) indexHighlight(ctx context.Context, h store.Highlight) {
	if s.search == nil {
		return
	}
	src, _, err := s.store.ResolveSource(ctx, h.Owner)
	if err != nil {
		log.Printf("search index: resolve source for %s: %v", h.ID, err)
		return
	}
	s.search.IndexHighlight(buildRecord(h, src))
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func buildRecord(h store.Highlight, src store.ContentSource) search.HighlightRecord {
	names := make([]string, 0, len(h.Tags))
	for _, t := range h.Tags {
		names = append(names, t.Name)
	}
	return search.HighlightRecord{
		ID:        h.ID,
		Text:      h.Text,
		Tags:      names,
		UserID:    h.UserID,
		OwnerKind: string(h.Owner.Kind),
		OwnerID:   h.Owner.ID,
		Section:   src.Section,
		Year:      src.Year,
		ItemTitle: src.ItemTitle,
	}
}

func parseDoc(raw json.RawMessage) (*richtext.Node, error) {
	if len(raw) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "document body is required", nil)
	}
	var doc richtext.Node
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", "document is not valid rich text JSON", nil)
	}
	if doc.Type != richtext.TypeDoc {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", "document root must be a doc node", nil)
	}
	return &doc, nil
}
