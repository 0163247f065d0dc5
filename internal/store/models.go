package store

import "time"

// OwnerKind enumerates the eight content entities a highlight can belong to.
type OwnerKind string

const (
	OwnerDailyLog            OwnerKind = "dailyLog"
	OwnerQuarterlyReflection OwnerKind = "quarterlyReflection"
	OwnerGoal                OwnerKind = "goal"
	OwnerTask                OwnerKind = "task"
	OwnerSubtask             OwnerKind = "subtask"
	OwnerChapter             OwnerKind = "chapter"
	OwnerLesson              OwnerKind = "lesson"
	OwnerCreativeNote        OwnerKind = "creativeNote"
)

var ownerKinds = map[OwnerKind]struct{}{
	OwnerDailyLog:            {},
	OwnerQuarterlyReflection: {},
	OwnerGoal:                {},
	OwnerTask:                {},
	OwnerSubtask:             {},
	OwnerChapter:             {},
	OwnerLesson:              {},
	OwnerCreativeNote:        {},
}

// ParseOwnerKind validates a wire-format owner kind.
func ParseOwnerKind(s string) (OwnerKind, bool) {
	kind := OwnerKind(s)
	_, ok := ownerKinds[kind]
	return kind, ok
}

// OwnerRef names exactly one owning content item. A tagged pair instead of
// eight nullable fields makes "exactly one owner" structural.
type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// The six fixed journal sections.
const (
	SectionDailyLogs            = "daily-logs"
	SectionQuarterlyReflections = "quarterly-reflections"
	SectionYearlyGoals          = "yearly-goals"
	SectionBookNotes            = "book-notes"
	SectionLessonsLearned       = "lessons-learned"
	SectionCreativeDump         = "creative-dump"
)

// Section returns the journal section an owner kind belongs to.
func (k OwnerKind) Section() string {
	switch k {
	case OwnerDailyLog:
		return SectionDailyLogs
	case OwnerQuarterlyReflection:
		return SectionQuarterlyReflections
	case OwnerGoal, OwnerTask, OwnerSubtask:
		return SectionYearlyGoals
	case OwnerChapter:
		return SectionBookNotes
	case OwnerLesson:
		return SectionLessonsLearned
	case OwnerCreativeNote:
		return SectionCreativeDump
	default:
		return ""
	}
}

// KindsForSection inverts Section: the owner kinds whose highlights appear
// under the given section identifier. Unknown sections yield nil.
func KindsForSection(section string) []OwnerKind {
	switch section {
	case SectionDailyLogs:
		return []OwnerKind{OwnerDailyLog}
	case SectionQuarterlyReflections:
		return []OwnerKind{OwnerQuarterlyReflection}
	case SectionYearlyGoals:
		return []OwnerKind{OwnerGoal, OwnerTask, OwnerSubtask}
	case SectionBookNotes:
		return []OwnerKind{OwnerChapter}
	case SectionLessonsLearned:
		return []OwnerKind{OwnerLesson}
	case SectionCreativeDump:
		return []OwnerKind{OwnerCreativeNote}
	default:
		return nil
	}
}

type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}

type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Highlight is the durable annotation record. MarkerID is the identity minted
// at capture time correlating this record to an in-document highlight mark;
// it is independent of the storage id. Offsets are a best-effort position
// hint against the document serialization that existed at capture time: the
// owner's document may be edited afterward, so restoration must verify Text
// against the live range before reapplying. UserID is denormalized from the
// owner chain at creation for search scoping.
type Highlight struct {
	ID          string    `json:"id"`
	Owner       OwnerRef  `json:"owner"`
	UserID      string    `json:"userId"`
	MarkerID    string    `json:"markerId"`
	Text        string    `json:"text"`
	StartOffset int       `json:"startOffset"`
	EndOffset   int       `json:"endOffset"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ContentSource locates a highlight for the cross-year tagged view. Derived
// on read by climbing the owner chain to its Year; never stored.
type ContentSource struct {
	Year      int    `json:"year"`
	Section   string `json:"section"`
	ItemID    string `json:"itemId"`
	ItemTitle string `json:"itemTitle"`
}

// TaggedHighlight is a highlight enriched with its resolved source.
type TaggedHighlight struct {
	Highlight
	Source ContentSource `json:"source"`
}

// TagGroup is one tag's slice of the grouped tagged-content view.
// HighlightCount always equals len(Content).
type TagGroup struct {
	Tag            Tag               `json:"tag"`
	HighlightCount int               `json:"highlightCount"`
	Content        []TaggedHighlight `json:"content"`
}

// Owner entities. Their CRUD is mechanical data management; the store carries
// just enough of them for document persistence and owner-chain resolution.

type Year struct {
	ID        string
	UserID    string
	Year      int
	CreatedAt time.Time
}

type DailyLog struct {
	ID      string
	YearID  string
	LogDate time.Time
}

type QuarterlyReflection struct {
	ID      string
	YearID  string
	Quarter int
}

type Goal struct {
	ID     string
	YearID string
	Title  string
}

type Task struct {
	ID     string
	GoalID string
	Title  string
}

type Subtask struct {
	ID     string
	TaskID string
	Title  string
}

type Genre struct {
	ID     string
	YearID string
	Name   string
}

type Book struct {
	ID      string
	GenreID string
	Title   string
}

type Chapter struct {
	ID     string
	BookID string
	Title  string
}

type Lesson struct {
	ID     string
	YearID string
	Title  string
}

type CreativeNote struct {
	ID        string
	YearID    string
	CreatedAt time.Time
}
