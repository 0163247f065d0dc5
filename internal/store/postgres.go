package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"chronomind/api/internal/util"
)

var (
	// ErrOwnerNotFound means a highlight's target owner does not exist.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrInvalidRange means highlight offsets are rejected before persistence.
	ErrInvalidRange = errors.New("invalid highlight range")
	// ErrInvalidTagName means a tag name failed length or charset validation.
	ErrInvalidTagName = errors.New("invalid tag name")
)

// maxHighlightChars caps highlight text in characters, not bytes.
const maxHighlightChars = 5000

var tagNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _-]{1,50}$`)

// ValidateTagName enforces the 1-50 char restricted charset for tag names.
func ValidateTagName(name string) error {
	if !tagNamePattern.MatchString(name) {
		return ErrInvalidTagName
	}
	return nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at FROM users WHERE display_name = $1`, name,
	).Scan(&user.ID, &user.DisplayName, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (display_name) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, created_at
	`, util.NewID("usr"), name).Scan(&user.ID, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at FROM users WHERE id = $1`, userID,
	).Scan(&user.ID, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ---------------------------------------------------------------------------
// Tags

func (s *PostgresStore) ListTags(ctx context.Context, userID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, created_at FROM tags
		WHERE user_id = $1
		ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *PostgresStore) GetTag(ctx context.Context, userID, tagID string) (Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at FROM tags WHERE id = $1 AND user_id = $2
	`, tagID, userID).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

func (s *PostgresStore) CreateTag(ctx context.Context, userID, name string) (Tag, error) {
	name = strings.TrimSpace(name)
	if err := ValidateTagName(name); err != nil {
		return Tag{}, err
	}

	var tag Tag
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, user_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, user_id, name, created_at
	`, util.NewID("tag"), userID, name).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// GetOrCreateTags resolves tag names to identities, creating missing tags.
// Names are trimmed; blanks are dropped; order of the input is preserved.
func (s *PostgresStore) GetOrCreateTags(ctx context.Context, userID string, names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := s.CreateTag(ctx, userID, name)
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// DeleteTag removes a tag. Highlight associations cascade away; the
// highlights themselves survive.
func (s *PostgresStore) DeleteTag(ctx context.Context, userID, tagID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = $1 AND user_id = $2`, tagID, userID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---------------------------------------------------------------------------
// Highlights

// CreateHighlight persists a captured highlight. The owner must exist
// (ErrOwnerNotFound) and offsets must be sane (ErrInvalidRange). The
// highlight's user is derived from the owner chain, and tag links are written
// in the same transaction.
func (s *PostgresStore) CreateHighlight(ctx context.Context, h Highlight) (Highlight, error) {
	if h.StartOffset < 0 || h.EndOffset < h.StartOffset {
		return Highlight{}, ErrInvalidRange
	}
	// Length limit counts characters, matching the char_length CHECK on the
	// column. Byte length would reject long multibyte snippets.
	if n := utf8.RuneCountInString(h.Text); n == 0 || n > maxHighlightChars {
		return Highlight{}, ErrInvalidRange
	}

	_, ownerUserID, err := s.ResolveSource(ctx, h.Owner)
	if errors.Is(err, ErrOwnerNotFound) {
		return Highlight{}, ErrOwnerNotFound
	}
	if err != nil {
		return Highlight{}, fmt.Errorf("resolve owner: %w", err)
	}

	if h.ID == "" {
		h.ID = util.NewID("hl")
	}
	h.UserID = ownerUserID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Highlight{}, fmt.Errorf("begin highlight tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO highlights (id, owner_kind, owner_id, user_id, marker_id, text, start_offset, end_offset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, h.ID, h.Owner.Kind, h.Owner.ID, h.UserID, h.MarkerID, h.Text, h.StartOffset, h.EndOffset).Scan(&h.CreatedAt)
	if err != nil {
		return Highlight{}, fmt.Errorf("insert highlight: %w", err)
	}

	for _, tag := range h.Tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO highlight_tags (highlight_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, h.ID, tag.ID); err != nil {
			return Highlight{}, fmt.Errorf("link tag %s: %w", tag.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Highlight{}, fmt.Errorf("commit highlight: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) GetHighlight(ctx context.Context, highlightID string) (Highlight, error) {
	var h Highlight
	err := s.db.QueryRowContext(ctx, `
		SELECT `+highlightColumns+` FROM highlights WHERE id = $1
	`, highlightID).Scan(&h.ID, &h.Owner.Kind, &h.Owner.ID, &h.UserID, &h.MarkerID,
		&h.Text, &h.StartOffset, &h.EndOffset, &h.CreatedAt)
	if err != nil {
		return Highlight{}, err
	}
	tags, err := s.highlightTags(ctx, h.ID)
	if err != nil {
		return Highlight{}, err
	}
	h.Tags = tags
	return h, nil
}

func (s *PostgresStore) DeleteHighlight(ctx context.Context, highlightID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = $1`, highlightID)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	return nil
}

const highlightColumns = `id, owner_kind, owner_id, user_id, marker_id, text, start_offset, end_offset, created_at`

func (s *PostgresStore) ListHighlightsForOwner(ctx context.Context, owner OwnerRef) ([]Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY created_at ASC
	`, owner.Kind, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list highlights for owner: %w", err)
	}
	return s.scanHighlights(ctx, rows)
}

func (s *PostgresStore) ListHighlightsForTag(ctx context.Context, userID, tagID string) ([]Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+highlightColumnsQualified("h")+` FROM highlights h
		JOIN highlight_tags ht ON ht.highlight_id = h.id
		WHERE ht.tag_id = $1 AND h.user_id = $2
		ORDER BY h.created_at DESC
	`, tagID, userID)
	if err != nil {
		return nil, fmt.Errorf("list highlights for tag: %w", err)
	}
	return s.scanHighlights(ctx, rows)
}

func (s *PostgresStore) ListHighlightsForUser(ctx context.Context, userID string) ([]Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list highlights for user: %w", err)
	}
	return s.scanHighlights(ctx, rows)
}

func highlightColumnsQualified(alias string) string {
	parts := strings.Split(highlightColumns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

func (s *PostgresStore) scanHighlights(ctx context.Context, rows *sql.Rows) ([]Highlight, error) {
	defer rows.Close()

	var highlights []Highlight
	for rows.Next() {
		var h Highlight
		if err := rows.Scan(&h.ID, &h.Owner.Kind, &h.Owner.ID, &h.UserID, &h.MarkerID,
			&h.Text, &h.StartOffset, &h.EndOffset, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range highlights {
		tags, err := s.highlightTags(ctx, highlights[i].ID)
		if err != nil {
			return nil, err
		}
		highlights[i].Tags = tags
	}
	return highlights, nil
}

func (s *PostgresStore) highlightTags(ctx context.Context, highlightID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.created_at
		FROM highlight_tags ht
		JOIN tags t ON t.id = ht.tag_id
		WHERE ht.highlight_id = $1
		ORDER BY t.name ASC
	`, highlightID)
	if err != nil {
		return nil, fmt.Errorf("list highlight tags: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan highlight tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ---------------------------------------------------------------------------
// Owner chain resolution

// ResolveSource climbs an owner's entity chain up to its Year and returns the
// derived content source plus the owning user's id. A broken chain (owner or
// an ancestor deleted) is reported as ErrOwnerNotFound.
func (s *PostgresStore) ResolveSource(ctx context.Context, owner OwnerRef) (ContentSource, string, error) {
	src := ContentSource{Section: owner.Kind.Section(), ItemID: owner.ID}
	var userID string

	switch owner.Kind {
	case OwnerDailyLog:
		var logDate time.Time
		err := s.db.QueryRowContext(ctx, `
			SELECT d.log_date, y.year, y.user_id
			FROM daily_logs d JOIN years y ON y.id = d.year_id
			WHERE d.id = $1
		`, owner.ID).Scan(&logDate, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = logDate.Format("January 2, 2006")

	case OwnerQuarterlyReflection:
		var quarter int
		err := s.db.QueryRowContext(ctx, `
			SELECT q.quarter, y.year, y.user_id
			FROM quarterly_reflections q JOIN years y ON y.id = q.year_id
			WHERE q.id = $1
		`, owner.ID).Scan(&quarter, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = fmt.Sprintf("Q%d Reflection", quarter)

	case OwnerGoal:
		var title string
		err := s.db.QueryRowContext(ctx, `
			SELECT g.title, y.year, y.user_id
			FROM goals g JOIN years y ON y.id = g.year_id
			WHERE g.id = $1
		`, owner.ID).Scan(&title, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = title

	case OwnerTask:
		var goalTitle, taskTitle string
		err := s.db.QueryRowContext(ctx, `
			SELECT g.title, t.title, y.year, y.user_id
			FROM tasks t
			JOIN goals g ON g.id = t.goal_id
			JOIN years y ON y.id = g.year_id
			WHERE t.id = $1
		`, owner.ID).Scan(&goalTitle, &taskTitle, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = goalTitle + " > " + taskTitle

	case OwnerSubtask:
		var goalTitle, taskTitle, subtaskTitle string
		err := s.db.QueryRowContext(ctx, `
			SELECT g.title, t.title, st.title, y.year, y.user_id
			FROM subtasks st
			JOIN tasks t ON t.id = st.task_id
			JOIN goals g ON g.id = t.goal_id
			JOIN years y ON y.id = g.year_id
			WHERE st.id = $1
		`, owner.ID).Scan(&goalTitle, &taskTitle, &subtaskTitle, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = goalTitle + " > " + taskTitle + " > " + subtaskTitle

	case OwnerChapter:
		var genreName, bookTitle, chapterTitle string
		err := s.db.QueryRowContext(ctx, `
			SELECT gn.name, b.title, c.title, y.year, y.user_id
			FROM chapters c
			JOIN books b ON b.id = c.book_id
			JOIN genres gn ON gn.id = b.genre_id
			JOIN years y ON y.id = gn.year_id
			WHERE c.id = $1
		`, owner.ID).Scan(&genreName, &bookTitle, &chapterTitle, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = genreName + " > " + bookTitle + " > " + chapterTitle

	case OwnerLesson:
		var title string
		err := s.db.QueryRowContext(ctx, `
			SELECT l.title, y.year, y.user_id
			FROM lessons l JOIN years y ON y.id = l.year_id
			WHERE l.id = $1
		`, owner.ID).Scan(&title, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = title

	case OwnerCreativeNote:
		var createdAt time.Time
		err := s.db.QueryRowContext(ctx, `
			SELECT n.created_at, y.year, y.user_id
			FROM creative_notes n JOIN years y ON y.id = n.year_id
			WHERE n.id = $1
		`, owner.ID).Scan(&createdAt, &src.Year, &userID)
		if err != nil {
			return ContentSource{}, "", resolveErr(err)
		}
		src.ItemTitle = createdAt.Format("January 2, 2006")

	default:
		return ContentSource{}, "", fmt.Errorf("unknown owner kind %q", owner.Kind)
	}

	return src, userID, nil
}

func resolveErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOwnerNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Owner documents

var ownerTables = map[OwnerKind]string{
	OwnerDailyLog:            "daily_logs",
	OwnerQuarterlyReflection: "quarterly_reflections",
	OwnerGoal:                "goals",
	OwnerTask:                "tasks",
	OwnerSubtask:             "subtasks",
	OwnerChapter:             "chapters",
	OwnerLesson:              "lessons",
	OwnerCreativeNote:        "creative_notes",
}

// GetOwnerDocument loads an owner's stored rich-text document. A missing
// owner is sql.ErrNoRows; an owner with no document yet returns nil.
func (s *PostgresStore) GetOwnerDocument(ctx context.Context, owner OwnerRef) (json.RawMessage, error) {
	table, ok := ownerTables[owner.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown owner kind %q", owner.Kind)
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table), owner.ID,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveOwnerDocument replaces an owner's document wholesale.
func (s *PostgresStore) SaveOwnerDocument(ctx context.Context, owner OwnerRef, doc json.RawMessage) error {
	table, ok := ownerTables[owner.Kind]
	if !ok {
		return fmt.Errorf("unknown owner kind %q", owner.Kind)
	}
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET doc = $1 WHERE id = $2`, table), []byte(doc), owner.ID)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if affected == 0 {
		return ErrOwnerNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Owner entity inserts (seeding, tests, CLI)

func (s *PostgresStore) EnsureYear(ctx context.Context, userID string, year int) (Year, error) {
	var y Year
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO years (id, user_id, year)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, year) DO UPDATE SET year = EXCLUDED.year
		RETURNING id, user_id, year, created_at
	`, util.NewID("yr"), userID, year).Scan(&y.ID, &y.UserID, &y.Year, &y.CreatedAt)
	if err != nil {
		return Year{}, fmt.Errorf("ensure year: %w", err)
	}
	return y, nil
}

func (s *PostgresStore) InsertDailyLog(ctx context.Context, yearID string, logDate time.Time) (DailyLog, error) {
	log := DailyLog{ID: util.NewID("dl"), YearID: yearID, LogDate: logDate}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_logs (id, year_id, log_date) VALUES ($1, $2, $3)`,
		log.ID, log.YearID, log.LogDate)
	if err != nil {
		return DailyLog{}, fmt.Errorf("insert daily log: %w", err)
	}
	return log, nil
}

func (s *PostgresStore) InsertQuarterlyReflection(ctx context.Context, yearID string, quarter int) (QuarterlyReflection, error) {
	q := QuarterlyReflection{ID: util.NewID("qr"), YearID: yearID, Quarter: quarter}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quarterly_reflections (id, year_id, quarter) VALUES ($1, $2, $3)`,
		q.ID, q.YearID, q.Quarter)
	if err != nil {
		return QuarterlyReflection{}, fmt.Errorf("insert quarterly reflection: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) InsertGoal(ctx context.Context, yearID, title string) (Goal, error) {
	g := Goal{ID: util.NewID("goal"), YearID: yearID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, year_id, title) VALUES ($1, $2, $3)`, g.ID, g.YearID, g.Title)
	if err != nil {
		return Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, goalID, title string) (Task, error) {
	t := Task{ID: util.NewID("task"), GoalID: goalID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, goal_id, title) VALUES ($1, $2, $3)`, t.ID, t.GoalID, t.Title)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) InsertSubtask(ctx context.Context, taskID, title string) (Subtask, error) {
	st := Subtask{ID: util.NewID("sub"), TaskID: taskID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subtasks (id, task_id, title) VALUES ($1, $2, $3)`, st.ID, st.TaskID, st.Title)
	if err != nil {
		return Subtask{}, fmt.Errorf("insert subtask: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) InsertGenre(ctx context.Context, yearID, name string) (Genre, error) {
	g := Genre{ID: util.NewID("gen"), YearID: yearID, Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO genres (id, year_id, name) VALUES ($1, $2, $3)`, g.ID, g.YearID, g.Name)
	if err != nil {
		return Genre{}, fmt.Errorf("insert genre: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) InsertBook(ctx context.Context, genreID, title string) (Book, error) {
	b := Book{ID: util.NewID("book"), GenreID: genreID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (id, genre_id, title) VALUES ($1, $2, $3)`, b.ID, b.GenreID, b.Title)
	if err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) InsertChapter(ctx context.Context, bookID, title string) (Chapter, error) {
	c := Chapter{ID: util.NewID("ch"), BookID: bookID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (id, book_id, title) VALUES ($1, $2, $3)`, c.ID, c.BookID, c.Title)
	if err != nil {
		return Chapter{}, fmt.Errorf("insert chapter: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) InsertLesson(ctx context.Context, yearID, title string) (Lesson, error) {
	l := Lesson{ID: util.NewID("les"), YearID: yearID, Title: title}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, year_id, title) VALUES ($1, $2, $3)`, l.ID, l.YearID, l.Title)
	if err != nil {
		return Lesson{}, fmt.Errorf("insert lesson: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) InsertCreativeNote(ctx context.Context, yearID string) (CreativeNote, error) {
	n := CreativeNote{ID: util.NewID("cn"), YearID: yearID}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO creative_notes (id, year_id) VALUES ($1, $2) RETURNING created_at`,
		n.ID, n.YearID).Scan(&n.CreatedAt)
	if err != nil {
		return CreativeNote{}, fmt.Errorf("insert creative note: %w", err)
	}
	return n, nil
}
