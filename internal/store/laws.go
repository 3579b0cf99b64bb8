package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

// ErrUnknownCategory is returned when a submission names a category that
// does not exist.
var ErrUnknownCategory = errors.New("unknown category")

// webSubmissionSource marks laws that arrived through the API.
const webSubmissionSource = "web-submission"

// GetLaw returns a published law with its vote tallies, attributions and
// categories. A missing or unpublished law yields (nil, nil).
func (s *Store) GetLaw(ctx context.Context, id int64) (*core.Law, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		law        core.Law
		title      sql.NullString
		filePath   sql.NullString
		lineNumber sql.NullInt64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT
			l.id,
			l.title,
			l.text,
			l.first_seen_file_path,
			l.first_seen_line_number,
			(SELECT COUNT(*) FROM votes v WHERE v.law_id = l.id AND v.vote_type = 'up'),
			(SELECT COUNT(*) FROM votes v WHERE v.law_id = l.id AND v.vote_type = 'down')
		FROM laws l
		WHERE l.id = ? AND l.status = ?
		LIMIT 1
	`, id, string(core.LawStatusPublished))

	if err := row.Scan(&law.ID, &title, &law.Text, &filePath, &lineNumber, &law.Upvotes, &law.Downvotes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch law %d: %w", id, err)
	}

	law.Title = nullString(title)
	law.FilePath = nullString(filePath)
	if lineNumber.Valid {
		n := lineNumber.Int64
		law.LineNumber = &n
	}

	attributions, err := s.lawAttributions(ctx, id)
	if err != nil {
		return nil, err
	}
	law.Attributions = attributions

	categoryIDs, err := s.lawCategoryIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	law.CategoryIDs = categoryIDs
	if len(categoryIDs) > 0 {
		primary := categoryIDs[0]
		law.CategoryID = &primary
	}

	return &law, nil
}

func (s *Store) lawAttributions(ctx context.Context, lawID int64) ([]core.Attribution, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, contact_type, contact_value, note
		FROM attributions
		WHERE law_id = ?
		ORDER BY id
	`, lawID)
	if err != nil {
		return nil, fmt.Errorf("fetch attributions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	attributions := []core.Attribution{}
	for rows.Next() {
		var (
			a            core.Attribution
			contactValue sql.NullString
			note         sql.NullString
		)
		if err := rows.Scan(&a.Name, &a.ContactType, &contactValue, &note); err != nil {
			return nil, fmt.Errorf("scan attribution: %w", err)
		}
		a.ContactValue = nullString(contactValue)
		a.Note = nullString(note)
		attributions = append(attributions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributions: %w", err)
	}
	return attributions, nil
}

func (s *Store) lawCategoryIDs(ctx context.Context, lawID int64) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT category_id FROM law_categories WHERE law_id = ? ORDER BY category_id
	`, lawID)
	if err != nil {
		return nil, fmt.Errorf("fetch law categories: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan law category: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate law categories: %w", err)
	}
	return ids, nil
}

// SubmitLaw stores a submission in review and returns its id. Attribution
// and category links are written in the same transaction.
func (s *Store) SubmitLaw(ctx context.Context, sub core.LawSubmission) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin submission: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if sub.CategoryID > 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, sub.CategoryID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownCategory
		}
		if err != nil {
			return 0, fmt.Errorf("check category: %w", err)
		}
	}

	var lawID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO laws (title, text, status, first_seen_file_path)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, optionalString(sub.Title), sub.Text, string(core.LawStatusInReview), webSubmissionSource).Scan(&lawID)
	if err != nil {
		return 0, fmt.Errorf("insert law: %w", err)
	}

	author := strings.TrimSpace(sub.Author)
	email := strings.TrimSpace(sub.Email)
	if author != "" || email != "" {
		name := author
		if name == "" {
			name = "Anonymous"
		}
		contactType := "text"
		if email != "" {
			contactType = "email"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attributions (law_id, name, contact_type, contact_value)
			VALUES (?, ?, ?, ?)
		`, lawID, name, contactType, optionalString(email)); err != nil {
			return 0, fmt.Errorf("insert attribution: %w", err)
		}
	}

	if sub.CategoryID > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO law_categories (law_id, category_id) VALUES (?, ?)
		`, lawID, sub.CategoryID); err != nil {
			return 0, fmt.Errorf("link category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submission: %w", err)
	}
	return lawID, nil
}

// SetLawStatus moves a law between moderation states. It reports false when
// no law has the id.
func (s *Store) SetLawStatus(ctx context.Context, id int64, status core.LawStatus) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch status {
	case core.LawStatusPublished, core.LawStatusInReview, core.LawStatusRejected:
	default:
		return false, fmt.Errorf("invalid law status %q", status)
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE laws SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return false, fmt.Errorf("update law status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update law status: %w", err)
	}
	return affected > 0, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func optionalString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
