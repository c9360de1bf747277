package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
)

const conversationColumns = `id, persona, locked, custom_title, case_number, title,
	last_message, report_id, created_at, updated_at`

// CreateConversation inserts c, assigning its ID and timestamps.
func (s *Store) CreateConversation(ctx context.Context, c *model.Conversation) error {
	id, err := s.newID()
	if err != nil {
		return err
	}
	now := s.now()
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Persona), boolToInt(c.Locked), c.CustomTitle,
		toNullString(c.CaseNumber), c.Title, c.LastMessage,
		toNullString(c.ReportID), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	s.publishConversations(ctx)
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("conversation", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// UpdateConversation merges patch into the stored conversation in a single
// statement and bumps updated_at. Fields the patch leaves nil keep their
// stored values.
func (s *Store) UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error) {
	var personaArg sql.NullString
	if patch.Persona != nil {
		personaArg = sql.NullString{String: string(*patch.Persona), Valid: true}
	}
	var lockedArg sql.NullInt64
	if patch.Locked != nil {
		lockedArg = sql.NullInt64{Int64: int64(boolToInt(*patch.Locked)), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET persona = COALESCE(?, persona),
			locked = COALESCE(?, locked),
			custom_title = COALESCE(?, custom_title),
			case_number = COALESCE(?, CASE WHEN ? THEN NULL ELSE case_number END),
			title = COALESCE(?, title),
			last_message = COALESCE(?, last_message),
			report_id = COALESCE(?, report_id),
			updated_at = ?
		WHERE id = ?`,
		personaArg, lockedArg, toNullString(patch.CustomTitle),
		toNullString(patch.CaseNumber), boolToInt(patch.ClearCaseNumber),
		toNullString(patch.Title), toNullString(patch.LastMessage), toNullString(patch.ReportID),
		s.now(), id,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if rows == 0 {
		return nil, errors.NewNotFound("conversation", id)
	}

	s.publishConversations(ctx)
	return s.GetConversation(ctx, id)
}

// DeleteConversation removes the conversation row only. Messages and the
// report are deleted separately by the caller.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rows == 0 {
		return errors.NewNotFound("conversation", id)
	}

	s.publishConversations(ctx)
	return nil
}

// ListConversations returns conversations ordered by updated_at descending,
// plus the total count.
func (s *Store) ListConversations(ctx context.Context, limit, offset int) ([]model.Conversation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations
		ORDER BY updated_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	items, err := s.queryConversations(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) queryConversations(ctx context.Context, query string, args ...any) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []model.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var (
		c          model.Conversation
		personaRaw string
		locked     int
		caseNumber sql.NullString
		reportID   sql.NullString
	)
	err := row.Scan(&c.ID, &personaRaw, &locked, &c.CustomTitle, &caseNumber, &c.Title,
		&c.LastMessage, &reportID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Persona = persona.Persona(personaRaw)
	c.Locked = locked != 0
	c.CaseNumber = fromNullString(caseNumber)
	c.ReportID = fromNullString(reportID)
	return &c, nil
}
