package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
	"github.com/hpungsan/mahader/internal/report"
)

const reportColumns = `id, persona, title, content, structured_json, missing_count,
	word_count, status, created_at, updated_at`

// UpsertReport inserts r or merges it over the stored report with the same
// ID. created_at is set only on insert. Returns whether the report was
// created.
func (s *Store) UpsertReport(ctx context.Context, r *model.Report) (bool, error) {
	if r.ID == "" {
		return false, errors.NewInvalidRequest("report id is required")
	}

	var structured sql.NullString
	if r.Structured != nil {
		data, err := json.Marshal(r.Structured)
		if err != nil {
			return false, errors.NewInternal(err)
		}
		structured = sql.NullString{String: string(data), Valid: true}
	}

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reports WHERE id = ?`, r.ID).Scan(&exists); err != nil {
		return false, errors.NewInternal(err)
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			persona = excluded.persona,
			title = excluded.title,
			content = excluded.content,
			structured_json = COALESCE(excluded.structured_json, reports.structured_json),
			missing_count = excluded.missing_count,
			word_count = excluded.word_count,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		r.ID, string(r.Persona), r.Title, r.Content, structured,
		r.Stats.MissingCount, r.Stats.WordCount, string(r.Status), now, now,
	)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	stored, err := s.GetReport(ctx, r.ID)
	if err != nil {
		return false, err
	}
	*r = *stored
	return exists == 0, nil
}

// GetReport retrieves a report by ID (which is its conversation's ID).
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("report", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListReports returns reports ordered by updated_at descending, optionally
// filtered by status.
func (s *Store) ListReports(ctx context.Context, status *model.Status) ([]model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []model.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// DeleteReport removes a report. Deleting a missing report is not an error.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func scanReport(row scanner) (*model.Report, error) {
	var (
		r          model.Report
		personaRaw string
		structured sql.NullString
		status     string
	)
	err := row.Scan(&r.ID, &personaRaw, &r.Title, &r.Content, &structured,
		&r.Stats.MissingCount, &r.Stats.WordCount, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Persona = persona.Persona(personaRaw)
	r.Status = model.Status(status)
	if structured.Valid {
		s, err := report.Decode([]byte(structured.String))
		if err != nil {
			return nil, err
		}
		r.Structured = s
	}
	return &r, nil
}
