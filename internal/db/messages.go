package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/model"
)

// AppendMessage stores m at the end of its conversation, assigning ID and
// timestamp.
func (s *Store) AppendMessage(ctx context.Context, m *model.Message) error {
	if m.ConversationID == "" {
		return errors.NewInvalidRequest("message conversation id is required")
	}

	var attachment sql.NullString
	if m.Attachment != nil {
		data, err := json.Marshal(m.Attachment)
		if err != nil {
			return errors.NewInternal(err)
		}
		attachment = sql.NullString{String: string(data), Valid: true}
	}

	id, err := s.newID()
	if err != nil {
		return err
	}
	m.ID = id
	m.Timestamp = s.now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, type, content, attachment_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, string(m.Type), m.Content, attachment, m.Timestamp,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	s.publishMessages(ctx, m.ConversationID)
	return nil
}

// ListMessages returns a conversation's messages in creation order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, type, content, attachment_json, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, seq ASC`, conversationID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []model.Message{}
	for rows.Next() {
		var (
			m          model.Message
			msgType    string
			attachment sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &msgType, &m.Content, &attachment, &m.Timestamp); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.Type = model.MessageType(msgType)
		if attachment.Valid {
			var a model.Attachment
			if err := json.Unmarshal([]byte(attachment.String), &a); err != nil {
				return nil, errors.NewInternal(err)
			}
			m.Attachment = &a
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// DeleteMessages removes every message of a conversation and returns how
// many were deleted.
func (s *Store) DeleteMessages(ctx context.Context, conversationID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	s.publishMessages(ctx, conversationID)
	return n, nil
}
