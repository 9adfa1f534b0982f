package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"CollabChatAPI/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `
	m.id, m.conversation_id, m.tenant_id, m.sender_id, m.content, m.message_type,
	m.reply_to_id, m.status, m.edited_at, m.original_content, m.created_at,
	u.first_name, u.last_name, u.avatar_url`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		msg    domain.Message
		first  *string
		last   *string
		avatar *string
	)

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.TenantID, &msg.SenderID, &msg.Content,
		&msg.Type, &msg.ReplyToID, &msg.Status, &msg.EditedAt, &msg.OriginalContent,
		&msg.CreatedAt, &first, &last, &avatar,
	)
	if err != nil {
		return nil, err
	}

	if first != nil || last != nil {
		msg.Sender = &domain.User{
			ID:        msg.SenderID,
			TenantID:  msg.TenantID,
			FirstName: deref(first),
			LastName:  deref(last),
			AvatarURL: deref(avatar),
		}
	}

	return &msg, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (
			id, conversation_id, tenant_id, sender_id, content, message_type,
			reply_to_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ConversationID, msg.TenantID, msg.SenderID, msg.Content,
		msg.Type, msg.ReplyToID, msg.Status, msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO message_attachments (
				id, message_id, filename, original_name, mime_type, size, url,
				thumbnail_url, width, height, duration
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			att.ID, msg.ID, att.FileName, att.OriginalName, att.MimeType,
			att.Size, att.URL, att.ThumbnailURL, att.Width, att.Height, att.Duration,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *MessageRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Message, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1 AND m.tenant_id = $2`, id, tenantID)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadRelations(ctx, []*domain.Message{msg}, true); err != nil {
		return nil, err
	}

	return msg, nil
}

func (r *MessageRepo) Page(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC, m.seq DESC
		LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(ctx, rows, true)
}

func (r *MessageRepo) Search(ctx context.Context, tenantID uuid.UUID, query string, conversationID *uuid.UUID, limit int) ([]domain.Message, error) {
	sql := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.tenant_id = $1 AND m.content ILIKE '%' || $2 || '%'`
	args := []any{tenantID, query}

	if conversationID != nil {
		sql += ` AND m.conversation_id = $3`
		args = append(args, *conversationID)
	}

	sql += ` ORDER BY m.created_at DESC, m.seq DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collect(ctx, rows, false)
}

func (r *MessageRepo) collect(ctx context.Context, rows pgx.Rows, withReads bool) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*domain.Message, len(messages))
	for i := range messages {
		refs[i] = &messages[i]
	}
	if err := r.loadRelations(ctx, refs, withReads); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepo) loadRelations(ctx context.Context, messages []*domain.Message, withReads bool) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(messages))
	byID := make(map[uuid.UUID]*domain.Message, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
		byID[msg.ID] = msg
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, filename, original_name, mime_type, size, url,
			thumbnail_url, width, height, duration
		FROM message_attachments
		WHERE message_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID, &att.MessageID, &att.FileName, &att.OriginalName, &att.MimeType,
			&att.Size, &att.URL, &att.ThumbnailURL, &att.Width, &att.Height, &att.Duration,
		); err != nil {
			rows.Close()
			return err
		}
		if msg, ok := byID[att.MessageID]; ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = ANY($1)
		ORDER BY created_at ASC`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var reaction domain.Reaction
		if err := rows.Scan(&reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		if msg, ok := byID[reaction.MessageID]; ok {
			msg.Reactions = append(msg.Reactions, reaction)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if err := r.loadReplyTargets(ctx, messages); err != nil {
		return err
	}

	if !withReads {
		return nil
	}

	rows, err = r.pool.Query(ctx, `
		SELECT message_id, user_id, read_at
		FROM message_reads
		WHERE message_id = ANY($1)
		ORDER BY read_at ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var receipt domain.ReadReceipt
		if err := rows.Scan(&receipt.MessageID, &receipt.UserID, &receipt.ReadAt); err != nil {
			return err
		}
		if msg, ok := byID[receipt.MessageID]; ok {
			msg.ReadBy = append(msg.ReadBy, receipt)
		}
	}

	return rows.Err()
}

func (r *MessageRepo) loadReplyTargets(ctx context.Context, messages []*domain.Message) error {
	seen := make(map[uuid.UUID]bool)
	var targetIDs []uuid.UUID
	for _, msg := range messages {
		if msg.ReplyToID != nil && !seen[*msg.ReplyToID] {
			seen[*msg.ReplyToID] = true
			targetIDs = append(targetIDs, *msg.ReplyToID)
		}
	}
	if len(targetIDs) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = ANY($1)`, targetIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	targets := make(map[uuid.UUID]*domain.Message, len(targetIDs))
	for rows.Next() {
		target, err := scanMessage(rows)
		if err != nil {
			return err
		}
		targets[target.ID] = target
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, msg := range messages {
		if msg.ReplyToID != nil {
			msg.ReplyTo = targets[*msg.ReplyToID]
		}
	}

	return nil
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT m.id, $2, $3
		FROM messages m
		WHERE m.conversation_id = $1 AND m.sender_id <> $2
		ON CONFLICT (message_id, user_id) DO NOTHING`,
		conversationID, readerID, at,
	)
	if err != nil {
		return err
	}

	// Read-by-anyone semantics: the first receipt flips the coarse status.
	_, err = tx.Exec(ctx, `
		UPDATE messages SET status = 'read'
		WHERE conversation_id = $1 AND sender_id <> $2 AND status <> 'read'`,
		conversationID, readerID,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversation_participants SET last_read_at = $3
		WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, readerID, at,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string, at time.Time) ([]domain.Reaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
			messageID, userID, emoji, at,
		)
		if err != nil {
			return nil, err
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at ASC`, messageID)
	if err != nil {
		return nil, err
	}

	reactions := []domain.Reaction{}
	for rows.Next() {
		var reaction domain.Reaction
		if err := rows.Scan(&reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		reactions = append(reactions, reaction)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reactions, tx.Commit(ctx)
}

func (r *MessageRepo) Edit(ctx context.Context, messageID uuid.UUID, content string, at time.Time) error {
	// COALESCE pins original_content to the pre-first-edit value; later
	// edits never touch it.
	_, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET original_content = COALESCE(original_content, content),
			content = $2,
			edited_at = $3
		WHERE id = $1`, messageID, content, at)
	return err
}

func (r *MessageRepo) Delete(ctx context.Context, messageID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return err
}

func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM messages m
		JOIN conversation_participants cp
			ON cp.conversation_id = m.conversation_id AND cp.user_id = $2
		WHERE m.conversation_id = $1 AND m.sender_id <> $2 AND m.created_at > cp.last_read_at`,
		conversationID, userID,
	).Scan(&count)
	return count, err
}

func (r *MessageRepo) UnreadCounts(ctx context.Context, userID uuid.UUID, conversationIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT m.conversation_id, count(*)
		FROM messages m
		JOIN conversation_participants cp
			ON cp.conversation_id = m.conversation_id AND cp.user_id = $1
		WHERE m.conversation_id = ANY($2) AND m.sender_id <> $1 AND m.created_at > cp.last_read_at
		GROUP BY m.conversation_id`, userID, conversationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}

	return counts, rows.Err()
}

func (r *MessageRepo) UpdateAttachmentPreview(ctx context.Context, attachmentID uuid.UUID, thumbnailURL string, width, height int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE message_attachments
		SET thumbnail_url = $2, width = $3, height = $4
		WHERE id = $1`, attachmentID, thumbnailURL, width, height)
	return err
}
