package postgres

import (
	"context"
	"errors"
	"time"

	"CollabChatAPI/internal/domain"
	"CollabChatAPI/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

const conversationColumns = `
	c.id, c.tenant_id, c.type, c.name, c.description, c.channel_type, c.is_public,
	c.project_id, c.last_message_content, c.last_message_sender_id, c.last_message_type,
	c.last_message_at, c.is_active, c.created_by, c.created_at, c.updated_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		conv         domain.Conversation
		lastContent  *string
		lastSenderID *uuid.UUID
		lastType     *string
		lastAt       *time.Time
	)

	err := row.Scan(
		&conv.ID, &conv.TenantID, &conv.Type, &conv.Name, &conv.Description,
		&conv.ChannelType, &conv.IsPublic, &conv.ProjectID,
		&lastContent, &lastSenderID, &lastType, &lastAt,
		&conv.IsActive, &conv.CreatedBy, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastContent != nil && lastSenderID != nil && lastAt != nil {
		msgType := domain.MessageText
		if lastType != nil {
			msgType = domain.MessageType(*lastType)
		}
		conv.LastMessage = &domain.LastMessage{
			Content:   *lastContent,
			SenderID:  *lastSenderID,
			Timestamp: *lastAt,
			Type:      msgType,
		}
	}

	return &conv, nil
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var directKey *string
	if conv.Type == domain.ConversationDirect && len(conv.Participants) == 2 {
		key := domain.DirectKey(conv.Participants[0].UserID, conv.Participants[1].UserID)
		directKey = &key
	}

	channelType := conv.ChannelType
	if channelType == "" {
		channelType = domain.ChannelCustom
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (
			id, tenant_id, type, name, description, channel_type, is_public,
			project_id, direct_key, is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		conv.ID, conv.TenantID, conv.Type, conv.Name, conv.Description,
		channelType, conv.IsPublic, conv.ProjectID, directKey,
		conv.IsActive, conv.CreatedBy, conv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateDirect
		}
		return err
	}

	for _, p := range conv.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at, last_read_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (conversation_id, user_id) DO NOTHING`,
			conv.ID, p.UserID, p.Role, p.JoinedAt, p.LastReadAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.id = $1 AND c.tenant_id = $2`, id, tenantID)

	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadParticipants(ctx, []*domain.Conversation{conv}); err != nil {
		return nil, err
	}

	return conv, nil
}

func (r *ConversationRepo) FindDirect(ctx context.Context, tenantID uuid.UUID, directKey string) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.tenant_id = $1 AND c.type = 'direct' AND c.direct_key = $2`, tenantID, directKey)

	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadParticipants(ctx, []*domain.Conversation{conv}); err != nil {
		return nil, err
	}

	return conv, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE c.tenant_id = $1 AND cp.user_id = $2 AND c.is_active
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectWithParticipants(ctx, rows)
}

func (r *ConversationRepo) ListChannels(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.tenant_id = $1 AND c.type = 'channel' AND c.is_active
			AND (c.is_public OR EXISTS (
				SELECT 1 FROM conversation_participants cp
				WHERE cp.conversation_id = c.id AND cp.user_id = $2
			))
		ORDER BY c.name ASC`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectWithParticipants(ctx, rows)
}

func (r *ConversationRepo) collectWithParticipants(ctx context.Context, rows pgx.Rows) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*domain.Conversation, len(conversations))
	for i := range conversations {
		refs[i] = &conversations[i]
	}
	if err := r.loadParticipants(ctx, refs); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *ConversationRepo) loadParticipants(ctx context.Context, conversations []*domain.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(conversations))
	byID := make(map[uuid.UUID]*domain.Conversation, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
		byID[conv.ID] = conv
	}

	rows, err := r.pool.Query(ctx, `
		SELECT cp.conversation_id, cp.user_id, cp.role, cp.joined_at, cp.last_read_at,
			u.id, u.tenant_id, u.first_name, u.last_name, u.email, u.avatar_url, u.role, u.is_active
		FROM conversation_participants cp
		LEFT JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id = ANY($1)
		ORDER BY cp.joined_at ASC`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p        domain.Participant
			userID   *uuid.UUID
			tenantID *uuid.UUID
			first    *string
			last     *string
			email    *string
			avatar   *string
			role     *string
			active   *bool
		)
		if err := rows.Scan(
			&p.ConversationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadAt,
			&userID, &tenantID, &first, &last, &email, &avatar, &role, &active,
		); err != nil {
			return err
		}

		if userID != nil {
			p.User = &domain.User{
				ID:        *userID,
				TenantID:  *tenantID,
				FirstName: *first,
				LastName:  *last,
				Email:     *email,
				AvatarURL: *avatar,
				Role:      *role,
				IsActive:  *active,
			}
		}

		if conv, ok := byID[p.ConversationID]; ok {
			conv.Participants = append(conv.Participants, p)
		}
	}

	return rows.Err()
}

func (r *ConversationRepo) AddParticipant(ctx context.Context, conversationID uuid.UUID, p domain.Participant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at, last_read_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (conversation_id, user_id) DO NOTHING`,
		conversationID, p.UserID, p.Role, p.JoinedAt, p.LastReadAt,
	)
	return err
}

func (r *ConversationRepo) RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID)
	return err
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, conversationID uuid.UUID, summary domain.LastMessage) error {
	// Stale summaries lose: a slow concurrent append must not overwrite a
	// newer snapshot.
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET last_message_content = $2,
			last_message_sender_id = $3,
			last_message_type = $4,
			last_message_at = $5,
			updated_at = now()
		WHERE id = $1 AND (last_message_at IS NULL OR last_message_at <= $5)`,
		conversationID, summary.Content, summary.SenderID, summary.Type, summary.Timestamp,
	)
	return err
}

func (r *ConversationRepo) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	return err
}
