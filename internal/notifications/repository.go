package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecoa/zeladoria/internal/db"
	"github.com/ecoa/zeladoria/internal/policy"
)

const notificationColumns = `n.id, n.user_id, n.request_id, r.title, n.title, n.message, n.is_read, n.created_at`

// Repository provê acesso à tabela de notificações.
type Repository struct {
	db db.Querier
}

// NewRepository cria instância do repositório.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Insert grava uma notificação usando q, que pode ser uma transação aberta.
func Insert(ctx context.Context, q db.Querier, draft policy.NotificationDraft) (*Notification, error) {
	const query = `
        INSERT INTO notifications (user_id, request_id, title, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, request_id, NULL::text, title, message, is_read, created_at
    `

	row := q.QueryRow(ctx, query, draft.UserID, draft.RequestID, draft.Title, draft.Message)
	return scanNotification(row)
}

// List devolve as notificações do destinatário, mais recentes primeiro.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications n
        LEFT JOIN service_requests r ON r.id = n.request_id
        WHERE n.user_id = $1`
	if filter.UnreadOnly {
		query += ` AND n.is_read = false`
	}
	query += ` ORDER BY n.created_at DESC`

	rows, err := r.db.Query(ctx, query, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// Get busca uma notificação pelo id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
        SELECT `+notificationColumns+`
        FROM notifications n
        LEFT JOIN service_requests r ON r.id = n.request_id
        WHERE n.id = $1
    `, id)
	return scanNotification(row)
}

// SetRead altera is_read somente se a notificação pertencer a userID.
func (r *Repository) SetRead(ctx context.Context, id, userID uuid.UUID, read bool) (*Notification, error) {
	row := r.db.QueryRow(ctx, `
        WITH updated AS (
            UPDATE notifications
            SET is_read = $3
            WHERE id = $1 AND user_id = $2
            RETURNING id, user_id, request_id, title, message, is_read, created_at
        )
        SELECT n.id, n.user_id, n.request_id, r.title, n.title, n.message, n.is_read, n.created_at
        FROM updated n
        LEFT JOIN service_requests r ON r.id = n.request_id
    `, id, userID, read)
	return scanNotification(row)
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.RequestID, &n.RequestTitle, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
