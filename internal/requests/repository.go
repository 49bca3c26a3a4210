package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecoa/zeladoria/internal/db"
	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
)

const foreignKeyViolation = "23503"

const requestColumns = `sr.id, sr.title, sr.description, sr.category, sr.location, sr.status, sr.priority, sr.user_id, sr.created_at, sr.updated_at, u.name, u.email`

// Repository provê acesso às tabelas de solicitações, respostas e anexos.
type Repository struct {
	db db.Querier
	tx db.Beginner
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, tx: pool}
}

// Create insere uma solicitação já autorizada.
func (r *Repository) Create(ctx context.Context, req policy.NewRequest) (*ServiceRequest, error) {
	const query = `
        WITH sr AS (
            INSERT INTO service_requests (title, description, category, location, status, priority, user_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING *
        )
        SELECT ` + requestColumns + `
        FROM sr
        JOIN users u ON u.id = sr.user_id
    `

	row := r.db.QueryRow(ctx, query,
		req.Title,
		req.Description,
		string(req.Category),
		req.Location,
		string(req.Status),
		string(req.Priority),
		req.OwnerID,
	)
	return scanRequest(row)
}

// Get busca uma solicitação com o resumo do dono.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	const query = `
        SELECT ` + requestColumns + `
        FROM service_requests sr
        JOIN users u ON u.id = sr.user_id
        WHERE sr.id = $1
    `

	row := r.db.QueryRow(ctx, query, id)
	return scanRequest(row)
}

// List lista solicitações aplicando escopo e filtros, mais recentes primeiro.
func (r *Repository) List(ctx context.Context, filter Filter) ([]ServiceRequest, error) {
	base := `
        SELECT ` + requestColumns + `
        FROM service_requests sr
        JOIN users u ON u.id = sr.user_id`

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("sr.user_id = $%d", idx))
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("sr.status = $%d", idx))
		args = append(args, string(*filter.Status))
		idx++
	}
	if filter.Category != nil {
		clauses = append(clauses, fmt.Sprintf("sr.category = $%d", idx))
		args = append(args, string(*filter.Category))
		idx++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("(sr.title ILIKE $%d OR sr.description ILIKE $%d OR sr.location ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+escapeLike(search)+"%")
		idx++
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY sr.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ServiceRequest{}
	for rows.Next() {
		item, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// Update grava as alterações autorizadas. A condição do guard é reavaliada
// no próprio UPDATE; se ela não valer mais, devolve ErrNotFound.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, changes policy.Changes, guard policy.Guard) (*ServiceRequest, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	if changes.Title != nil {
		setParts = append(setParts, fmt.Sprintf("title = $%d", idx))
		args = append(args, *changes.Title)
		idx++
	}
	if changes.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", idx))
		args = append(args, *changes.Description)
		idx++
	}
	if changes.Category != nil {
		setParts = append(setParts, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(*changes.Category))
		idx++
	}
	if changes.Location != nil {
		setParts = append(setParts, fmt.Sprintf("location = $%d", idx))
		args = append(args, *changes.Location)
		idx++
	} else if changes.ClearLocation {
		setParts = append(setParts, "location = NULL")
	}
	if changes.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*changes.Status))
		idx++
	}
	if changes.Priority != nil {
		setParts = append(setParts, fmt.Sprintf("priority = $%d", idx))
		args = append(args, string(*changes.Priority))
		idx++
	}

	if len(setParts) == 0 {
		return r.Get(ctx, id)
	}

	setParts = append(setParts, "updated_at = now()")

	where, args := guardClause(id, guard, args, idx)
	query := fmt.Sprintf(`
        WITH sr AS (
            UPDATE service_requests
            SET %s
            WHERE %s
            RETURNING *
        )
        SELECT %s
        FROM sr
        JOIN users u ON u.id = sr.user_id
    `, strings.Join(setParts, ", "), where, requestColumns)

	row := r.db.QueryRow(ctx, query, args...)
	return scanRequest(row)
}

// Delete remove a solicitação respeitando o guard.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, guard policy.Guard) error {
	where, args := guardClause(id, guard, nil, 1)
	cmd, err := r.db.Exec(ctx, "DELETE FROM service_requests WHERE "+where, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListResponses lista as respostas com o autor, em ordem de criação.
func (r *Repository) ListResponses(ctx context.Context, requestID uuid.UUID, newestFirst bool) ([]Response, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
        SELECT rr.id, rr.request_id, rr.user_id, rr.message, rr.created_at, u.name, u.email
        FROM request_responses rr
        JOIN users u ON u.id = rr.user_id
        WHERE rr.request_id = $1
        ORDER BY rr.created_at ` + order

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	return scanResponses(rows)
}

// ResponsesFor carrega as respostas de várias solicitações de uma vez,
// mais recentes primeiro. Solicitação sem resposta fica fora do mapa.
func (r *Repository) ResponsesFor(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID][]Response, error) {
	byRequest := make(map[uuid.UUID][]Response, len(requestIDs))
	if len(requestIDs) == 0 {
		return byRequest, nil
	}

	rows, err := r.db.Query(ctx, `
        SELECT rr.id, rr.request_id, rr.user_id, rr.message, rr.created_at, u.name, u.email
        FROM request_responses rr
        JOIN users u ON u.id = rr.user_id
        WHERE rr.request_id = ANY($1)
        ORDER BY rr.created_at DESC`, requestIDs)
	if err != nil {
		return nil, err
	}

	items, err := scanResponses(rows)
	if err != nil {
		return nil, err
	}
	for _, resp := range items {
		byRequest[resp.RequestID] = append(byRequest[resp.RequestID], resp)
	}
	return byRequest, nil
}

func scanResponses(rows pgx.Rows) ([]Response, error) {
	defer rows.Close()

	items := []Response{}
	for rows.Next() {
		var (
			resp   Response
			author Person
		)
		if err := rows.Scan(&resp.ID, &resp.RequestID, &resp.UserID, &resp.Message, &resp.CreatedAt, &author.Name, &author.Email); err != nil {
			return nil, err
		}
		author.ID = resp.UserID
		resp.Author = &author
		items = append(items, resp)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// CreateResponse grava a resposta e a notificação do dono na mesma transação.
// Se qualquer um dos inserts falhar, nenhum dos dois é persistido.
func (r *Repository) CreateResponse(ctx context.Context, requestID, authorID uuid.UUID, message string, draft policy.NotificationDraft) (*Response, *notifications.Notification, error) {
	const query = `
        INSERT INTO request_responses (request_id, user_id, message)
        VALUES ($1, $2, $3)
        RETURNING id, request_id, user_id, message, created_at
    `

	var (
		resp *Response
		note *notifications.Notification
	)
	err := db.InTx(ctx, r.tx, func(tx pgx.Tx) error {
		var created Response
		if err := tx.QueryRow(ctx, query, requestID, authorID, message).Scan(&created.ID, &created.RequestID, &created.UserID, &created.Message, &created.CreatedAt); err != nil {
			return err
		}

		n, err := notifications.Insert(ctx, tx, draft)
		if err != nil {
			return fmt.Errorf("notificação: %w", err)
		}

		resp = &created
		note = n
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return resp, note, nil
}

// Stats conta solicitações por status, categoria e prioridade.
func (r *Repository) Stats(ctx context.Context, ownerID *uuid.UUID) (*Stats, error) {
	query := `SELECT status, category, priority, COUNT(*) FROM service_requests`
	var args []any
	if ownerID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *ownerID)
	}
	query += ` GROUP BY status, category, priority`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := newStats()
	for rows.Next() {
		var (
			status, category, priority string
			count                      int64
		)
		if err := rows.Scan(&status, &category, &priority, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[policy.Status(status)] += count
		stats.ByCategory[policy.Category(category)] += count
		stats.ByPriority[policy.Priority(priority)] += count
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return stats, nil
}

// CountUsers retorna o total de contas cadastradas.
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CreateAttachment registra um anexo já enviado ao storage.
func (r *Repository) CreateAttachment(ctx context.Context, a Attachment) (*Attachment, error) {
	const query = `
        INSERT INTO request_attachments (request_id, uploaded_by, file_name, content_type, size_bytes, object_key, url)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, request_id, uploaded_by, file_name, content_type, size_bytes, object_key, url, created_at
    `

	row := r.db.QueryRow(ctx, query, a.RequestID, a.UploadedBy, a.FileName, a.ContentType, a.SizeBytes, a.ObjectKey, a.URL)
	created, err := scanAttachment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return created, nil
}

// ListAttachments lista anexos por ordem de envio.
func (r *Repository) ListAttachments(ctx context.Context, requestID uuid.UUID) ([]Attachment, error) {
	const query = `
        SELECT id, request_id, uploaded_by, file_name, content_type, size_bytes, object_key, url, created_at
        FROM request_attachments
        WHERE request_id = $1
        ORDER BY created_at ASC
    `

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

func guardClause(id uuid.UUID, guard policy.Guard, args []any, idx int) (string, []any) {
	clauses := []string{fmt.Sprintf("id = $%d", idx)}
	args = append(args, id)
	idx++

	if guard.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", idx))
		args = append(args, *guard.OwnerID)
	}
	if guard.RequirePending {
		clauses = append(clauses, fmt.Sprintf("status = '%s'", policy.StatusPending))
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var (
		sr                         ServiceRequest
		owner                      Person
		category, status, priority string
	)
	if err := row.Scan(&sr.ID, &sr.Title, &sr.Description, &category, &sr.Location, &status, &priority, &sr.UserID, &sr.CreatedAt, &sr.UpdatedAt, &owner.Name, &owner.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sr.Category = policy.Category(category)
	sr.Status = policy.Status(status)
	sr.Priority = policy.Priority(priority)
	owner.ID = sr.UserID
	sr.Owner = &owner
	return &sr, nil
}

func scanAttachment(row pgx.Row) (*Attachment, error) {
	var a Attachment
	if err := row.Scan(&a.ID, &a.RequestID, &a.UploadedBy, &a.FileName, &a.ContentType, &a.SizeBytes, &a.ObjectKey, &a.URL, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
