package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CaioWing/filedrop/internal/domain"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Create(ctx context.Context, event *domain.UploadEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO upload_events (id, action, filename, size, checksum_sha256, remote_addr)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, event.ID, event.Action, event.Filename, event.Size, event.ChecksumSHA256, event.RemoteAddr).
		Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert upload event: %w", err)
	}
	return nil
}

func (r *EventRepo) List(ctx context.Context, f domain.EventFilter) ([]*domain.UploadEvent, int, error) {
	where, args := eventWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM upload_events "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count upload events: %w", err)
	}

	_, perPage, offset := normalizePage(f.Page, f.PerPage)
	argIdx := len(args) + 1
	query := fmt.Sprintf(`
		SELECT id, action, filename, size, checksum_sha256, remote_addr, created_at
		FROM upload_events %s
		ORDER BY created_at %s
		LIMIT $%d OFFSET $%d
	`, where, orderDirection(f.SortOrder), argIdx, argIdx+1)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list upload events: %w", err)
	}
	defer rows.Close()

	events := []*domain.UploadEvent{}
	for rows.Next() {
		e := &domain.UploadEvent{}
		if err := rows.Scan(
			&e.ID, &e.Action, &e.Filename, &e.Size,
			&e.ChecksumSHA256, &e.RemoteAddr, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan upload event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list upload events: %w", err)
	}

	return events, total, nil
}

func eventWhere(f domain.EventFilter) (string, []any) {
	where := "WHERE 1=1"
	args := []any{}

	if f.Action != nil {
		args = append(args, *f.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.Filename != nil {
		args = append(args, *f.Filename)
		where += fmt.Sprintf(" AND filename = $%d", len(args))
	}
	return where, args
}
