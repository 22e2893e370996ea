package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/storage"
)

const auditColumns = `id, cep, requested_at, response_data, success, error_message,
	execution_time_ms, cache_hit, source_ip, user_agent, request_id`

// AppendAudit inserts e and returns the assigned ID. e.ID is set as well.
func (s *Store) AppendAudit(ctx context.Context, e *ceptracker.AuditEntry) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO audit_log (cep, requested_at, response_data, success, error_message,
		 execution_time_ms, cache_hit, source_ip, user_agent, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		e.CEP, e.RequestedAt.UTC(), e.ResponseData, e.Success, e.ErrorMessage,
		e.ExecutionTimeMs, e.CacheHit, e.SourceIP, e.UserAgent, e.RequestID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: append audit: %w", err)
	}
	e.ID = id
	return id, nil
}

// GetAudit returns the entry with the given ID.
func (s *Store) GetAudit(ctx context.Context, id int64) (*ceptracker.AuditEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_log WHERE id = $1`, id)
	e, err := scanAudit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ceptracker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get audit: %w", err)
	}
	return e, nil
}

// ListAudit returns entries matching f, newest first.
func (s *Store) ListAudit(ctx context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, error) {
	where, args := auditWhere(f)
	limit := f.Limit
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	n := len(args)
	args = append(args, limit, max(f.Offset, 0))

	rows, err := s.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_log`+where+
			` ORDER BY requested_at DESC, id DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	defer rows.Close()

	var out []ceptracker.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan audit: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CountAudit returns the number of entries matching f. Offset and Limit
// are ignored.
func (s *Store) CountAudit(ctx context.Context, f ceptracker.AuditFilter) (int, error) {
	where, args := auditWhere(f)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count audit: %w", err)
	}
	return n, nil
}

func auditWhere(f ceptracker.AuditFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		clauses = append(clauses, cond+" $"+strconv.Itoa(len(args)))
	}
	if f.CEP != "" {
		add("cep =", f.CEP)
	}
	if f.Success != nil {
		add("success =", *f.Success)
	}
	if t, ok := parseBound(f.Since); ok {
		add("requested_at >=", t)
	}
	if t, ok := parseBound(f.Until); ok {
		add("requested_at <", t)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// parseBound parses an RFC3339 filter bound. Unparseable bounds are
// ignored; the HTTP layer rejects them before they get here.
func parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

func scanAudit(row pgx.Row) (*ceptracker.AuditEntry, error) {
	var e ceptracker.AuditEntry
	err := row.Scan(
		&e.ID, &e.CEP, &e.RequestedAt, &e.ResponseData, &e.Success, &e.ErrorMessage,
		&e.ExecutionTimeMs, &e.CacheHit, &e.SourceIP, &e.UserAgent, &e.RequestID,
	)
	if err != nil {
		return nil, err
	}
	e.RequestedAt = e.RequestedAt.UTC()
	return &e, nil
}
