package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/storage"
)

const auditColumns = `id, cep, requested_at, response_data, success, error_message,
	execution_time_ms, cache_hit, source_ip, user_agent, request_id`

// AppendAudit inserts e and returns the assigned ID. e.ID is set as well.
func (s *Store) AppendAudit(ctx context.Context, e *ceptracker.AuditEntry) (int64, error) {
	res, err := s.write.ExecContext(ctx,
		`INSERT INTO audit_log (cep, requested_at, response_data, success, error_message,
		 execution_time_ms, cache_hit, source_ip, user_agent, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CEP, storage.FormatTime(e.RequestedAt), e.ResponseData, boolToInt(e.Success), e.ErrorMessage,
		e.ExecutionTimeMs, boolToInt(e.CacheHit), e.SourceIP, e.UserAgent, e.RequestID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: append audit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: append audit: %w", err)
	}
	e.ID = id
	return id, nil
}

// GetAudit returns the entry with the given ID.
func (s *Store) GetAudit(ctx context.Context, id int64) (*ceptracker.AuditEntry, error) {
	row := s.read.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_log WHERE id = ?`, id)
	e, err := scanAudit(row)
	if err != nil {
		return nil, notFoundErr(err)
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
	args = append(args, limit, max(f.Offset, 0))

	rows, err := s.read.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log`+where+
			` ORDER BY requested_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list audit: %w", err)
	}
	defer rows.Close()

	var out []ceptracker.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan audit: %w", err)
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
	err := s.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count audit: %w", err)
	}
	return n, nil
}

func auditWhere(f ceptracker.AuditFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.CEP != "" {
		clauses = append(clauses, "cep = ?")
		args = append(args, f.CEP)
	}
	if f.Success != nil {
		clauses = append(clauses, "success = ?")
		args = append(args, boolToInt(*f.Success))
	}
	if f.Since != "" {
		clauses = append(clauses, "requested_at >= ?")
		args = append(args, storage.NormalizeBound(f.Since))
	}
	if f.Until != "" {
		clauses = append(clauses, "requested_at < ?")
		args = append(args, storage.NormalizeBound(f.Until))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(sc scanner) (*ceptracker.AuditEntry, error) {
	var (
		e                 ceptracker.AuditEntry
		requestedAt       string
		response, errMsg  sql.NullString
		success, cacheHit int
	)
	err := sc.Scan(
		&e.ID, &e.CEP, &requestedAt, &response, &success, &errMsg,
		&e.ExecutionTimeMs, &cacheHit, &e.SourceIP, &e.UserAgent, &e.RequestID,
	)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(storage.TimeLayout, requestedAt); perr == nil {
		e.RequestedAt = t
	}
	if response.Valid {
		e.ResponseData = &response.String
	}
	if errMsg.Valid {
		e.ErrorMessage = &errMsg.String
	}
	e.Success = success != 0
	e.CacheHit = cacheHit != 0
	return &e, nil
}

// notFoundErr translates sql.ErrNoRows to ceptracker.ErrNotFound.
func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ceptracker.ErrNotFound
	}
	return fmt.Errorf("sqlite: get audit: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
