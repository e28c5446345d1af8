package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultPending = "pending"
	ResultDenied  = "denied"
)

// AuditPayload is free-form structured detail stored as JSON.
type AuditPayload map[string]any

// AuditRecord is one row to write.
type AuditRecord struct {
	TraceID string
	GuildID string
	ActorID string
	// Action is what was attempted, e.g. "instruction" or an action kind.
	Action  string
	Target  string
	Result  string
	Payload AuditPayload
	Error   string
}

// AuditEntry is a stored row.
type AuditEntry struct {
	ID        int64
	Timestamp time.Time
	TraceID   string
	GuildID   string
	ActorID   string
	Action    string
	Target    string
	Result    string
	Payload   string
	Error     string
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// WriteAudit appends rec to the audit log.
func (s *Store) WriteAudit(ctx context.Context, rec AuditRecord) error {
	var payload sql.NullString
	if rec.Payload != nil {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("store: marshal audit payload: %w", err)
		}
		payload = nullable(string(b))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, trace_id, guild_id, actor_id, action, target, result, payload_json, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), rec.TraceID, rec.GuildID, rec.ActorID, rec.Action,
		nullable(rec.Target), rec.Result, payload, nullable(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("store: write audit: %w", err)
	}
	return nil
}

const auditColumns = `id, ts, trace_id, guild_id, actor_id, action, target, result, payload_json, error_message`

// ListAudit returns the newest entries for guildID, newest first. An empty
// guildID lists every guild.
func (s *Store) ListAudit(ctx context.Context, guildID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE ? = '' OR guild_id = ?
		ORDER BY id DESC
		LIMIT ?`, guildID, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query audit log: %w", err)
	}
	return scanAudit(rows)
}

// AuditByTrace returns every entry for traceID in write order.
func (s *Store) AuditByTrace(ctx context.Context, traceID string) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE trace_id = ?
		ORDER BY id ASC`, traceID)
	if err != nil {
		return nil, fmt.Errorf("store: query audit by trace: %w", err)
	}
	return scanAudit(rows)
}

func scanAudit(rows *sql.Rows) ([]*AuditEntry, error) {
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var (
			e                       AuditEntry
			target, payload, errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.TraceID, &e.GuildID, &e.ActorID,
			&e.Action, &target, &e.Result, &payload, &errMsg); err != nil {
			return nil, fmt.Errorf("store: scan audit entry: %w", err)
		}
		e.Target, e.Payload, e.Error = target.String, payload.String, errMsg.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate audit log: %w", err)
	}
	return out, nil
}
