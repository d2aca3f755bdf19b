package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	audit "prms/pkg/platform/audit"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts event. Replays of the same event ID are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	// Category always follows the action so stored rows stay consistent.
	category := audit.AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, subject, site_code,
			decision, reason, request_id, actor_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(category),
		event.Timestamp,
		event.Action,
		nullIfEmpty(event.Subject),
		nullIfEmpty(event.SiteCode),
		nullIfEmpty(event.Decision),
		nullIfEmpty(event.Reason),
		nullIfEmpty(event.RequestID),
		nullIfEmpty(event.ActorID),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns the events recorded for one identifier, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, action, subject, site_code,
			decision, reason, request_id, actor_id
		FROM audit_events
		WHERE subject = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                                                 audit.Event
			category                                          string
			subj, site, decision, reason, requestID, actorID sql.NullString
		)
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &e.Action, &subj, &site,
			&decision, &reason, &requestID, &actorID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Subject = subj.String
		e.SiteCode = site.String
		e.Decision = decision.String
		e.Reason = reason.String
		e.RequestID = requestID.String
		e.ActorID = actorID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
