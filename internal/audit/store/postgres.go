package store

import (
	"context"
	"database/sql"
	"fmt"

	"firmgate/internal/audit/models"
	"firmgate/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `SELECT id, action, entity_type, entity_id, actor, actor_type, details,
		ip_address, user_agent, request_id, "timestamp"
	FROM audit_logs`

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	var details []byte
	if entry.Details != nil {
		raw, err := models.MarshalDetails(entry.Details)
		if err != nil {
			return err
		}
		details = raw
	}
	var ip, ua, reqID sql.NullString
	if n := entry.Network; n != nil {
		ip = nullString(n.IPAddress)
		ua = nullString(n.UserAgent)
		reqID = nullString(n.RequestID)
	}

	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, action, entity_type, entity_id, actor, actor_type, details,
			ip_address, user_agent, request_id, "timestamp"
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, string(entry.Action), string(entry.EntityType), entry.EntityID,
		entry.Actor, string(entry.ActorType), details, ip, ua, reqID, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID string) ([]*models.Entry, error) {
	return s.query(ctx, selectColumns+` WHERE entity_id = $1 ORDER BY "timestamp" DESC, id DESC`, entityID)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor string) ([]*models.Entry, error) {
	return s.query(ctx, selectColumns+` WHERE actor = $1 ORDER BY "timestamp" DESC, id DESC`, actor)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.Entry, error) {
	return s.query(ctx, selectColumns+` ORDER BY "timestamp" DESC, id DESC LIMIT $1`, limit)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanEntry(r row) (*models.Entry, error) {
	var (
		e                 models.Entry
		action, entity    string
		actorType         string
		details           []byte
		ip, ua, requestID sql.NullString
	)
	if err := r.Scan(&e.ID, &action, &entity, &e.EntityID, &e.Actor, &actorType, &details,
		&ip, &ua, &requestID, &e.Timestamp); err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	e.Action = models.Action(action)
	e.EntityType = models.EntityType(entity)
	e.ActorType = models.ActorType(actorType)
	if len(details) > 0 {
		d, err := models.UnmarshalDetails(details)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s: %w", e.ID, err)
		}
		e.Details = d
	}
	network := &models.NetworkContext{IPAddress: ip.String, UserAgent: ua.String, RequestID: requestID.String}
	if !network.IsZero() {
		e.Network = network
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
