// Package types holds the admin directory's records and HTTP views.
package types

import (
	"time"

	auditmodels "firmgate/internal/audit/models"
	id "firmgate/pkg/domain"
)

// AdminUser links the configured admin email to its identity account.
type AdminUser struct {
	ID          id.AdminUserID
	Email       string
	IdentityRef string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SessionResponse struct {
	AdminUserID string    `json:"admin_user_id"`
	Email       string    `json:"email"`
	FirstLogin  bool      `json:"first_login"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditEntryResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Actor      string    `json:"actor"`
	ActorType  string    `json:"actor_type"`
	Details    any       `json:"details,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Device     string    `json:"device,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func ToAuditEntryResponse(e *auditmodels.Entry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:         e.ID,
		Action:     string(e.Action),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		Actor:      e.Actor,
		ActorType:  string(e.ActorType),
		Details:    e.Details,
		Timestamp:  e.Timestamp,
	}
	if e.Network != nil {
		resp.IPAddress = e.Network.IPAddress
		resp.Device = e.Network.Device()
	}
	return resp
}

func ToAuditListResponse(entries []*auditmodels.Entry) AuditListResponse {
	out := AuditListResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, ToAuditEntryResponse(e))
	}
	return out
}
