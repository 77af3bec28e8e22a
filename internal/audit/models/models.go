// Package models holds the append-only audit entry and its typed details.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/useragent"
)

type Action string

const (
	ActionFirmCreated             Action = "firm_created"
	ActionFirmUpdated             Action = "firm_updated"
	ActionFirmOnboardingCompleted Action = "firm_onboarding_completed"
	ActionTokenGenerated          Action = "token_generated"
	ActionTokenUsed               Action = "token_used"
	ActionTokenInvalidated        Action = "token_invalidated"
	ActionAdminLogin              Action = "admin_login"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionFirmCreated, ActionFirmUpdated, ActionFirmOnboardingCompleted,
		ActionTokenGenerated, ActionTokenUsed, ActionTokenInvalidated, ActionAdminLogin:
		return true
	}
	return false
}

type EntityType string

const (
	EntityFirm      EntityType = "firm"
	EntityToken     EntityType = "token"
	EntityAdminUser EntityType = "admin_user"
)

func (e EntityType) IsValid() bool {
	return e == EntityFirm || e == EntityToken || e == EntityAdminUser
}

type ActorType string

const (
	ActorAdmin  ActorType = "admin"
	ActorFirm   ActorType = "firm"
	ActorClient ActorType = "client"
	ActorSystem ActorType = "system"
)

func (a ActorType) IsValid() bool {
	switch a {
	case ActorAdmin, ActorFirm, ActorClient, ActorSystem:
		return true
	}
	return false
}

// SystemActor is the actor recorded for transitions not driven by a person.
const SystemActor = "system"

// NetworkContext is the request metadata captured with an entry.
type NetworkContext struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (n *NetworkContext) IsZero() bool {
	return n == nil || (n.IPAddress == "" && n.UserAgent == "" && n.RequestID == "")
}

// Device summarizes the user agent as "Browser on OS".
func (n *NetworkContext) Device() string {
	if n == nil || n.UserAgent == "" {
		return ""
	}
	ua := useragent.New(n.UserAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

// Entry is one audit log record. Entries are never updated.
type Entry struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Actor      string          `json:"actor"`
	ActorType  ActorType       `json:"actor_type"`
	Details    Details         `json:"-"`
	Network    *NetworkContext `json:"network,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type entryJSON struct {
	alias
	Details json.RawMessage `json:"details,omitempty"`
}

type alias Entry

func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{alias: alias(e)}
	if e.Details != nil {
		raw, err := MarshalDetails(e.Details)
		if err != nil {
			return nil, err
		}
		out.Details = raw
	}
	return json.Marshal(out)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var in entryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*e = Entry(in.alias)
	if len(in.Details) > 0 && string(in.Details) != "null" {
		d, err := UnmarshalDetails(in.Details)
		if err != nil {
			return fmt.Errorf("audit entry %s: %w", in.ID, err)
		}
		e.Details = d
	}
	return nil
}
