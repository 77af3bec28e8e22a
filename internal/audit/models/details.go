package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DetailsKind tags the concrete Details type on the wire.
type DetailsKind string

const (
	KindFirmSnapshot        DetailsKind = "firm_snapshot"
	KindOnboardingCompleted DetailsKind = "onboarding_completed"
	KindTokenGenerated      DetailsKind = "token_generated"
	KindTokenUsed           DetailsKind = "token_used"
	KindTokenInvalidated    DetailsKind = "token_invalidated"
	KindAdminLogin          DetailsKind = "admin_login"
	KindMetadata            DetailsKind = "metadata"
)

// Details is the action-specific payload of an entry.
type Details interface {
	Kind() DetailsKind
}

// FirmValues is the subset of a firm recorded in snapshots.
type FirmValues struct {
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	ContactPerson          string `json:"contact_person,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	Address                string `json:"address,omitempty"`
	HasCompletedOnboarding bool   `json:"has_completed_onboarding"`
}

// FirmSnapshotDetails carries the new values, plus the previous ones on updates.
type FirmSnapshotDetails struct {
	New FirmValues  `json:"new"`
	Old *FirmValues `json:"old,omitempty"`
}

type OnboardingCompletedDetails struct {
	FirmID      string `json:"firm_id"`
	FirmName    string `json:"firm_name"`
	IdentityRef string `json:"identity_ref"`
}

type TokenGeneratedDetails struct {
	FirmID            string    `json:"firm_id"`
	FirmName          string    `json:"firm_name"`
	FirmEmail         string    `json:"firm_email"`
	ExpiresAt         time.Time `json:"expires_at"`
	ForceGenerated    bool      `json:"force_generated"`
	InvalidatedTokens int       `json:"invalidated_tokens"`
}

type TokenUsedDetails struct {
	FirmID                string    `json:"firm_id"`
	OriginallyCreatedAt   time.Time `json:"originally_created_at"`
	VerificationCompleted bool      `json:"verification_completed"`
}

// Invalidation reasons.
const (
	ReasonExpiredCleanup = "expired_cleanup"
	ReasonForceGenerate  = "force_generate"
)

type TokenInvalidatedDetails struct {
	FirmID string `json:"firm_id"`
	Reason string `json:"reason"`
}

type AdminLoginDetails struct {
	IdentityRef string `json:"identity_ref"`
	FirstLogin  bool   `json:"first_login"`
}

// MetadataDetails is the untyped fallback.
type MetadataDetails struct {
	Values map[string]string `json:"values"`
}

func (FirmSnapshotDetails) Kind() DetailsKind        { return KindFirmSnapshot }
func (OnboardingCompletedDetails) Kind() DetailsKind { return KindOnboardingCompleted }
func (TokenGeneratedDetails) Kind() DetailsKind      { return KindTokenGenerated }
func (TokenUsedDetails) Kind() DetailsKind           { return KindTokenUsed }
func (TokenInvalidatedDetails) Kind() DetailsKind    { return KindTokenInvalidated }
func (AdminLoginDetails) Kind() DetailsKind          { return KindAdminLogin }
func (MetadataDetails) Kind() DetailsKind            { return KindMetadata }

var ErrUnknownDetailsKind = errors.New("unknown audit details kind")

type envelope struct {
	Kind DetailsKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalDetails encodes d as {"kind": ..., "data": ...}.
func MarshalDetails(d Details) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal %s details: %w", d.Kind(), err)
	}
	return json.Marshal(envelope{Kind: d.Kind(), Data: data})
}

// UnmarshalDetails decodes an envelope back into its concrete type.
func UnmarshalDetails(b []byte) (Details, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode details envelope: %w", err)
	}
	switch env.Kind {
	case KindFirmSnapshot:
		return decodeAs[FirmSnapshotDetails](env)
	case KindOnboardingCompleted:
		return decodeAs[OnboardingCompletedDetails](env)
	case KindTokenGenerated:
		return decodeAs[TokenGeneratedDetails](env)
	case KindTokenUsed:
		return decodeAs[TokenUsedDetails](env)
	case KindTokenInvalidated:
		return decodeAs[TokenInvalidatedDetails](env)
	case KindAdminLogin:
		return decodeAs[AdminLoginDetails](env)
	case KindMetadata:
		return decodeAs[MetadataDetails](env)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDetailsKind, env.Kind)
}

func decodeAs[T Details](env envelope) (Details, error) {
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", env.Kind, err)
	}
	return v, nil
}
