// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "firmgate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a TokenID where a FirmID is expected.
type (
	FirmID      uuid.UUID
	TokenID     uuid.UUID
	AdminUserID uuid.UUID
)

// New* mint fresh random identifiers.

func NewFirmID() FirmID           { return FirmID(uuid.New()) }
func NewTokenID() TokenID         { return TokenID(uuid.New()) }
func NewAdminUserID() AdminUserID { return AdminUserID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseFirmID(s string) (FirmID, error) {
	id, err := parseUUID(s, "firm ID")
	return FirmID(id), err
}

func ParseTokenID(s string) (TokenID, error) {
	id, err := parseUUID(s, "token ID")
	return TokenID(id), err
}

func (id FirmID) String() string      { return uuid.UUID(id).String() }
func (id TokenID) String() string     { return uuid.UUID(id).String() }
func (id AdminUserID) String() string { return uuid.UUID(id).String() }

func (id FirmID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdminUserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets IDs render as plain UUID strings in JSON payloads.
func (id FirmID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id TokenID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *FirmID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = FirmID(parsed)
	return nil
}

func (id *TokenID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = TokenID(parsed)
	return nil
}

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here so store lookups can return a proper not-found;
// services reject them with IsNil where that matters.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
