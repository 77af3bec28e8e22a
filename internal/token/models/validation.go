package models

import (
	firmmodels "firmgate/internal/firm/models"
	dErrors "firmgate/pkg/domain-errors"
)

// Reason tags an invalid ValidationResult.
type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonUsed         Reason = "used"
	ReasonExpired      Reason = "expired"
	ReasonOrphanedFirm Reason = "orphaned_firm"
	ReasonUnavailable  Reason = "unavailable"
)

// Messages shown to the firm. Each failure needs its own recovery path.
const (
	MessageNotFound     = "Token not found"
	MessageUsed         = "Token has already been used"
	MessageExpired      = "Token has expired"
	MessageOrphanedFirm = "Associated firm not found"
	MessageUnavailable  = "Token could not be checked right now, please try again"
)

func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return MessageNotFound
	case ReasonUsed:
		return MessageUsed
	case ReasonExpired:
		return MessageExpired
	case ReasonOrphanedFirm:
		return MessageOrphanedFirm
	default:
		return MessageUnavailable
	}
}

// Err is the error form of r, used by the state-changing operations.
func (r Reason) Err() error {
	switch r {
	case ReasonNotFound, ReasonOrphanedFirm:
		return dErrors.New(dErrors.CodeNotFound, r.Message())
	case ReasonUsed:
		return dErrors.New(dErrors.CodeConflict, r.Message())
	case ReasonExpired:
		return dErrors.New(dErrors.CodeExpired, r.Message())
	default:
		return dErrors.New(dErrors.CodeInternal, r.Message())
	}
}

// ValidationResult is either Valid with Token and Firm set, or invalid with
// a Reason and its Message.
type ValidationResult struct {
	Valid   bool
	Reason  Reason
	Message string
	Token   *Token
	Firm    *firmmodels.Summary
}

func Invalid(reason Reason) ValidationResult {
	return ValidationResult{Reason: reason, Message: reason.Message()}
}

func Valid(t *Token, firm firmmodels.Summary) ValidationResult {
	return ValidationResult{Valid: true, Token: t, Firm: &firm}
}

// Err returns nil for a valid result.
func (v ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	return v.Reason.Err()
}
