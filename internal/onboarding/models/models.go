package models

import id "firmgate/pkg/domain"

type OutcomeStatus string

const (
	OutcomeCompleted            OutcomeStatus = "completed"
	OutcomeVerificationRequired OutcomeStatus = "verification_required"
)

// Outcome is what the interactive signup steps return to the firm.
type Outcome struct {
	Status OutcomeStatus
	Email  string
	FirmID id.FirmID
}

type ReconcileStatus string

const (
	ReconcileCompleted        ReconcileStatus = "completed"
	ReconcileAlreadyCompleted ReconcileStatus = "already_completed"
	// ReconcileSkipped means the account does not belong to any firm.
	ReconcileSkipped ReconcileStatus = "skipped"
)

// ReconcileResult reports what an account-finalized event changed.
type ReconcileResult struct {
	Status         ReconcileStatus
	FirmID         id.FirmID
	TokensConsumed int
}
