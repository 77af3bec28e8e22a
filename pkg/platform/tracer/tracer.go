// Package tracer is a small span abstraction over OpenTelemetry so domain
// services can be traced without importing otel directly. Tests use the noop
// tracer; the server wires the OTel adapter against the global provider.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashEmail lets traces correlate on an address without carrying it.
func HashEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}

// Span names.
const (
	SpanTokenGenerate      = "token.generate"
	SpanTokenForceGenerate = "token.force_generate"
	SpanTokenValidate      = "token.validate"
	SpanTokenConsume       = "token.consume"
	SpanTokenConsumeAll    = "token.consume_all_for_firm"
	SpanOnboardingSubmit   = "onboarding.submit_credential"
	SpanOnboardingVerify   = "onboarding.verify_code"
	SpanOnboardingResend   = "onboarding.resend_code"
	SpanOnboardingFinalize = "onboarding.finalize"
	SpanOnboardingWebhook  = "onboarding.account_finalized"
	SpanIdentityCall       = "identity.call"
)

// Attribute keys.
const (
	AttrFirmID      = "firm.id"
	AttrEmailHash   = "email.hash"
	AttrOutcome     = "outcome"
	AttrReason      = "reason"
	AttrAttempts    = "token.draw_attempts"
	AttrInvalidated = "token.invalidated"
	AttrIdentityOp  = "identity.operation"
	AttrConsumed    = "token.consumed"
	AttrAlreadyDone = "onboarding.already_completed"
)

// Event names.
const (
	EventAuditRecorded = "audit.recorded"
)
