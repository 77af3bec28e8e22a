// Package devidp is an in-process identity provider for development and
// tests. Passwords are bcrypt hashed; verification codes are six digits and
// logged instead of emailed. Not for production.
package devidp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"firmgate/internal/onboarding/ports"
	"firmgate/internal/platform/ids"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/platform/privacy"
	psync "firmgate/pkg/platform/sync"
	"firmgate/pkg/secrets"
)

const (
	codeDigits        = 6
	defaultCodeTTL    = 10 * time.Minute
	maxVerifyAttempts = 5
	identityRefPrefix = "user_"
)

type account struct {
	passwordHash  string
	identityRef   string
	verified      bool
	codeHash      string
	codeExpiresAt time.Time
	attempts      int
}

// Provider holds accounts in memory. An account's fields are only touched
// while its email's shard lock is held; mu guards the maps alone, so bcrypt
// work for one email does not block others.
type Provider struct {
	locks    *psync.ShardedMutex
	mu       sync.Mutex
	accounts map[string]*account
	// last plaintext code per email, readable through PendingCode
	codes    map[string]string

	requireVerification bool
	codeTTL             time.Duration
	bcryptCost          int
	logger              *slog.Logger
	now                 func() time.Time
}

var _ ports.IdentityService = (*Provider)(nil)

type Option func(p *Provider)

// WithVerification makes accounts wait for an emailed code before completing.
func WithVerification(required bool) Option {
	return func(p *Provider) { p.requireVerification = required }
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.codeTTL = ttl
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(p *Provider) { p.bcryptCost = cost }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		locks:               psync.NewShardedMutex(),
		accounts:            make(map[string]*account),
		codes:               make(map[string]string),
		requireVerification: true,
		codeTTL:             defaultCodeTTL,
		bcryptCost:          bcrypt.DefaultCost,
		logger:              slog.New(slog.DiscardHandler),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bcryptCost < bcrypt.MinCost || p.bcryptCost > bcrypt.MaxCost {
		p.bcryptCost = bcrypt.DefaultCost
	}
	return p
}

// CreateAccount registers email. Repeating it for a pending account replaces
// the password and issues a fresh code; for a verified account it succeeds
// only with the same password.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*ports.AccountResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	p.locks.Lock(email)
	defer p.locks.Unlock(email)

	acct, ok := p.account(email)
	if ok && acct.verified {
		if err := secrets.Verify(password, acct.passwordHash); err != nil {
			if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
				return nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
			}
			return nil, err
		}
		return &ports.AccountResult{Status: ports.AccountComplete, IdentityRef: acct.identityRef}, nil
	}

	hash, err := secrets.Hash(password, p.bcryptCost)
	if err != nil {
		return nil, err
	}
	if !ok {
		acct = &account{identityRef: identityRefPrefix + strings.ToLower(ids.New(p.now()))}
		p.mu.Lock()
		p.accounts[email] = acct
		p.mu.Unlock()
	}
	acct.passwordHash = string(hash)

	if !p.requireVerification {
		acct.verified = true
		return &ports.AccountResult{Status: ports.AccountComplete, IdentityRef: acct.identityRef}, nil
	}
	if err := p.issueCode(ctx, email, acct); err != nil {
		return nil, err
	}
	return &ports.AccountResult{Status: ports.AccountNeedsVerification}, nil
}

// VerifyCode completes a pending account. A wrong code is not an error; the
// result simply stays at needs_verification.
func (p *Provider) VerifyCode(ctx context.Context, email, code string) (*ports.AccountResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	p.locks.Lock(email)
	defer p.locks.Unlock(email)

	acct, ok := p.account(email)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no pending account for this email")
	}
	if acct.verified {
		return &ports.AccountResult{Status: ports.AccountComplete, IdentityRef: acct.identityRef}, nil
	}
	if acct.codeHash == "" || !acct.codeExpiresAt.After(p.now()) {
		return nil, dErrors.New(dErrors.CodeExpired, "verification code has expired, request a new one")
	}
	if acct.attempts >= maxVerifyAttempts {
		return nil, dErrors.New(dErrors.CodeForbidden, "too many attempts, request a new code")
	}
	if !codeEqual(code, acct.codeHash) {
		acct.attempts++
		return &ports.AccountResult{Status: ports.AccountNeedsVerification}, nil
	}

	acct.verified = true
	acct.codeHash = ""
	p.mu.Lock()
	delete(p.codes, email)
	p.mu.Unlock()
	return &ports.AccountResult{Status: ports.AccountComplete, IdentityRef: acct.identityRef}, nil
}

func (p *Provider) ResendVerification(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	p.locks.Lock(email)
	defer p.locks.Unlock(email)

	acct, ok := p.account(email)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "no pending account for this email")
	}
	if acct.verified {
		return nil
	}
	return p.issueCode(ctx, email, acct)
}

// PendingCode returns the outstanding code for email, for dev tooling.
func (p *Provider) PendingCode(email string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	code, ok := p.codes[strings.TrimSpace(email)]
	return code, ok
}

func (p *Provider) account(email string) (*account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[email]
	return acct, ok
}

// issueCode must be called with email's shard lock held.
func (p *Provider) issueCode(ctx context.Context, email string, acct *account) error {
	code, err := generateCode(rand.Reader)
	if err != nil {
		return err
	}
	acct.codeHash = hashCode(code)
	acct.codeExpiresAt = p.now().Add(p.codeTTL)
	acct.attempts = 0
	p.mu.Lock()
	p.codes[email] = code
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "dev identity provider issued verification code",
		"email", privacy.MaskEmail(email),
		"code", code,
	)
	return nil
}

// codeRejectAbove drops bytes that would skew the draw toward low digits.
const codeRejectAbove = 250

func generateCode(src io.Reader) (string, error) {
	out := make([]byte, 0, codeDigits)
	buf := make([]byte, codeDigits)
	for len(out) < codeDigits {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= codeRejectAbove {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == codeDigits {
				break
			}
		}
	}
	return string(out), nil
}

func hashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

func codeEqual(provided, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashCode(strings.TrimSpace(provided))), []byte(storedHash)) == 1
}
