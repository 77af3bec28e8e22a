package handler

import (
	"unicode"

	dErrors "firmgate/pkg/domain-errors"
	s "firmgate/pkg/string"
	"firmgate/pkg/validation"
)

const minPasswordLength = 8

type CredentialRequest struct {
	Token           string `json:"token" validate:"required,max=64"`
	Password        string `json:"password" validate:"required,max=256"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Normalize trims the token only. Passwords are taken verbatim.
// Malformed tokens pass through so the service reports them as not found.
func (r *CredentialRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Token)
}

func (r *CredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return dErrors.New(dErrors.CodeValidation, "passwords do not match")
	}
	return checkPasswordStrength(r.Password)
}

func checkPasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return dErrors.New(dErrors.CodeValidation, "password must contain an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required,max=64"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Token, &r.Code)
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type ResendRequest struct {
	Token string `json:"token" validate:"required,max=64"`
}

func (r *ResendRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Token)
}

func (r *ResendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
