package handler

import (
	"firmgate/internal/firm/models"
	dErrors "firmgate/pkg/domain-errors"
	s "firmgate/pkg/string"
	"firmgate/pkg/validation"
)

type CreateFirmRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email,max=320"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
}

// Normalize trims surrounding whitespace. Email case is preserved.
func (r *CreateFirmRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Name, &r.Email, &r.ContactPerson, &r.Phone, &r.Address)
}

func (r *CreateFirmRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *CreateFirmRequest) ToCommand() models.CreateFirmCommand {
	return models.CreateFirmCommand{
		Name:          r.Name,
		Email:         r.Email,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Address:       r.Address,
	}
}

// UpdateFirmRequest is a partial update; absent fields are left unchanged.
type UpdateFirmRequest struct {
	Name          *string `json:"name" validate:"omitnil,notblank,max=200"`
	Email         *string `json:"email" validate:"omitnil,email,max=320"`
	ContactPerson *string `json:"contact_person" validate:"omitnil,max=200"`
	Phone         *string `json:"phone" validate:"omitnil,max=50"`
	Address       *string `json:"address" validate:"omitnil,max=500"`
}

func (r *UpdateFirmRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = s.TrimPtr(r.Name)
	r.Email = s.TrimPtr(r.Email)
	r.ContactPerson = s.TrimPtr(r.ContactPerson)
	r.Phone = s.TrimPtr(r.Phone)
	r.Address = s.TrimPtr(r.Address)
}

func (r *UpdateFirmRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.ToCommand().IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	return validation.Validate(r)
}

func (r *UpdateFirmRequest) ToCommand() models.UpdateFirmCommand {
	return models.UpdateFirmCommand{
		Name:          r.Name,
		Email:         r.Email,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Address:       r.Address,
	}
}
