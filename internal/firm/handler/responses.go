package handler

import (
	"time"

	"firmgate/internal/firm/models"
)

type FirmResponse struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	HasCompletedOnboarding bool      `json:"has_completed_onboarding"`
	ContactPerson          string    `json:"contact_person,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	Address                string    `json:"address,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type FirmListResponse struct {
	Firms []*FirmResponse `json:"firms"`
}

// ToFirmResponse is shared with the firm dashboard endpoint.
func ToFirmResponse(f *models.Firm) *FirmResponse {
	return &FirmResponse{
		ID:                     f.ID.String(),
		Name:                   f.Name,
		Email:                  f.Email,
		HasCompletedOnboarding: f.HasCompletedOnboarding,
		ContactPerson:          f.ContactPerson,
		Phone:                  f.Phone,
		Address:                f.Address,
		CreatedAt:              f.CreatedAt,
		UpdatedAt:              f.UpdatedAt,
	}
}

func toFirmListResponse(firms []*models.Firm) *FirmListResponse {
	out := &FirmListResponse{Firms: make([]*FirmResponse, 0, len(firms))}
	for _, f := range firms {
		out.Firms = append(out.Firms, ToFirmResponse(f))
	}
	return out
}
