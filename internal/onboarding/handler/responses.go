package handler

import (
	"firmgate/internal/onboarding/models"
	tokenmodels "firmgate/internal/token/models"
)

type SignupFirmResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignupStateResponse drives the signup page: the target firm when the token
// is usable, otherwise the reason-specific message.
type SignupStateResponse struct {
	Valid   bool                `json:"valid"`
	Reason  string              `json:"reason,omitempty"`
	Message string              `json:"message,omitempty"`
	Firm    *SignupFirmResponse `json:"firm,omitempty"`
}

type OutcomeResponse struct {
	Status      string `json:"status"`
	Email       string `json:"email"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type ResendResponse struct {
	Sent bool `json:"sent"`
}

const firmDashboardPath = "/firm/dashboard"

func toSignupStateResponse(res tokenmodels.ValidationResult) *SignupStateResponse {
	if !res.Valid {
		return &SignupStateResponse{Reason: string(res.Reason), Message: res.Message}
	}
	resp := &SignupStateResponse{Valid: true}
	if res.Firm != nil {
		resp.Firm = &SignupFirmResponse{Name: res.Firm.Name, Email: res.Firm.Email}
	}
	return resp
}

func toOutcomeResponse(out *models.Outcome) *OutcomeResponse {
	resp := &OutcomeResponse{Status: string(out.Status), Email: out.Email}
	if out.Status == models.OutcomeCompleted {
		resp.RedirectURL = firmDashboardPath
	}
	return resp
}
