package webhook

import "strings"

const EventUserCreated = "user.created"

// Event is the subset of an identity provider webhook envelope this service reads.
type Event struct {
	Type string    `json:"type"`
	Data EventUser `json:"data"`
}

type EventUser struct {
	ID                    string         `json:"id"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the address flagged primary, falling back to the first
// listed address when no primary id is set.
func (u EventUser) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != "" && e.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	if u.PrimaryEmailAddressID == "" && len(u.EmailAddresses) > 0 {
		return strings.TrimSpace(u.EmailAddresses[0].EmailAddress)
	}
	return ""
}
