package models

// CreateFirmCommand carries already-normalized input.
type CreateFirmCommand struct {
	Name          string
	Email         string
	ContactPerson string
	Phone         string
	Address       string
}

// UpdateFirmCommand is a partial update; nil leaves a field unchanged.
type UpdateFirmCommand struct {
	Name          *string
	Email         *string
	ContactPerson *string
	Phone         *string
	Address       *string
}

func (c UpdateFirmCommand) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.ContactPerson == nil && c.Phone == nil && c.Address == nil
}
