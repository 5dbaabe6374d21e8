package models

import "time"

// Account is a registered customer or restaurant owner.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	UserType     UserType
	CreatedAt    time.Time
}

// Principal strips everything but the identity fields.
func (a *Account) Principal() (Principal, error) {
	return ParsePrincipal(a.ID, string(a.UserType), a.Email)
}
