package models

import (
	"fmt"

	"github.com/dmitrijs2005/foodhub/internal/common"
)

// UserType is the closed set of identities a token may carry.
type UserType string

const (
	UserTypeCustomer        UserType = "customer"
	UserTypeRestaurantOwner UserType = "restaurant_owner"
	UserTypeGuest           UserType = "guest"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeCustomer, UserTypeRestaurantOwner, UserTypeGuest:
		return true
	}
	return false
}

// Principal is the identity embedded in access and refresh tokens.
// It never carries passwords or other secrets. Guests have no email.
type Principal struct {
	UserID   string
	UserType UserType
	Email    string
}

func NewCustomer(userID, email string) (Principal, error) {
	return ParsePrincipal(userID, string(UserTypeCustomer), email)
}

func NewRestaurantOwner(userID, email string) (Principal, error) {
	return ParsePrincipal(userID, string(UserTypeRestaurantOwner), email)
}

func NewGuest(deviceID string) (Principal, error) {
	return ParsePrincipal(deviceID, string(UserTypeGuest), "")
}

// ParsePrincipal builds a Principal from untyped parts (decoded claims, DB rows)
// and enforces the per-variant invariants.
func ParsePrincipal(userID, userType, email string) (Principal, error) {
	p := Principal{UserID: userID, UserType: UserType(userType), Email: email}
	if err := p.Validate(); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (p Principal) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}
	if !p.UserType.Valid() {
		return fmt.Errorf("%w: unknown user type %q", common.ErrorValidation, p.UserType)
	}
	if p.UserType == UserTypeGuest && p.Email != "" {
		return fmt.Errorf("%w: guest principal cannot carry an email", common.ErrorValidation)
	}
	return nil
}

func (p Principal) IsGuest() bool {
	return p.UserType == UserTypeGuest
}
