// Package contact provides notification targets for indicator alerts.
package contact

import (
	"errors"
	"strings"
	"time"
)

// Repository errors.
var (
	ErrContactNotFound = errors.New("contact not found")
)

// Contact is a notification target, linked many-to-many with indicators.
type Contact struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the contact definition.
func (c *Contact) Validate() error {
	if c.Name == "" {
		return errors.New("contact name is required")
	}
	if c.Email == "" && c.Phone == "" {
		return errors.New("contact needs an email or a phone number")
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return errors.New("contact email is invalid")
	}
	return nil
}
