package models

import (
	"strings"
	"time"

	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

// ListSpec is the list contract for clients.
var ListSpec = query.Spec{
	SortFields:  []string{"firstName", "lastName", "passportNumber", "createdAt"},
	DefaultSort: "createdAt",
	Filters:     []string{"search"},
}

// Identity is the six-field identity of a client. Every field is required on
// create and on update.
type Identity struct {
	FirstName         string
	LastName          string
	MiddleName        string
	PassportNumber    string
	PassportSeries    string
	PassportIssueDate time.Time
}

// Normalize trims the text fields.
func (i *Identity) Normalize() {
	i.FirstName = strings.TrimSpace(i.FirstName)
	i.LastName = strings.TrimSpace(i.LastName)
	i.MiddleName = strings.TrimSpace(i.MiddleName)
	i.PassportNumber = strings.TrimSpace(i.PassportNumber)
	i.PassportSeries = strings.TrimSpace(i.PassportSeries)
}

// Validate reports every missing field at once.
func (i Identity) Validate() error {
	var fields []dErrors.FieldError
	required := []struct {
		name  string
		empty bool
	}{
		{"firstName", i.FirstName == ""},
		{"lastName", i.LastName == ""},
		{"middleName", i.MiddleName == ""},
		{"passportNumber", i.PassportNumber == ""},
		{"passportSeries", i.PassportSeries == ""},
		{"passportIssueDate", i.PassportIssueDate.IsZero()},
	}
	for _, f := range required {
		if f.empty {
			fields = append(fields, dErrors.FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(fields) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "All fields are required", fields)
	}
	return nil
}

// Client is a registered pawnshop customer.
type Client struct {
	ID id.ClientID
	Identity
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewClient builds a client after checking the identity invariants.
func NewClient(clientID id.ClientID, identity Identity, now time.Time) (*Client, error) {
	identity.Normalize()
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return &Client{ID: clientID, Identity: identity, CreatedAt: now, UpdatedAt: now}, nil
}

// Replace overwrites the whole identity.
func (c *Client) Replace(identity Identity, now time.Time) error {
	identity.Normalize()
	if err := identity.Validate(); err != nil {
		return err
	}
	c.Identity = identity
	c.UpdatedAt = now
	return nil
}

// DisplayName is "firstName lastName", as shown on transaction listings.
func (c *Client) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Matches reports whether search occurs in any name or passport field.
func (c *Client) Matches(search string) bool {
	if search == "" {
		return true
	}
	return query.ContainsFold(search, c.FirstName, c.LastName, c.MiddleName, c.PassportNumber, c.PassportSeries)
}
