package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "pawnshop/pkg/domain-errors"
)

// Typed identifiers keep a client id from being passed where a category id is
// expected. All three wrap a UUID and share parsing rules.
type (
	ClientID      uuid.UUID
	CategoryID    uuid.UUID
	TransactionID uuid.UUID
)

func NewClientID() ClientID           { return ClientID(uuid.New()) }
func NewCategoryID() CategoryID       { return CategoryID(uuid.New()) }
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

// ParseClientID parses a client identifier at a trust boundary.
func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client id")
	return ClientID(u), err
}

// ParseCategoryID parses an item category identifier at a trust boundary.
func ParseCategoryID(s string) (CategoryID, error) {
	u, err := parseUUID(s, "category id")
	return CategoryID(u), err
}

// ParseTransactionID parses a pawn transaction identifier at a trust boundary.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s, "transaction id")
	return TransactionID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", label)
	}
	return u, nil
}

func (id ClientID) String() string      { return uuid.UUID(id).String() }
func (id CategoryID) String() string    { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }

func (id ClientID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CategoryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Compare orders identifiers by their canonical string form; list tiebreaks
// use it so in-memory and SQL ordering agree.
func (id ClientID) Compare(other ClientID) int {
	return strings.Compare(id.String(), other.String())
}

func (id CategoryID) Compare(other CategoryID) int {
	return strings.Compare(id.String(), other.String())
}

func (id TransactionID) Compare(other TransactionID) int {
	return strings.Compare(id.String(), other.String())
}

func (id ClientID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id CategoryID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id TransactionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ClientID) UnmarshalText(b []byte) error {
	parsed, err := ParseClientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CategoryID) UnmarshalText(b []byte) error {
	parsed, err := ParseCategoryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TransactionID) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ClientID) Value() (driver.Value, error)      { return id.String(), nil }
func (id CategoryID) Value() (driver.Value, error)    { return id.String(), nil }
func (id TransactionID) Value() (driver.Value, error) { return id.String(), nil }

func (id *ClientID) Scan(src any) error      { return scanUUID((*uuid.UUID)(id), src) }
func (id *CategoryID) Scan(src any) error    { return scanUUID((*uuid.UUID)(id), src) }
func (id *TransactionID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src) }

func scanUUID(dst *uuid.UUID, src any) error {
	if err := dst.Scan(src); err != nil {
		return fmt.Errorf("scan uuid: %w", err)
	}
	return nil
}
