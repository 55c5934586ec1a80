package models

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

func init() {
	// amounts render as JSON numbers, both on the wire and in the stored history
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultCommission is the commission percentage applied by the storage
// default when a row is written without one.
var DefaultCommission = decimal.NewFromInt(5)

// Money columns are NUMERIC(14, 2).
const moneyScale = 2

var (
	zero     = decimal.Zero
	hundred  = decimal.NewFromInt(100)
	maxMoney = decimal.New(1, 12)
)

// checkMoney returns why v cannot be stored as an amount or price, or "".
func checkMoney(v decimal.Decimal) string {
	switch {
	case !v.GreaterThan(zero):
		return "must be greater than 0"
	case !v.Equal(v.Truncate(moneyScale)):
		return "must have at most 2 decimal places"
	case v.GreaterThanOrEqual(maxMoney):
		return "must be less than 1000000000000"
	}
	return ""
}

// PriceEntry is one point of the price history ledger.
type PriceEntry struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
}

// Transaction is a pawn loan against an item. PriceHistory is ordered oldest
// first and only changes through AppendPrice and ReplaceHistory.
type Transaction struct {
	ID              id.TransactionID
	CategoryID      id.CategoryID
	ClientID        id.ClientID
	ItemDescription string
	PawnDate        time.Time
	ReturnDate      *time.Time
	Amount          decimal.Decimal
	Commission      decimal.Decimal
	PriceHistory    []PriceEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terms are the inputs of a new transaction.
type Terms struct {
	CategoryID      id.CategoryID
	ClientID        id.ClientID
	ItemDescription string
	PawnDate        time.Time
	ReturnDate      *time.Time
	Amount          decimal.Decimal
	Commission      decimal.Decimal
}

// Patch carries the scalar fields of an update plus at most one price
// operation. A non-nil PriceHistory replaces the ledger and no append
// happens; an Amount supplied alongside it still overwrites the amount.
type Patch struct {
	CategoryID      *id.CategoryID
	ClientID        *id.ClientID
	ItemDescription *string
	PawnDate        *time.Time
	ReturnDate      *time.Time
	ClearReturnDate bool
	Commission      *decimal.Decimal
	Amount          *decimal.Decimal
	PriceHistory    []PriceEntry
}

// ReplacesHistory reports whether the patch carries an explicit history.
func (p Patch) ReplacesHistory() bool {
	return p.PriceHistory != nil
}

// NewTransaction builds a transaction whose history holds exactly one entry,
// the initial amount at now.
func NewTransaction(txID id.TransactionID, terms Terms, now time.Time) (*Transaction, error) {
	t := &Transaction{
		ID:              txID,
		CategoryID:      terms.CategoryID,
		ClientID:        terms.ClientID,
		ItemDescription: strings.TrimSpace(terms.ItemDescription),
		PawnDate:        terms.PawnDate,
		ReturnDate:      terms.ReturnDate,
		Amount:          terms.Amount,
		Commission:      terms.Commission,
		PriceHistory:    []PriceEntry{{Price: terms.Amount, Date: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the write-time invariants and reports every violation.
func (t *Transaction) Validate() error {
	var fields []dErrors.FieldError
	add := func(field, msg string) {
		fields = append(fields, dErrors.FieldError{Field: field, Message: msg})
	}
	if t.CategoryID.IsNil() {
		add("itemCategory", "is required")
	}
	if t.ClientID.IsNil() {
		add("client", "is required")
	}
	if t.ItemDescription == "" {
		add("itemDescription", "is required")
	}
	if t.PawnDate.IsZero() {
		add("pawnDate", "is required")
	}
	if msg := checkMoney(t.Amount); msg != "" {
		add("amount", msg)
	}
	switch {
	case t.Commission.LessThan(zero) || t.Commission.GreaterThan(hundred):
		add("commission", "must be between 0 and 100")
	case !t.Commission.Equal(t.Commission.Truncate(moneyScale)):
		add("commission", "must have at most 2 decimal places")
	}
	if t.ReturnDate != nil && !t.PawnDate.IsZero() && t.ReturnDate.Before(t.PawnDate) {
		add("returnDate", "must not be before pawnDate")
	}
	if len(fields) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "Invalid pawn transaction", fields)
	}
	return nil
}

// Apply overwrites the supplied scalar fields. Amount and PriceHistory are
// left to AppendPrice and ReplaceHistory.
func (t *Transaction) Apply(p Patch, now time.Time) error {
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.ClientID != nil {
		t.ClientID = *p.ClientID
	}
	if p.ItemDescription != nil {
		t.ItemDescription = strings.TrimSpace(*p.ItemDescription)
	}
	if p.PawnDate != nil {
		t.PawnDate = *p.PawnDate
	}
	switch {
	case p.ClearReturnDate:
		t.ReturnDate = nil
	case p.ReturnDate != nil:
		rd := *p.ReturnDate
		t.ReturnDate = &rd
	}
	if p.Commission != nil {
		t.Commission = *p.Commission
	}
	t.UpdatedAt = now
	return t.Validate()
}

// AppendPrice sets a new amount and records it as the trailing history entry.
func (t *Transaction) AppendPrice(price decimal.Decimal, now time.Time) error {
	if msg := checkMoney(price); msg != "" {
		return dErrors.WithFields(dErrors.CodeValidation, "Invalid price",
			[]dErrors.FieldError{{Field: "price", Message: msg}})
	}
	t.PriceHistory = append(t.PriceHistory, PriceEntry{Price: price, Date: now})
	t.Amount = price
	t.UpdatedAt = now
	return nil
}

// ReplaceHistory swaps the whole ledger for entries. The amount follows the
// last entry.
func (t *Transaction) ReplaceHistory(entries []PriceEntry, now time.Time) error {
	if len(entries) == 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "Price history must not be empty",
			[]dErrors.FieldError{{Field: "priceHistory", Message: "must contain at least one entry"}})
	}
	var fields []dErrors.FieldError
	for i, e := range entries {
		if msg := checkMoney(e.Price); msg != "" {
			fields = append(fields, dErrors.FieldError{Field: entryField(i, "price"), Message: msg})
		}
		if e.Date.IsZero() {
			fields = append(fields, dErrors.FieldError{Field: entryField(i, "date"), Message: "is required"})
		}
	}
	if len(fields) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "Invalid price history", fields)
	}
	t.PriceHistory = slices.Clone(entries)
	t.Amount = entries[len(entries)-1].Price
	t.UpdatedAt = now
	return nil
}

// SetAmount overwrites the amount and leaves the history as it is. Update
// uses it when a request carries both an amount and a full history.
func (t *Transaction) SetAmount(amount decimal.Decimal, now time.Time) error {
	if msg := checkMoney(amount); msg != "" {
		return dErrors.WithFields(dErrors.CodeValidation, "Invalid pawn transaction",
			[]dErrors.FieldError{{Field: "amount", Message: msg}})
	}
	t.Amount = amount
	t.UpdatedAt = now
	return nil
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	out := *t
	out.PriceHistory = slices.Clone(t.PriceHistory)
	if t.ReturnDate != nil {
		rd := *t.ReturnDate
		out.ReturnDate = &rd
	}
	return &out
}

func entryField(i int, name string) string {
	return "priceHistory[" + strconv.Itoa(i) + "]." + name
}

// View is a transaction projected with the names of what it references.
type View struct {
	*Transaction
	CategoryName string
	ClientName   string
}
