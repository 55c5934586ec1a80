package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pawnshop/internal/pawn/models"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

// CreateTransactionRequest is the body of POST /pawnTransactions.
type CreateTransactionRequest struct {
	ItemCategory    string           `json:"itemCategory"`
	Client          string           `json:"client"`
	ItemDescription string           `json:"itemDescription"`
	PawnDate        string           `json:"pawnDate"`
	ReturnDate      string           `json:"returnDate"`
	Amount          *decimal.Decimal `json:"amount"`
	Commission      *decimal.Decimal `json:"commission"`

	terms models.Terms
}

// Validate implements httputil.Validatable.
func (r *CreateTransactionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ItemDescription = strings.TrimSpace(r.ItemDescription)

	var missing []dErrors.FieldError
	require := func(field string, present bool) {
		if !present {
			missing = append(missing, dErrors.FieldError{Field: field, Message: "is required"})
		}
	}
	require("itemCategory", strings.TrimSpace(r.ItemCategory) != "")
	require("client", strings.TrimSpace(r.Client) != "")
	require("itemDescription", r.ItemDescription != "")
	require("pawnDate", strings.TrimSpace(r.PawnDate) != "")
	require("amount", r.Amount != nil)
	require("commission", r.Commission != nil)
	if len(missing) > 0 {
		return dErrors.WithFields(dErrors.CodeValidation, "All fields are required", missing)
	}

	p := parser{}
	r.terms = models.Terms{
		CategoryID:      p.categoryID("itemCategory", r.ItemCategory),
		ClientID:        p.clientID("client", r.Client),
		ItemDescription: r.ItemDescription,
		PawnDate:        p.date("pawnDate", r.PawnDate),
		ReturnDate:      p.optionalDate("returnDate", r.ReturnDate),
		Amount:          *r.Amount,
		Commission:      *r.Commission,
	}
	return p.err()
}

func (r *CreateTransactionRequest) Terms() models.Terms {
	return r.terms
}

// UpdateTransactionRequest is the body of PUT /pawnTransactions/{id}. Omitted
// fields are left as stored; a blank returnDate clears it. priceHistory, when
// present, replaces the ledger and amount is then ignored.
type UpdateTransactionRequest struct {
	ItemCategory    *string             `json:"itemCategory"`
	Client          *string             `json:"client"`
	ItemDescription *string             `json:"itemDescription"`
	PawnDate        *string             `json:"pawnDate"`
	ReturnDate      *string             `json:"returnDate"`
	Amount          *decimal.Decimal    `json:"amount"`
	Commission      *decimal.Decimal    `json:"commission"`
	PriceHistory    []PriceEntryRequest `json:"priceHistory"`

	patch models.Patch
}

func (r *UpdateTransactionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	p := parser{}
	if r.ItemCategory != nil {
		categoryID := p.categoryID("itemCategory", *r.ItemCategory)
		r.patch.CategoryID = &categoryID
	}
	if r.Client != nil {
		clientID := p.clientID("client", *r.Client)
		r.patch.ClientID = &clientID
	}
	if r.ItemDescription != nil {
		desc := strings.TrimSpace(*r.ItemDescription)
		r.patch.ItemDescription = &desc
	}
	if r.PawnDate != nil {
		pawnDate := p.date("pawnDate", *r.PawnDate)
		r.patch.PawnDate = &pawnDate
	}
	if r.ReturnDate != nil {
		r.patch.ReturnDate = p.optionalDate("returnDate", *r.ReturnDate)
		r.patch.ClearReturnDate = r.patch.ReturnDate == nil
	}
	r.patch.Amount = r.Amount
	r.patch.Commission = r.Commission
	if r.PriceHistory != nil {
		r.patch.PriceHistory = p.history(r.PriceHistory)
	}
	return p.err()
}

func (r *UpdateTransactionRequest) Patch() models.Patch {
	return r.patch
}

// AppendPriceRequest is the body of POST /pawnTransactions/{id}/prices.
type AppendPriceRequest struct {
	Price *decimal.Decimal `json:"price"`
}

func (r *AppendPriceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Price == nil {
		return dErrors.WithFields(dErrors.CodeValidation, "Price is required",
			[]dErrors.FieldError{{Field: "price", Message: "is required"}})
	}
	return nil
}

// ReplaceHistoryRequest is the body of PUT /pawnTransactions/{id}/priceHistory.
type ReplaceHistoryRequest struct {
	PriceHistory []PriceEntryRequest `json:"priceHistory"`

	entries []models.PriceEntry
}

func (r *ReplaceHistoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	p := parser{}
	r.entries = p.history(r.PriceHistory)
	return p.err()
}

func (r *ReplaceHistoryRequest) Entries() []models.PriceEntry {
	return r.entries
}

// PriceEntryRequest is one supplied history entry.
type PriceEntryRequest struct {
	Price *decimal.Decimal `json:"price"`
	Date  string           `json:"date"`
}

// parser collects field errors so a request reports all of them at once.
type parser struct {
	fields []dErrors.FieldError
}

func (p *parser) fail(field string, err error) {
	msg := "is invalid"
	var de *dErrors.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	p.fields = append(p.fields, dErrors.FieldError{Field: field, Message: msg})
}

func (p *parser) categoryID(field, raw string) id.CategoryID {
	categoryID, err := id.ParseCategoryID(strings.TrimSpace(raw))
	if err != nil {
		p.fail(field, err)
	}
	return categoryID
}

func (p *parser) clientID(field, raw string) id.ClientID {
	clientID, err := id.ParseClientID(strings.TrimSpace(raw))
	if err != nil {
		p.fail(field, err)
	}
	return clientID
}

func (p *parser) date(field, raw string) time.Time {
	t, err := id.ParseDate(raw, field)
	if err != nil {
		p.fail(field, err)
	}
	return t
}

// optionalDate treats a blank value as an explicit clear.
func (p *parser) optionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t := p.date(field, raw)
	return &t
}

func (p *parser) history(in []PriceEntryRequest) []models.PriceEntry {
	out := make([]models.PriceEntry, 0, len(in))
	for i, e := range in {
		entry := models.PriceEntry{}
		if e.Price == nil {
			p.fields = append(p.fields, dErrors.FieldError{Field: indexed(i, "price"), Message: "is required"})
		} else {
			entry.Price = *e.Price
		}
		if strings.TrimSpace(e.Date) == "" {
			p.fields = append(p.fields, dErrors.FieldError{Field: indexed(i, "date"), Message: "is required"})
		} else {
			date, err := id.ParseTimestamp(e.Date, indexed(i, "date"))
			if err != nil {
				p.fail(indexed(i, "date"), err)
			}
			entry.Date = date
		}
		out = append(out, entry)
	}
	return out
}

func (p *parser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return dErrors.WithFields(dErrors.CodeValidation, "Invalid pawn transaction", p.fields)
}

func indexed(i int, name string) string {
	return "priceHistory[" + strconv.Itoa(i) + "]." + name
}
