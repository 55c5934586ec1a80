package models

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawnshop/internal/query"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

var created = time.Date(2024, 2, 24, 1, 17, 7, 0, time.UTC)

func validTerms() Terms {
	return Terms{
		CategoryID:      id.NewCategoryID(),
		ClientID:        id.NewClientID(),
		ItemDescription: "Gold Ring 18K",
		PawnDate:        created,
		Amount:          decimal.NewFromInt(1000),
		Commission:      decimal.NewFromInt(5),
	}
}

func TestNewTransactionSeedsHistory(t *testing.T) {
	tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
	require.NoError(t, err)
	require.Len(t, tx.PriceHistory, 1)
	assert.True(t, tx.PriceHistory[0].Price.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, created, tx.PriceHistory[0].Date)
}

func TestNewTransactionValidation(t *testing.T) {
	before := created.Add(-24 * time.Hour)
	terms := Terms{
		PawnDate:   created,
		ReturnDate: &before,
		Amount:     decimal.Zero,
		Commission: decimal.NewFromInt(101),
	}
	_, err := NewTransaction(id.NewTransactionID(), terms, created)
	require.Error(t, err)

	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeValidation, de.Code)
	var got []string
	for _, f := range de.Fields {
		got = append(got, f.Field)
	}
	assert.ElementsMatch(t, []string{"itemCategory", "client", "itemDescription", "amount", "commission", "returnDate"}, got)
}

func TestAppendPrice(t *testing.T) {
	tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
	require.NoError(t, err)

	later := created.Add(48 * time.Hour)
	require.NoError(t, tx.AppendPrice(decimal.NewFromInt(1200), later))
	require.Len(t, tx.PriceHistory, 2)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, PriceEntry{Price: decimal.NewFromInt(1200), Date: later}, tx.PriceHistory[1])
	assert.True(t, tx.PriceHistory[0].Price.Equal(decimal.NewFromInt(1000)))

	err = tx.AppendPrice(decimal.NewFromInt(-1), later)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Len(t, tx.PriceHistory, 2)
}

func TestReplaceHistory(t *testing.T) {
	tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
	require.NoError(t, err)

	entries := []PriceEntry{
		{Price: decimal.NewFromInt(900), Date: created},
		{Price: decimal.NewFromInt(950), Date: created.Add(time.Hour)},
	}
	require.NoError(t, tx.ReplaceHistory(entries, created.Add(2*time.Hour)))
	assert.Equal(t, entries, tx.PriceHistory)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(950)))

	entries[0].Price = decimal.NewFromInt(1)
	assert.True(t, tx.PriceHistory[0].Price.Equal(decimal.NewFromInt(900)), "history must not alias the input")

	assert.True(t, dErrors.HasCode(tx.ReplaceHistory([]PriceEntry{}, created), dErrors.CodeValidation))
	err = tx.ReplaceHistory([]PriceEntry{{Price: decimal.Zero}}, created)
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Fields, 2)
}

func TestMoneyMustFitTheColumn(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		msg    string
	}{
		{"two decimals", "10.05", ""},
		{"trailing zeros", "10.500", ""},
		{"just under the limit", "999999999999.99", ""},
		{"sub-cent", "0.001", "must have at most 2 decimal places"},
		{"half cent", "10.005", "must have at most 2 decimal places"},
		{"at the limit", "1000000000000", "must be less than 1000000000000"},
		{"zero", "0", "must be greater than 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)

			terms := validTerms()
			terms.Amount = amount
			_, createErr := NewTransaction(id.NewTransactionID(), terms, created)

			tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
			require.NoError(t, err)
			appendErr := tx.AppendPrice(amount, created)
			replaceErr := tx.ReplaceHistory([]PriceEntry{{Price: amount, Date: created}}, created)

			if tc.msg == "" {
				assert.NoError(t, createErr)
				assert.NoError(t, appendErr)
				assert.NoError(t, replaceErr)
				return
			}
			assertFieldMessage(t, createErr, "amount", tc.msg)
			assertFieldMessage(t, appendErr, "price", tc.msg)
			assertFieldMessage(t, replaceErr, "priceHistory[0].price", tc.msg)
		})
	}
}

func TestCommissionPrecision(t *testing.T) {
	terms := validTerms()
	terms.Commission = decimal.RequireFromString("5.25")
	_, err := NewTransaction(id.NewTransactionID(), terms, created)
	assert.NoError(t, err)

	terms.Commission = decimal.RequireFromString("5.125")
	_, err = NewTransaction(id.NewTransactionID(), terms, created)
	assertFieldMessage(t, err, "commission", "must have at most 2 decimal places")
}

func TestSetAmountLeavesHistory(t *testing.T) {
	tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
	require.NoError(t, err)

	require.NoError(t, tx.SetAmount(decimal.NewFromInt(999), created.Add(time.Hour)))
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(999)))
	require.Len(t, tx.PriceHistory, 1)
	assert.True(t, tx.PriceHistory[0].Price.Equal(decimal.NewFromInt(1000)))

	assertFieldMessage(t, tx.SetAmount(decimal.RequireFromString("1.001"), created), "amount", "must have at most 2 decimal places")
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(999)))
}

func assertFieldMessage(t *testing.T, err error, field, msg string) {
	t.Helper()
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeValidation, de.Code)
	assert.Contains(t, de.Fields, dErrors.FieldError{Field: field, Message: msg})
}

func TestApplyKeepsHistory(t *testing.T) {
	tx, err := NewTransaction(id.NewTransactionID(), validTerms(), created)
	require.NoError(t, err)

	desc := "Silver Ring"
	commission := decimal.NewFromInt(7)
	require.NoError(t, tx.Apply(Patch{ItemDescription: &desc, Commission: &commission}, created.Add(time.Hour)))
	assert.Equal(t, "Silver Ring", tx.ItemDescription)
	assert.True(t, tx.Commission.Equal(commission))
	assert.Len(t, tx.PriceHistory, 1)

	early := created.Add(-time.Hour)
	assert.True(t, dErrors.HasCode(tx.Apply(Patch{ReturnDate: &early}, created), dErrors.CodeValidation))

	require.NoError(t, tx.Apply(Patch{ClearReturnDate: true}, created))
	assert.Nil(t, tx.ReturnDate)
}

func TestPriceEntryJSONUsesNumbers(t *testing.T) {
	b, err := json.Marshal(PriceEntry{Price: decimal.RequireFromString("1000.50"), Date: created})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":1000.5,"date":"2024-02-24T01:17:07Z"}`, string(b))
}

func TestParseFilter(t *testing.T) {
	clientID := id.NewClientID()
	p, err := query.Parse(url.Values{
		"clientId":     {clientID.String()},
		"pawnDateFrom": {"2024-02-01"},
		"pawnDateTo":   {"2024-02-24"},
	}, ListSpec)
	require.NoError(t, err)

	f, err := ParseFilter(p)
	require.NoError(t, err)
	require.NotNil(t, f.ClientID)
	assert.Equal(t, clientID, *f.ClientID)

	match := &Transaction{ClientID: clientID, PawnDate: created}
	assert.True(t, f.Matches(match), "date-only upper bound covers the whole day")

	other := &Transaction{ClientID: id.NewClientID(), PawnDate: created}
	assert.False(t, f.Matches(other))

	late := &Transaction{ClientID: clientID, PawnDate: created.Add(24 * time.Hour)}
	assert.False(t, f.Matches(late))

	p, err = query.Parse(url.Values{"categoryId": {"nope"}, "pawnDateTo": {"yesterday"}}, ListSpec)
	require.NoError(t, err)
	_, err = ParseFilter(p)
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Fields, 2)
}
