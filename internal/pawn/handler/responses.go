package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"pawnshop/internal/pawn/models"
)

// TransactionResponse is the wire shape of a pawn transaction with the names
// of its client and category.
type TransactionResponse struct {
	ID              string               `json:"id"`
	ItemCategory    string               `json:"itemCategory"`
	CategoryName    string               `json:"categoryName"`
	Client          string               `json:"client"`
	ClientName      string               `json:"clientName"`
	ItemDescription string               `json:"itemDescription"`
	PawnDate        time.Time            `json:"pawnDate"`
	ReturnDate      *time.Time           `json:"returnDate"`
	Amount          decimal.Decimal      `json:"amount"`
	Commission      decimal.Decimal      `json:"commission"`
	PriceHistory    []PriceEntryResponse `json:"priceHistory"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type PriceEntryResponse struct {
	Price decimal.Decimal `json:"price"`
	Date  time.Time       `json:"date"`
}

func FromView(v *models.View) TransactionResponse {
	history := make([]PriceEntryResponse, 0, len(v.PriceHistory))
	for _, e := range v.PriceHistory {
		history = append(history, PriceEntryResponse{Price: e.Price, Date: e.Date})
	}
	return TransactionResponse{
		ID:              v.ID.String(),
		ItemCategory:    v.CategoryID.String(),
		CategoryName:    v.CategoryName,
		Client:          v.ClientID.String(),
		ClientName:      v.ClientName,
		ItemDescription: v.ItemDescription,
		PawnDate:        v.PawnDate,
		ReturnDate:      v.ReturnDate,
		Amount:          v.Amount,
		Commission:      v.Commission,
		PriceHistory:    history,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}
