package handler

import (
	"time"

	"pawnshop/internal/client/models"
	id "pawnshop/pkg/domain"
)

// ClientResponse is the wire shape of a client.
type ClientResponse struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	MiddleName        string    `json:"middleName"`
	PassportNumber    string    `json:"passportNumber"`
	PassportSeries    string    `json:"passportSeries"`
	PassportIssueDate string    `json:"passportIssueDate"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func FromClient(c *models.Client) ClientResponse {
	return ClientResponse{
		ID:                c.ID.String(),
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		MiddleName:        c.MiddleName,
		PassportNumber:    c.PassportNumber,
		PassportSeries:    c.PassportSeries,
		PassportIssueDate: c.PassportIssueDate.Format(id.DateLayout),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}
