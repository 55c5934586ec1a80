package handler

import (
	"strings"
	"time"

	"pawnshop/internal/client/models"
	id "pawnshop/pkg/domain"
	dErrors "pawnshop/pkg/domain-errors"
)

// ClientRequest is the body of POST /clients and PUT /clients/{id}. Both
// require the full identity.
type ClientRequest struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	MiddleName        string `json:"middleName"`
	PassportNumber    string `json:"passportNumber"`
	PassportSeries    string `json:"passportSeries"`
	PassportIssueDate string `json:"passportIssueDate"`

	issueDate time.Time
}

// Validate implements httputil.Validatable.
func (r *ClientRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.PassportIssueDate = strings.TrimSpace(r.PassportIssueDate)
	if r.PassportIssueDate != "" {
		date, err := id.ParseDate(r.PassportIssueDate, "passportIssueDate")
		if err != nil {
			return err
		}
		r.issueDate = date
	}
	return r.Identity().Validate()
}

// Identity returns the normalized identity carried by the request.
func (r *ClientRequest) Identity() models.Identity {
	identity := models.Identity{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		MiddleName:        r.MiddleName,
		PassportNumber:    r.PassportNumber,
		PassportSeries:    r.PassportSeries,
		PassportIssueDate: r.issueDate,
	}
	identity.Normalize()
	return identity
}
