package handler

import (
	"net/url"
	"strconv"
	"strings"

	"phonebook/internal/directory/keypad"
	dErrors "phonebook/pkg/domain-errors"
	"phonebook/pkg/validation"
)

// SearchRequest is a keypad query plus the page to show.
type SearchRequest struct {
	Query string `validate:"notblank,digits,max=20"`
	Page  int    `validate:"min=1"`
	Limit int    `validate:"min=1,max=100"` // MaxPageSize
}

// Normalize trims the query.
func (r *SearchRequest) Normalize() {
	if r == nil {
		return
	}
	r.Query = strings.TrimSpace(r.Query)
}

// Validate checks the query is digits only and will not expand into more
// patterns than a search is allowed to issue.
func (r *SearchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if strings.TrimSpace(r.Query) == "" {
		return dErrors.New(dErrors.CodeValidation, "query cannot be empty")
	}
	if !validation.IsDigits(r.Query) {
		return dErrors.New(dErrors.CodeValidation, "invalid query: only numeric values are allowed for search")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if keypad.MappedDigits(r.Query) > keypad.MaxMappedDigits {
		return dErrors.Newf(dErrors.CodeValidation, "query may contain at most %d digits between 2 and 9", keypad.MaxMappedDigits)
	}
	return nil
}

// searchRequestFromQuery reads query, page and limit from the URL. A missing
// or malformed page means page 1; limit falls back to defaultLimit.
func searchRequestFromQuery(values url.Values, defaultLimit int) (*SearchRequest, error) {
	req := &SearchRequest{
		Query: values.Get("query"),
		Page:  pageNumber(values.Get("page")),
		Limit: defaultLimit,
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "limit must be a number")
		}
		req.Limit = limit
	}
	return req, nil
}

// pageNumber parses a 1-based page number; anything unusable is page 1.
func pageNumber(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// AddContactRequest is the body of POST /api/contacts and the fields of the
// add form.
type AddContactRequest struct {
	LastName    string `json:"last_name" validate:"notblank,alphaname,max=50"`
	FirstName   string `json:"first_name" validate:"notblank,alphaname,max=50"`
	PhoneNumber string `json:"phone_number" validate:"notblank,phone,max=20"`
}

// Normalize trims every field.
func (r *AddContactRequest) Normalize() {
	if r == nil {
		return
	}
	r.LastName = strings.TrimSpace(r.LastName)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Validate reports missing fields before checking any field's format.
func (r *AddContactRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.LastName == "" || r.FirstName == "" || r.PhoneNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "all fields are required")
	}
	return validation.Validate(r)
}
