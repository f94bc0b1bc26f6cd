package handler

import (
	"time"

	"phonebook/internal/directory/models"
)

// SearchResponse is one page of a keypad search. Contact fields are
// HTML-escaped.
type SearchResponse struct {
	Results    []models.ContactView `json:"results"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

type ContactResponse struct {
	ID          int64     `json:"id"`
	LastName    string    `json:"last_name"`
	FirstName   string    `json:"first_name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSearchResponse(page *models.SearchPage, req *SearchRequest) *SearchResponse {
	results := page.Results
	if results == nil {
		results = []models.ContactView{}
	}
	return &SearchResponse{
		Results:    results,
		Total:      page.Total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: models.TotalPages(page.Total, req.Limit),
	}
}

func toContactResponse(c *models.Contact) *ContactResponse {
	view := c.View()
	return &ContactResponse{
		ID:          c.ID,
		LastName:    view.LastName,
		FirstName:   view.FirstName,
		PhoneNumber: view.PhoneNumber,
		CreatedAt:   c.CreatedAt,
	}
}
