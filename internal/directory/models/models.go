package models

import (
	"html"
	"math"
	"strings"
	"time"

	dErrors "phonebook/pkg/domain-errors"
	"phonebook/pkg/validation"
)

// Column limits of the contacts table.
const (
	MaxNameLength  = 50
	MaxPhoneLength = 20
)

// Contact is a stored directory entry. Name and phone fields are kept in
// their display-escaped form; ID and CreatedAt are assigned by the store.
type Contact struct {
	ID          int64
	LastName    string
	FirstName   string
	PhoneNumber string
	CreatedAt   time.Time
}

// NewContact trims and checks the stored-field invariants. Name character
// policy is enforced at the boundary; the phone charset is enforced here.
func NewContact(lastName, firstName, phoneNumber string) (*Contact, error) {
	c := &Contact{
		LastName:    strings.TrimSpace(lastName),
		FirstName:   strings.TrimSpace(firstName),
		PhoneNumber: strings.TrimSpace(phoneNumber),
	}
	switch {
	case c.LastName == "":
		return nil, dErrors.New(dErrors.CodeValidation, "last_name is required")
	case c.FirstName == "":
		return nil, dErrors.New(dErrors.CodeValidation, "first_name is required")
	case !validation.IsPhone(c.PhoneNumber):
		return nil, dErrors.New(dErrors.CodeValidation, "phone_number may only contain digits, spaces and the symbols + - ( )")
	}

	c.LastName = Escape(c.LastName)
	c.FirstName = Escape(c.FirstName)
	c.PhoneNumber = Escape(c.PhoneNumber)

	switch {
	case len(c.LastName) > MaxNameLength:
		return nil, dErrors.Newf(dErrors.CodeValidation, "last_name must be at most %d characters", MaxNameLength)
	case len(c.FirstName) > MaxNameLength:
		return nil, dErrors.Newf(dErrors.CodeValidation, "first_name must be at most %d characters", MaxNameLength)
	case len(c.PhoneNumber) > MaxPhoneLength:
		return nil, dErrors.Newf(dErrors.CodeValidation, "phone_number must be at most %d characters", MaxPhoneLength)
	}
	return c, nil
}

// View returns the display-safe projection of the contact.
func (c *Contact) View() ContactView {
	return ContactView{
		LastName:    DisplaySafe(c.LastName),
		FirstName:   DisplaySafe(c.FirstName),
		PhoneNumber: DisplaySafe(c.PhoneNumber),
	}
}

// ContactView is what search results expose. Every field is HTML-escaped
// exactly once.
type ContactView struct {
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	PhoneNumber string `json:"phone_number"`
}

// SearchPage is one pagination window of a search. Total counts every match,
// not just Results.
type SearchPage struct {
	Results []ContactView `json:"results"`
	Total   int           `json:"total"`
}

// EmptyPage is the result of a search that matched nothing or failed.
func EmptyPage() *SearchPage {
	return &SearchPage{Results: []ContactView{}, Total: 0}
}

// PageQuery is a (limit, offset) window over results ordered by id.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageFromNumber converts a 1-based page number into a window of size rows.
// A page whose offset would overflow gets the largest offset, which lies past
// every result.
func PageFromNumber(page, size int) PageQuery {
	if page < 1 {
		page = 1
	}
	if size > 0 && page-1 > math.MaxInt/size {
		return PageQuery{Limit: size, Offset: math.MaxInt}
	}
	return PageQuery{Limit: size, Offset: (page - 1) * size}
}

// TotalPages returns how many pages of size rows hold total results.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Escape converts HTML special characters, quotes included.
func Escape(s string) string {
	return html.EscapeString(s)
}

// DisplaySafe escapes s for HTML without double-escaping values that were
// escaped on the way into the store.
func DisplaySafe(s string) string {
	return html.EscapeString(html.UnescapeString(s))
}

// ContactMatches is a store's answer to a prefix search: one window of rows
// in id order plus the count of every matching row, read from one snapshot.
type ContactMatches struct {
	Rows  []*Contact
	Total int
}
