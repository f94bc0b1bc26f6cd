package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"phonebook/internal/directory/models"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))

// pageLinkWindow is the most numbered page links shown at once.
const pageLinkWindow = 9

// pageView is everything the directory page renders.
type pageView struct {
	Error      string
	Message    string
	Form       AddContactRequest
	Query      string
	Searched   bool
	Results    []resultRow
	Total      int
	Page       int
	LastPage   int
	OutOfRange bool
	Prev       string
	Next       string
	Pages      []pageLink
}

// resultRow holds contact fields that are already HTML-escaped, so the
// template must not escape them a second time.
type resultRow struct {
	LastName    template.HTML
	FirstName   template.HTML
	PhoneNumber template.HTML
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

func (v *pageView) setResults(query string, page, size int, result *models.SearchPage) {
	v.Searched = true
	v.Total = result.Total
	v.Results = make([]resultRow, 0, len(result.Results))
	for _, c := range result.Results {
		// ContactView fields come out of models.DisplaySafe.
		v.Results = append(v.Results, resultRow{
			LastName:    template.HTML(c.LastName),
			FirstName:   template.HTML(c.FirstName),
			PhoneNumber: template.HTML(c.PhoneNumber),
		})
	}

	totalPages := models.TotalPages(result.Total, size)
	if totalPages == 0 {
		return
	}
	v.Page = page
	v.LastPage = totalPages
	v.OutOfRange = page > totalPages

	// Past the end, Previous leads back to the last page.
	if page > 1 {
		v.Prev = pageURL(query, min(page-1, totalPages))
	}
	first, last := linkWindow(min(page, totalPages), totalPages)
	for i := first; i <= last; i++ {
		v.Pages = append(v.Pages, pageLink{Number: i, URL: pageURL(query, i), Current: i == page})
	}
	if page < totalPages {
		v.Next = pageURL(query, page+1)
	}
}

// linkWindow picks up to pageLinkWindow consecutive pages around current.
func linkWindow(current, totalPages int) (first, last int) {
	first = max(1, current-pageLinkWindow/2)
	last = min(totalPages, first+pageLinkWindow-1)
	first = max(1, last-pageLinkWindow+1)
	return first, last
}

func pageURL(query string, page int) string {
	return "?query=" + url.QueryEscape(query) + "&page=" + strconv.Itoa(page)
}

// renderPage executes the template into a buffer first so a template error
// still produces a clean 500.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, view *pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
