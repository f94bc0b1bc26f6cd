package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"phonebook/internal/directory/models"
	ratelimitmodels "phonebook/internal/ratelimit/models"
	dErrors "phonebook/pkg/domain-errors"
	"phonebook/pkg/platform/httputil"
	"phonebook/pkg/requestcontext"
)

const (
	// DefaultPageSize is how many contacts one page shows.
	DefaultPageSize = 10
	// MaxPageSize bounds the page size and the API limit.
	MaxPageSize = 100
)

// Service defines the directory operations the handlers need.
// Search is the fail-quiet variant used by the HTML page; the JSON API uses
// SearchE so store failures surface as 500.
type Service interface {
	Search(ctx context.Context, query string, page models.PageQuery) *models.SearchPage
	SearchE(ctx context.Context, query string, page models.PageQuery) (*models.SearchPage, error)
	AddContactE(ctx context.Context, lastName, firstName, phoneNumber string) (*models.Contact, error)
}

// RateLimiter wraps routes with per-scope admission control.
type RateLimiter interface {
	RateLimit(scope ratelimitmodels.Scope) func(http.Handler) http.Handler
	RateLimitWhen(scope ratelimitmodels.Scope, applies func(*http.Request) bool) func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithPageSize sets the HTML page size and the API default limit, capped at
// MaxPageSize.
func WithPageSize(size int) Option {
	return func(h *Handler) {
		if size > 0 {
			h.pageSize = min(size, MaxPageSize)
		}
	}
}

// WithRateLimiter limits search and add routes. Without it routes are
// unlimited.
func WithRateLimiter(rl RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = rl
	}
}

// WithMiddleware adds middleware to the form and JSON write routes, such as
// a body size limit.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.writeMiddleware = append(h.writeMiddleware, mw...)
	}
}

type Handler struct {
	service         Service
	logger          *slog.Logger
	pageSize        int
	limiter         RateLimiter
	writeMiddleware []func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasQuery reports whether a page request is a search. Plain page loads are
// not counted against the search limit.
func HasQuery(r *http.Request) bool {
	return r.URL.Query().Has("query")
}

func (h *Handler) Register(r chi.Router) {
	searchPage, search, add := passthrough, passthrough, passthrough
	if h.limiter != nil {
		searchPage = h.limiter.RateLimitWhen(ratelimitmodels.ScopeSearch, HasQuery)
		search = h.limiter.RateLimit(ratelimitmodels.ScopeSearch)
		add = h.limiter.RateLimit(ratelimitmodels.ScopeAdd)
	}
	writes := append([]func(http.Handler) http.Handler{add}, h.writeMiddleware...)

	r.With(searchPage).Get("/", h.HandlePage)
	r.With(writes...).Post("/", h.HandleAddForm)
	r.With(search).Get("/api/contacts/search", h.HandleSearch)
	r.With(writes...).Post("/api/contacts", h.HandleAddContact)
}

func passthrough(next http.Handler) http.Handler { return next }

// HandlePage renders the directory page, running a search when query is set.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	view := &pageView{}
	if !HasQuery(r) {
		h.renderPage(w, r, http.StatusOK, view)
		return
	}

	status := h.searchInto(r, view)
	h.renderPage(w, r, status, view)
}

func (h *Handler) searchInto(r *http.Request, view *pageView) int {
	ctx := r.Context()
	values := r.URL.Query()
	req := &SearchRequest{
		Query: values.Get("query"),
		Page:  pageNumber(values.Get("page")),
		Limit: h.pageSize,
	}
	view.Query = req.Query
	if err := httputil.PrepareRequest(req); err != nil {
		view.Error = errorMessage(err)
		return http.StatusBadRequest
	}

	result := h.service.Search(ctx, req.Query, models.PageFromNumber(req.Page, req.Limit))
	view.setResults(req.Query, req.Page, req.Limit, result)
	return http.StatusOK
}

// HandleAddForm adds a contact from the page form and re-renders the page.
func (h *Handler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	view := &pageView{}

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "failed to parse form", "error", err, "request_id", requestID)
		view.Error = "Invalid form submission."
		h.renderPage(w, r, http.StatusBadRequest, view)
		return
	}

	req := &AddContactRequest{
		LastName:    r.PostFormValue("last_name"),
		FirstName:   r.PostFormValue("first_name"),
		PhoneNumber: r.PostFormValue("phone_number"),
	}
	if err := httputil.PrepareRequest(req); err != nil {
		view.Form = *req
		view.Error = errorMessage(err)
		h.renderPage(w, r, http.StatusBadRequest, view)
		return
	}

	if _, err := h.service.AddContactE(ctx, req.LastName, req.FirstName, req.PhoneNumber); err != nil {
		view.Form = *req
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			view.Error = errorMessage(err)
			h.renderPage(w, r, http.StatusBadRequest, view)
			return
		}
		h.logger.ErrorContext(ctx, "add contact failed", "error", err, "request_id", requestID)
		view.Error = "The contact could not be saved. Please try again later."
		h.renderPage(w, r, http.StatusInternalServerError, view)
		return
	}

	view.Message = "Contact added successfully!"
	h.renderPage(w, r, http.StatusOK, view)
}

// HandleSearch answers GET /api/contacts/search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := searchRequestFromQuery(r.URL.Query(), h.pageSize)
	if err == nil {
		err = httputil.PrepareRequest(req)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "invalid search request", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SearchE(ctx, req.Query, models.PageFromNumber(req.Page, req.Limit))
	if err != nil {
		h.logger.ErrorContext(ctx, "search failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSearchResponse(result, req))
}

// HandleAddContact answers POST /api/contacts.
func (h *Handler) HandleAddContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddContactRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	contact, err := h.service.AddContactE(ctx, req.LastName, req.FirstName, req.PhoneNumber)
	if err != nil {
		h.logger.ErrorContext(ctx, "add contact failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toContactResponse(contact))
}

// errorMessage turns a validation error into a sentence for the page.
func errorMessage(err error) string {
	msg := strings.ReplaceAll(err.Error(), "_", " ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
