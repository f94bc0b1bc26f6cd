package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"phonebook/internal/directory/handler/mocks"
	"phonebook/internal/directory/models"
	dErrors "phonebook/pkg/domain-errors"
	"phonebook/pkg/platform/httputil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.service, logger).Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) postForm(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *HandlerSuite) TestPageWithoutQueryDoesNotSearch() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/html")
	s.Contains(rec.Body.String(), "Add Contact")
	s.Contains(rec.Body.String(), "Search Contacts")
	s.NotContains(rec.Body.String(), "Results")
}

func (s *HandlerSuite) TestPageSearchRendersResultsAndPagination() {
	s.service.EXPECT().
		Search(gomock.Any(), "224", models.PageQuery{Limit: 10, Offset: 10}).
		Return(&models.SearchPage{
			Results: []models.ContactView{{LastName: "Bai", FirstName: "Anny", PhoneNumber: "555-1234"}},
			Total:   25,
		})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/?query=224&page=2", nil))

	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, "<td>Bai</td>")
	s.Contains(body, "<td>Anny</td>")
	s.Contains(body, `href="?query=224&amp;page=1">Previous</a>`)
	s.Contains(body, `href="?query=224&amp;page=3">Next</a>`)
	s.Contains(body, `href="?query=224&amp;page=3">3</a>`)
	s.NotContains(body, "page=4")
}

func (s *HandlerSuite) TestPagePastTheEndLinksBack() {
	s.service.EXPECT().
		Search(gomock.Any(), "7", models.PageQuery{Limit: 10, Offset: math.MaxInt}).
		Return(&models.SearchPage{Results: []models.ContactView{}, Total: 3})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/?query=7&page=922337203685477582", nil))

	s.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, "Page 922337203685477582 is out of range; there are 1 page(s).")
	s.Contains(body, `href="?query=7&amp;page=1">Previous</a>`)
	s.Contains(body, `href="?query=7&amp;page=1">1</a>`)
	s.NotContains(body, "<td>")
	s.NotContains(body, "No contacts found.")
	s.NotContains(body, "Next")
}

func (s *HandlerSuite) TestPageLinksAreWindowedAroundCurrentPage() {
	s.service.EXPECT().Search(gomock.Any(), "2", models.PageQuery{Limit: 10, Offset: 490}).
		Return(&models.SearchPage{
			Results: []models.ContactView{{LastName: "Abe", FirstName: "Al", PhoneNumber: "1"}},
			Total:   1000,
		})

	body := s.do(httptest.NewRequest(http.MethodGet, "/?query=2&page=50", nil)).Body.String()

	s.Contains(body, `href="?query=2&amp;page=46">46</a>`)
	s.Contains(body, `href="?query=2&amp;page=50" class="current">50</a>`)
	s.Contains(body, `href="?query=2&amp;page=54">54</a>`)
	s.NotContains(body, `>45</a>`)
	s.NotContains(body, `>55</a>`)
	s.NotContains(body, `>100</a>`)
	s.Equal(9+2, strings.Count(body, "<a href="))
}

func (s *HandlerSuite) TestPageSizeIsCapped() {
	svc := mocks.NewMockService(s.ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler), WithPageSize(150)).Register(r)
	svc.EXPECT().Search(gomock.Any(), "2", models.PageQuery{Limit: MaxPageSize, Offset: 0}).
		Return(models.EmptyPage())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?query=2", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "No contacts found.")
}

func (s *HandlerSuite) TestPageRendersEscapedFieldsOnce() {
	s.service.EXPECT().Search(gomock.Any(), "2", gomock.Any()).
		Return(&models.SearchPage{
			Results: []models.ContactView{{LastName: "A&amp;B", FirstName: "&lt;b&gt;", PhoneNumber: "1"}},
			Total:   1,
		})

	body := s.do(httptest.NewRequest(http.MethodGet, "/?query=2", nil)).Body.String()

	s.Contains(body, "<td>A&amp;B</td>")
	s.Contains(body, "<td>&lt;b&gt;</td>")
	s.NotContains(body, "&amp;amp;")
	s.NotContains(body, "Previous")
	s.NotContains(body, "Next")
}

func (s *HandlerSuite) TestPageRejectsInvalidQueries() {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", "Query cannot be empty."},
		{"letters", "abc", "Invalid query: only numeric values are allowed for search."},
		{"too long", strings.Repeat("1", 21), "Query must be at most 20 characters."},
		{"too many letter digits", "22222222", "Query may contain at most 7 digits between 2 and 9."},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(httptest.NewRequest(http.MethodGet, "/?query="+url.QueryEscape(tt.query), nil))
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), tt.want)
		})
	}
}

func (s *HandlerSuite) TestPageSearchWithNoMatches() {
	s.service.EXPECT().Search(gomock.Any(), "999", gomock.Any()).Return(models.EmptyPage())

	rec := s.do(httptest.NewRequest(http.MethodGet, "/?query=999&page=-3", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "No contacts found.")
}

func (s *HandlerSuite) TestAddFormSuccess() {
	s.service.EXPECT().AddContactE(gomock.Any(), "Bai", "Anny", "555-1234").
		Return(&models.Contact{ID: 1, LastName: "Bai", FirstName: "Anny", PhoneNumber: "555-1234"}, nil)

	rec := s.postForm(url.Values{
		"last_name":    {" Bai "},
		"first_name":   {"Anny"},
		"phone_number": {"555-1234"},
		"add":          {""},
	})

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Contact added successfully!")
}

func (s *HandlerSuite) TestAddFormValidation() {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing field", url.Values{"last_name": {"Bai"}, "first_name": {"Anny"}}, "All fields are required."},
		{"digits in name", url.Values{"last_name": {"Bai1"}, "first_name": {"Anny"}, "phone_number": {"1"}}, "Last name must contain only alphabetic characters."},
		{"bad phone", url.Values{"last_name": {"Bai"}, "first_name": {"Anny"}, "phone_number": {"abc123"}}, "Phone number may only contain digits"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.postForm(tt.form)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), tt.want)
		})
	}
}

func (s *HandlerSuite) TestAddFormStoreFailure() {
	s.service.EXPECT().AddContactE(gomock.Any(), "Bai", "Anny", "1").
		Return(nil, dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed to store contact"))

	rec := s.postForm(url.Values{"last_name": {"Bai"}, "first_name": {"Anny"}, "phone_number": {"1"}})

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "could not be saved")
	s.NotContains(rec.Body.String(), "db down")
}

func (s *HandlerSuite) TestSearchAPI() {
	s.service.EXPECT().SearchE(gomock.Any(), "2669", models.PageQuery{Limit: 5, Offset: 5}).
		Return(&models.SearchPage{
			Results: []models.ContactView{{LastName: "Bai", FirstName: "Anny", PhoneNumber: "1"}},
			Total:   6,
		}, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/contacts/search?query=2669&page=2&limit=5", nil))

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SearchResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Equal(6, resp.Total)
	s.Equal(2, resp.Page)
	s.Equal(5, resp.Limit)
	s.Equal(2, resp.TotalPages)
	s.Len(resp.Results, 1)
}

func (s *HandlerSuite) TestSearchAPIHugePageReturnsNoRows() {
	s.service.EXPECT().SearchE(gomock.Any(), "7", models.PageQuery{Limit: 10, Offset: math.MaxInt}).
		Return(&models.SearchPage{Results: []models.ContactView{}, Total: 3}, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/contacts/search?query=7&page=922337203685477582", nil))

	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SearchResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Equal(922337203685477582, resp.Page)
	s.Equal(3, resp.Total)
	s.Empty(resp.Results)
}

func (s *HandlerSuite) TestSearchAPIEmptyResultsEncodeAsArray() {
	s.service.EXPECT().SearchE(gomock.Any(), "0011", gomock.Any()).Return(&models.SearchPage{}, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/contacts/search?query=0011", nil))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"results":[]`)
}

func (s *HandlerSuite) TestSearchAPIValidation() {
	for _, target := range []string{
		"/api/contacts/search",
		"/api/contacts/search?query=12a",
		"/api/contacts/search?query=2&limit=abc",
		"/api/contacts/search?query=2&limit=101",
		"/api/contacts/search?query=2&limit=0",
	} {
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		s.Equal(http.StatusBadRequest, rec.Code, target)

		var resp httputil.ErrorResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal("validation_error", resp.Error, target)
	}
}

func (s *HandlerSuite) TestSearchAPIStoreFailure() {
	s.service.EXPECT().SearchE(gomock.Any(), "2", gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "failed to search contacts"))

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/contacts/search?query=2", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "connection refused")
}

func (s *HandlerSuite) TestAddContactAPI() {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.service.EXPECT().AddContactE(gomock.Any(), "O", "Anny", "+1 (555) 123").
		Return(&models.Contact{ID: 7, LastName: "O", FirstName: "Anny", PhoneNumber: "+1 (555) 123", CreatedAt: created}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/contacts",
		strings.NewReader(`{"last_name":"O","first_name":"Anny","phone_number":"+1 (555) 123"}`))
	rec := s.do(req)

	s.Require().Equal(http.StatusCreated, rec.Code)
	var resp ContactResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Equal(int64(7), resp.ID)
	s.Equal("Anny", resp.FirstName)
	s.True(created.Equal(resp.CreatedAt))
}

func (s *HandlerSuite) TestAddContactAPIRejectsBadInput() {
	for _, body := range []string{
		`{"last_name":"","first_name":"Anny","phone_number":"1"}`,
		`{"last_name":"Bai","first_name":"Anny","phone_number":"abc123"}`,
		`{"last_name":"Bai","first_name":"Anny","phone_number":"1","extra":true}`,
		`not json`,
	} {
		rec := s.do(httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(body)))
		s.Equal(http.StatusBadRequest, rec.Code, body)
	}
}
