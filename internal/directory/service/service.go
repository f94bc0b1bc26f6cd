package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"phonebook/internal/directory/keypad"
	"phonebook/internal/directory/metrics"
	"phonebook/internal/directory/models"
	dErrors "phonebook/pkg/domain-errors"
	"phonebook/pkg/requestcontext"
	"phonebook/pkg/validation"
)

// Store defines the persistence interface for contacts.
// Error Contract:
// - FindByPrefixPatterns returns Total over every match and at most
//   page.Limit rows ordered by id, both from one snapshot
// - Failures are infrastructure errors; there is no not-found sentinel
type Store interface {
	Insert(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	FindByPrefixPatterns(ctx context.Context, patterns []keypad.Pattern, page models.PageQuery) (*models.ContactMatches, error)
}

// Publisher announces stored contacts to downstream consumers.
type Publisher interface {
	ContactAdded(ctx context.Context, contact *models.Contact) error
}

// MaxPageLimit caps the rows a single search may return.
const MaxPageLimit = 100

type Option func(*Service)

// Service answers keypad searches and ingests new contacts.
type Service struct {
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.New(slog.DiscardHandler)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("phonebook/directory")
	}
	return svc
}

// WithPublisher sets where contact.added events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// Search returns one page of contacts whose first or last name can be
// spelled by query on a phone keypad. It never fails: invalid queries and
// store errors both produce an empty page.
func (s *Service) Search(ctx context.Context, query string, page models.PageQuery) *models.SearchPage {
	result, err := s.SearchE(ctx, query, page)
	if err != nil {
		return models.EmptyPage()
	}
	return result
}

// SearchE is Search with the store failure surfaced as a CodeInternal error.
// Queries that are not all digits or spell nothing return an empty page and
// no error.
func (s *Service) SearchE(ctx context.Context, query string, page models.PageQuery) (*models.SearchPage, error) {
	ctx, span := s.tracer.Start(ctx, "directory.search",
		trace.WithAttributes(attribute.Int("query.length", len(query))))
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSearchLatency(time.Since(start).Seconds())
		}
	}()

	if !validation.IsDigits(query) {
		s.countSearch(metrics.OutcomeRejected)
		return models.EmptyPage(), nil
	}

	patterns := keypad.Expand(query)
	span.SetAttributes(attribute.Int("search.patterns", len(patterns)))
	if len(patterns) == 0 {
		s.countSearch(metrics.OutcomeMiss)
		return models.EmptyPage(), nil
	}
	if s.metrics != nil {
		s.metrics.ObserveSearchPatterns(len(patterns))
	}

	storeStart := time.Now()
	matches, err := s.store.FindByPrefixPatterns(ctx, patterns, clampPage(page))
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation("find_by_prefix_patterns", time.Since(storeStart).Seconds())
	}
	if err != nil {
		s.countSearch(metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store search failed")
		s.logger.ErrorContext(ctx, "contact search failed",
			"error", err,
			"patterns", len(patterns),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search contacts")
	}

	result := &models.SearchPage{
		Results: make([]models.ContactView, 0, len(matches.Rows)),
		Total:   matches.Total,
	}
	for _, c := range matches.Rows {
		result.Results = append(result.Results, c.View())
	}

	span.SetAttributes(attribute.Int("search.total", result.Total))
	if result.Total > 0 {
		s.countSearch(metrics.OutcomeHit)
	} else {
		s.countSearch(metrics.OutcomeMiss)
	}
	return result, nil
}

// AddContact stores a contact and reports whether it was stored. Invalid
// phone numbers and store failures both report false.
func (s *Service) AddContact(ctx context.Context, lastName, firstName, phoneNumber string) bool {
	_, err := s.AddContactE(ctx, lastName, firstName, phoneNumber)
	return err == nil
}

// AddContactE is AddContact returning the stored contact, or a CodeValidation
// error for rejected input and a CodeInternal error for store failures.
// Fields are trimmed and HTML-escaped before they reach the store.
func (s *Service) AddContactE(ctx context.Context, lastName, firstName, phoneNumber string) (*models.Contact, error) {
	ctx, span := s.tracer.Start(ctx, "directory.add_contact")
	defer span.End()

	contact, err := models.NewContact(lastName, firstName, phoneNumber)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementContactsRejected("validation")
		}
		span.SetStatus(codes.Error, "invalid contact")
		s.logger.InfoContext(ctx, "contact rejected",
			"reason", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	storeStart := time.Now()
	stored, err := s.store.Insert(ctx, contact)
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation("insert", time.Since(storeStart).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementContactsRejected("store_error")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "store insert failed")
		s.logger.ErrorContext(ctx, "failed to store contact",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store contact")
	}

	span.SetAttributes(attribute.Int64("contact.id", stored.ID))
	if s.metrics != nil {
		s.metrics.IncrementContactsAdded()
	}
	s.logger.InfoContext(ctx, "contact added",
		"contact_id", stored.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, stored)
	return stored, nil
}

// publish emits contact.added. The contact is already stored, so a failed
// publish is logged and counted but does not fail the add.
func (s *Service) publish(ctx context.Context, contact *models.Contact) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.ContactAdded(ctx, contact); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementEventPublishFailures()
		}
		s.logger.WarnContext(ctx, "failed to publish contact event",
			"error", err,
			"contact_id", contact.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) countSearch(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSearches(outcome)
	}
}

func clampPage(page models.PageQuery) models.PageQuery {
	page.Limit = min(max(page.Limit, 1), MaxPageLimit)
	page.Offset = max(page.Offset, 0)
	return page
}
