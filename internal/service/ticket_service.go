package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

// Description bounds for classification requests, in characters.
const (
	ClassifyMinLength = 10
	ClassifyMaxLength = 5000
)

// Classifier suggests a category and priority. Implementations never fail.
type Classifier interface {
	Classify(ctx context.Context, description string) domain.Classification
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	classifier Classifier
	statsLoc   *time.Location
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	Dispatcher    events.Dispatcher
	Classifier    Classifier
	StatsLocation *time.Location
	Logger        *zap.Logger
}

// TicketCreateInput describes ticket creation payload. Nil category or priority
// selects the default; a supplied value must be a member of its enumeration.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    *string
	Priority    *string
}

// TicketUpdateInput carries the mutable fields of a partial update.
type TicketUpdateInput struct {
	Status   *string
	Category *string
	Priority *string
}

// TicketListInput holds raw list query values. Empty strings do not filter.
type TicketListInput struct {
	Category string
	Priority string
	Status   string
	Search   string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	loc := deps.StatsLocation
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		classifier: deps.Classifier,
		statsLoc:   loc,
		logger:     logger,
	}
}

// CreateTicket validates input and stores a new open ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	details := map[string]any{}

	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		details["title"] = "title is required"
	case utf8.RuneCountInString(title) > domain.TitleMaxLength:
		details["title"] = fmt.Sprintf("title must be at most %d characters", domain.TitleMaxLength)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		details["description"] = "description is required"
	}

	category := domain.DefaultCategory
	if input.Category != nil {
		category = domain.TicketCategory(*input.Category)
		if !category.Valid() {
			details["category"] = invalidChoice(*input.Category, domain.Categories())
		}
	}
	priority := domain.DefaultPriority
	if input.Priority != nil {
		priority = domain.TicketPriority(*input.Priority)
		if !priority.Valid() {
			details["priority"] = invalidChoice(*input.Priority, domain.Priorities())
		}
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      domain.DefaultStatus,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.publishEvent(ctx, events.New(events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Category: ticket.Category,
		Priority: ticket.Priority,
		Status:   ticket.Status,
	}))
	return ticket, nil
}

// ListTickets returns tickets newest first, narrowed by the supplied filters.
func (s *TicketService) ListTickets(ctx context.Context, input TicketListInput) ([]domain.Ticket, error) {
	var filter repository.TicketFilter
	details := map[string]any{}

	if input.Category != "" {
		category := domain.TicketCategory(input.Category)
		if !category.Valid() {
			details["category"] = invalidChoice(input.Category, domain.Categories())
		}
		filter.Category = &category
	}
	if input.Priority != "" {
		priority := domain.TicketPriority(input.Priority)
		if !priority.Valid() {
			details["priority"] = invalidChoice(input.Priority, domain.Priorities())
		}
		filter.Priority = &priority
	}
	if input.Status != "" {
		status := domain.TicketStatus(input.Status)
		if !status.Valid() {
			details["status"] = invalidChoice(input.Status, domain.Statuses())
		}
		filter.Status = &status
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid filter", details)
	}

	if search := strings.TrimSpace(input.Search); search != "" {
		filter.SearchTerm = &search
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// GetTicket loads a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	return ticket, nil
}

// UpdateTicket applies a partial update of status, category and priority.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	var patch domain.TicketPatch
	details := map[string]any{}

	if input.Status != nil {
		status := domain.TicketStatus(*input.Status)
		if !status.Valid() {
			details["status"] = invalidChoice(*input.Status, domain.Statuses())
		}
		patch.Status = &status
	}
	if input.Category != nil {
		category := domain.TicketCategory(*input.Category)
		if !category.Valid() {
			details["category"] = invalidChoice(*input.Category, domain.Categories())
		}
		patch.Category = &category
	}
	if input.Priority != nil {
		priority := domain.TicketPriority(*input.Priority)
		if !priority.Valid() {
			details["priority"] = invalidChoice(*input.Priority, domain.Priorities())
		}
		patch.Priority = &priority
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket update", details)
	}

	prev, updated, err := s.tickets.Update(ctx, id, patch)
	if err != nil {
		return nil, mapRepoError(err, id)
	}
	for _, event := range events.ChangesBetween(*prev, *updated) {
		s.publishEvent(ctx, event)
	}
	return updated, nil
}

// Stats aggregates ticket counts in the store.
func (s *TicketService) Stats(ctx context.Context) (domain.TicketStats, error) {
	stats, err := s.tickets.Stats(ctx, s.statsLoc)
	if err != nil {
		return domain.TicketStats{}, fmt.Errorf("compute stats: %w", err)
	}
	stats.AvgTicketsPerDay = domain.RoundAverage(stats.AvgTicketsPerDay)
	return stats, nil
}

// Classify validates the trimmed description length and asks the classifier for a
// suggestion. Only validation can fail.
func (s *TicketService) Classify(ctx context.Context, description string) (domain.Classification, error) {
	description = strings.TrimSpace(description)
	length := utf8.RuneCountInString(description)
	if length < ClassifyMinLength || length > ClassifyMaxLength {
		return domain.Classification{}, apperrors.NewValidationError("invalid classification request", map[string]any{
			"description": fmt.Sprintf("description must be between %d and %d characters", ClassifyMinLength, ClassifyMaxLength),
		})
	}
	if s.classifier == nil {
		return domain.FallbackClassification(), nil
	}
	return s.classifier.Classify(ctx, description), nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func mapRepoError(err error, id string) error {
	if errors.Is(err, repository.ErrTicketNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return fmt.Errorf("ticket %s: %w", id, err)
}

func invalidChoice[T ~string](value string, choices []T) string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = string(c)
	}
	return fmt.Sprintf("%q is not a valid choice; expected one of: %s", value, strings.Join(names, ", "))
}
