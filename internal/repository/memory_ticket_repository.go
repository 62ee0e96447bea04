package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

var _ TicketRepository = (*MemoryTicketRepository)(nil)

// MemoryTicketRepository keeps tickets in process memory. It backs development
// runs without a database and the HTTP tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	now     func() time.Time
}

// NewMemoryTicketRepository returns an empty store stamping tickets with the wall clock.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return NewMemoryTicketRepositoryWithClock(time.Now)
}

// NewMemoryTicketRepositoryWithClock returns an empty store using now for created_at.
func NewMemoryTicketRepositoryWithClock(now func() time.Time) *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]domain.Ticket),
		now:     now,
	}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	id, err := newTicketID()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ticket.ID = id
	ticket.Status = domain.DefaultStatus
	ticket.CreatedAt = r.now().UTC()
	r.tickets[id] = *ticket
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, *domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tickets[id]
	if !ok {
		return nil, nil, ErrTicketNotFound
	}
	updated := patch.Apply(current)
	r.tickets[id] = updated
	return &current, &updated, nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ticket.Title), search) &&
			!strings.Contains(strings.ToLower(ticket.Description), search) {
			continue
		}
		result = append(result, ticket)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *MemoryTicketRepository) Stats(_ context.Context, loc *time.Location) (domain.TicketStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.NewTicketStats()
	days := make(map[string]struct{})
	for _, ticket := range r.tickets {
		stats.TotalTickets++
		if ticket.Status == domain.TicketStatusOpen {
			stats.OpenTickets++
		}
		stats.PriorityBreakdown[ticket.Priority]++
		stats.CategoryBreakdown[ticket.Category]++
		days[ticket.CreatedAt.In(loc).Format(time.DateOnly)] = struct{}{}
	}
	if len(days) > 0 {
		stats.AvgTicketsPerDay = float64(stats.TotalTickets) / float64(len(days))
	}
	return stats, nil
}
