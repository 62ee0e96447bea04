package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// CreateTicketRequest payload. Status, id and created_at are not accepted from
// clients and are dropped during decoding.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    Choice `json:"category"`
	Priority    Choice `json:"priority"`
}

// NullFields lists the choice fields sent as an explicit null.
func (r CreateTicketRequest) NullFields() []string {
	return nullFields([]string{"category", "priority"}, r.Category, r.Priority)
}

// UpdateTicketRequest payload. Only the listed fields are mutable.
type UpdateTicketRequest struct {
	Status   Choice `json:"status"`
	Category Choice `json:"category"`
	Priority Choice `json:"priority"`
}

// NullFields lists the choice fields sent as an explicit null.
func (r UpdateTicketRequest) NullFields() []string {
	return nullFields([]string{"status", "category", "priority"}, r.Status, r.Category, r.Priority)
}

// Choice is an optional enum field. An omitted key leaves it zero; a JSON null sets Null.
type Choice struct {
	Value *string
	Null  bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Choice) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.Value, c.Null = nil, true
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.Value, c.Null = &v, false
	return nil
}

func nullFields(names []string, choices ...Choice) []string {
	var out []string
	for i, c := range choices {
		if c.Null {
			out = append(out, names[i])
		}
	}
	return out
}

// TicketResponse represents a stored ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
}

// StatsResponse is the aggregate report.
type StatsResponse struct {
	TotalTickets      int64            `json:"total_tickets"`
	OpenTickets       int64            `json:"open_tickets"`
	AvgTicketsPerDay  float64          `json:"avg_tickets_per_day"`
	PriorityBreakdown map[string]int64 `json:"priority_breakdown"`
	CategoryBreakdown map[string]int64 `json:"category_breakdown"`
}

// ClassifyRequest payload.
type ClassifyRequest struct {
	Description string `json:"description"`
}

// ClassifyResponse carries the suggestion.
type ClassifyResponse struct {
	SuggestedCategory domain.TicketCategory `json:"suggested_category"`
	SuggestedPriority domain.TicketPriority `json:"suggested_priority"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

// NewStatsResponse maps the report, keeping every enumeration key.
func NewStatsResponse(s domain.TicketStats) StatsResponse {
	resp := StatsResponse{
		TotalTickets:      s.TotalTickets,
		OpenTickets:       s.OpenTickets,
		AvgTicketsPerDay:  s.AvgTicketsPerDay,
		PriorityBreakdown: make(map[string]int64, len(domain.Priorities())),
		CategoryBreakdown: make(map[string]int64, len(domain.Categories())),
	}
	for _, p := range domain.Priorities() {
		resp.PriorityBreakdown[string(p)] = s.PriorityBreakdown[p]
	}
	for _, c := range domain.Categories() {
		resp.CategoryBreakdown[string(c)] = s.CategoryBreakdown[c]
	}
	return resp
}
