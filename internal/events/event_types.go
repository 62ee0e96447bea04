package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
)

// AllTypes lists every event type the services publish.
func AllTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketStatusChanged,
		EventTicketCategoryChanged,
		EventTicketPriorityChanged,
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Status   domain.TicketStatus   `json:"status"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCategoryChangedPayload payload.
type TicketCategoryChangedPayload struct {
	OldCategory domain.TicketCategory `json:"old_category"`
	NewCategory domain.TicketCategory `json:"new_category"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// ChangesBetween returns one event per field that differs between prev and next.
func ChangesBetween(prev, next domain.Ticket) []Event {
	var out []Event
	if prev.Status != next.Status {
		out = append(out, New(EventTicketStatusChanged, next.ID, TicketStatusChangedPayload{
			OldStatus: prev.Status,
			NewStatus: next.Status,
		}))
	}
	if prev.Category != next.Category {
		out = append(out, New(EventTicketCategoryChanged, next.ID, TicketCategoryChangedPayload{
			OldCategory: prev.Category,
			NewCategory: next.Category,
		}))
	}
	if prev.Priority != next.Priority {
		out = append(out, New(EventTicketPriorityChanged, next.ID, TicketPriorityChangedPayload{
			OldPriority: prev.Priority,
			NewPriority: next.Priority,
		}))
	}
	return out
}
