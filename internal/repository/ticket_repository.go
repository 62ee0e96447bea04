package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// ErrTicketNotFound is returned when no ticket matches the given id.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketFilter captures list parameters. Nil fields do not filter.
type TicketFilter struct {
	Category   *domain.TicketCategory
	Priority   *domain.TicketPriority
	Status     *domain.TicketStatus
	SearchTerm *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create stores the ticket, assigning ID, Status and CreatedAt.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update applies patch in a single round trip and returns the ticket as it was
	// before and after the change.
	Update(ctx context.Context, id string, patch domain.TicketPatch) (prev, updated *domain.Ticket, err error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// List returns matching tickets newest first, ties broken by id descending.
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Stats aggregates counts in the store, grouping days in loc.
	Stats(ctx context.Context, loc *time.Location) (domain.TicketStats, error)
}

const ticketColumns = `id, title, description, category, priority, status, created_at`

// Querier is the part of a pgx pool the ticket store needs. *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	id, err := newTicketID()
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, status, created_at`
	return r.db.QueryRow(ctx, query,
		id,
		ticket.Title,
		ticket.Description,
		string(ticket.Category),
		string(ticket.Priority),
		string(domain.DefaultStatus),
	).Scan(&ticket.ID, &ticket.Status, &ticket.CreatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, *domain.Ticket, error) {
	if !validTicketID(id) {
		return nil, nil, ErrTicketNotFound
	}
	if patch.Empty() {
		ticket, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		prev := *ticket
		return &prev, ticket, nil
	}

	const query = `
        WITH prev AS (
            SELECT id, category, priority, status FROM tickets WHERE id=$1 FOR UPDATE
        )
        UPDATE tickets t SET
            status   = COALESCE($2, t.status),
            category = COALESCE($3, t.category),
            priority = COALESCE($4, t.priority)
        FROM prev
        WHERE t.id = prev.id
        RETURNING t.id, t.title, t.description, t.category, t.priority, t.status, t.created_at,
                  prev.category, prev.priority, prev.status`

	var updated domain.Ticket
	var prevCategory domain.TicketCategory
	var prevPriority domain.TicketPriority
	var prevStatus domain.TicketStatus
	err := r.db.QueryRow(ctx, query,
		id,
		optionalText(patch.Status),
		optionalText(patch.Category),
		optionalText(patch.Priority),
	).Scan(
		&updated.ID,
		&updated.Title,
		&updated.Description,
		&updated.Category,
		&updated.Priority,
		&updated.Status,
		&updated.CreatedAt,
		&prevCategory,
		&prevPriority,
		&prevStatus,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	prev := updated
	prev.Category = prevCategory
	prev.Priority = prevPriority
	prev.Status = prevStatus
	return &prev, &updated, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validTicketID(id) {
		return nil, ErrTicketNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+escapeLike(strings.TrimSpace(*filter.SearchTerm))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", placeholder, placeholder))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// Stats computes every figure in one statement; no ticket rows leave the database.
func (r *ticketRepository) Stats(ctx context.Context, loc *time.Location) (domain.TicketStats, error) {
	priorities := domain.Priorities()
	categories := domain.Categories()

	args := []any{loc.String(), string(domain.TicketStatusOpen)}
	selects := []string{
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE status = $2)",
		"COALESCE((SELECT AVG(n) FROM daily), 0)::float8",
	}
	for _, p := range priorities {
		args = append(args, string(p))
		selects = append(selects, fmt.Sprintf("COUNT(*) FILTER (WHERE priority = $%d)", len(args)))
	}
	for _, c := range categories {
		args = append(args, string(c))
		selects = append(selects, fmt.Sprintf("COUNT(*) FILTER (WHERE category = $%d)", len(args)))
	}

	query := fmt.Sprintf(`
        WITH daily AS (
            SELECT COUNT(*) AS n FROM tickets GROUP BY (created_at AT TIME ZONE $1)::date
        )
        SELECT %s FROM tickets`, strings.Join(selects, ", "))

	stats := domain.NewTicketStats()
	priorityCounts := make([]int64, len(priorities))
	categoryCounts := make([]int64, len(categories))

	dest := []any{&stats.TotalTickets, &stats.OpenTickets, &stats.AvgTicketsPerDay}
	for i := range priorityCounts {
		dest = append(dest, &priorityCounts[i])
	}
	for i := range categoryCounts {
		dest = append(dest, &categoryCounts[i])
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(dest...); err != nil {
		return domain.TicketStats{}, err
	}

	for i, p := range priorities {
		stats.PriorityBreakdown[p] = priorityCounts[i]
	}
	for i, c := range categories {
		stats.CategoryBreakdown[c] = categoryCounts[i]
	}
	return stats, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Priority,
			&ticket.Status,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// newTicketID returns a time-ordered id so that id order follows creation order.
func newTicketID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}
	return id.String(), nil
}

func validTicketID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func optionalText[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
