package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

var ticketRowColumns = []string{"id", "title", "description", "category", "priority", "status", "created_at"}

// sqlShape matches a statement containing the fragments in order.
func sqlShape(fragments ...string) string {
	quoted := make([]string, len(fragments))
	for i, f := range fragments {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return "(?s)" + strings.Join(quoted, ".*")
}

func newMockRepository(t *testing.T) (TicketRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewTicketRepository(mock), mock
}

func textPtr(s string) *string { return &s }

func TestPostgresCreateReturnsIdentity(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(sqlShape("INSERT INTO tickets", "RETURNING id, status, created_at")).
		WithArgs(pgxmock.AnyArg(), "Refund", "Charged twice", "billing", "high", "open").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at"}).
			AddRow("0195a1b2-0000-7000-8000-000000000001", domain.TicketStatusOpen, created))

	ticket := &domain.Ticket{
		Title:       "Refund",
		Description: "Charged twice",
		Category:    domain.TicketCategoryBilling,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusClosed,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	assert.Equal(t, "0195a1b2-0000-7000-8000-000000000001", ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, created, ticket.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListFiltersAndOrdering(t *testing.T) {
	repo, mock := newMockRepository(t)
	newer := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	mock.ExpectQuery(sqlShape(
		"FROM tickets WHERE 1=1",
		"category=$1",
		"(title ILIKE $2 OR description ILIKE $2)",
		"ORDER BY created_at DESC, id DESC",
	)).
		WithArgs("billing", `%50\%\_off%`).
		WillReturnRows(pgxmock.NewRows(ticketRowColumns).
			AddRow("id-2", "Coupon 50%_off", "rejected", domain.TicketCategoryBilling, domain.TicketPriorityLow, domain.TicketStatusOpen, newer).
			AddRow("id-1", "Old coupon", "50%_off failed", domain.TicketCategoryBilling, domain.TicketPriorityHigh, domain.TicketStatusClosed, older))

	category := domain.TicketCategoryBilling
	search := " 50%_off "
	tickets, err := repo.List(context.Background(), TicketFilter{Category: &category, SearchTerm: &search})
	require.NoError(t, err)

	require.Len(t, tickets, 2)
	assert.Equal(t, "id-2", tickets[0].ID)
	assert.Equal(t, "id-1", tickets[1].ID)
	assert.Equal(t, domain.TicketPriorityHigh, tickets[1].Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListWithoutMatchesIsEmpty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(sqlShape("WHERE 1=1 ORDER BY created_at DESC, id DESC")).
		WithArgs().
		WillReturnRows(pgxmock.NewRows(ticketRowColumns))

	tickets, err := repo.List(context.Background(), TicketFilter{})
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateReturnsPreviousAndUpdated(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := "0195a1b2-0000-7000-8000-000000000002"
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(sqlShape(
		"WITH prev AS",
		"FOR UPDATE",
		"UPDATE tickets t SET",
		"status   = COALESCE($2, t.status)",
		"RETURNING t.id",
		"prev.category, prev.priority, prev.status",
	)).
		WithArgs(id, textPtr("closed"), (*string)(nil), textPtr("critical")).
		WillReturnRows(pgxmock.NewRows(append(append([]string{}, ticketRowColumns...), "prev_category", "prev_priority", "prev_status")).
			AddRow(id, "VPN", "Cannot connect", domain.TicketCategoryTechnical, domain.TicketPriorityCritical, domain.TicketStatusClosed, created,
				domain.TicketCategoryTechnical, domain.TicketPriorityLow, domain.TicketStatusOpen))

	status := domain.TicketStatusClosed
	priority := domain.TicketPriorityCritical
	prev, updated, err := repo.Update(context.Background(), id, domain.TicketPatch{Status: &status, Priority: &priority})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, prev.Status)
	assert.Equal(t, domain.TicketPriorityLow, prev.Priority)
	assert.Equal(t, domain.TicketCategoryTechnical, prev.Category)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
	assert.Equal(t, "VPN", prev.Title)
	assert.Equal(t, created, prev.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := "0195a1b2-0000-7000-8000-000000000003"

	mock.ExpectQuery(sqlShape("WITH prev AS")).
		WithArgs(id, textPtr("resolved"), (*string)(nil), (*string)(nil)).
		WillReturnError(pgx.ErrNoRows)

	status := domain.TicketStatusResolved
	_, _, err := repo.Update(context.Background(), id, domain.TicketPatch{Status: &status})
	assert.ErrorIs(t, err, ErrTicketNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMalformedIDSkipsQuery(t *testing.T) {
	repo, mock := newMockRepository(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrTicketNotFound)

	status := domain.TicketStatusClosed
	_, _, err = repo.Update(context.Background(), "not-a-uuid", domain.TicketPatch{Status: &status})
	assert.ErrorIs(t, err, ErrTicketNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStatsSingleStatement(t *testing.T) {
	repo, mock := newMockRepository(t)
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	mock.ExpectQuery(sqlShape(
		"WITH daily AS",
		"GROUP BY (created_at AT TIME ZONE $1)::date",
		"SELECT COUNT(*)",
		"COUNT(*) FILTER (WHERE status = $2)",
		"COALESCE((SELECT AVG(n) FROM daily), 0)::float8",
		"COUNT(*) FILTER (WHERE priority = $3)",
		"COUNT(*) FILTER (WHERE priority = $6)",
		"COUNT(*) FILTER (WHERE category = $7)",
		"COUNT(*) FILTER (WHERE category = $10)",
		"FROM tickets",
	)).
		WithArgs("Europe/Berlin", "open",
			"low", "medium", "high", "critical",
			"billing", "technical", "account", "general").
		WillReturnRows(pgxmock.NewRows([]string{
			"total", "open", "avg",
			"low", "medium", "high", "critical",
			"billing", "technical", "account", "general",
		}).AddRow(int64(3), int64(2), float64(1.5),
			int64(1), int64(0), int64(2), int64(0),
			int64(0), int64(1), int64(0), int64(2)))

	stats, err := repo.Stats(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalTickets)
	assert.Equal(t, int64(2), stats.OpenTickets)
	assert.Equal(t, 1.5, stats.AvgTicketsPerDay)
	assert.Equal(t, map[domain.TicketPriority]int64{
		domain.TicketPriorityLow:      1,
		domain.TicketPriorityMedium:   0,
		domain.TicketPriorityHigh:     2,
		domain.TicketPriorityCritical: 0,
	}, stats.PriorityBreakdown)
	assert.Equal(t, map[domain.TicketCategory]int64{
		domain.TicketCategoryBilling:   0,
		domain.TicketCategoryTechnical: 1,
		domain.TicketCategoryAccount:   0,
		domain.TicketCategoryGeneral:   2,
	}, stats.CategoryBreakdown)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStatsError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(sqlShape("WITH daily AS")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	_, err := repo.Stats(context.Background(), time.UTC)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}
