package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/persistence"
)

// newPostgresRepository connects to POSTGRES_TEST_DSN and empties the tickets table.
// The database must be dedicated to tests.
func newPostgresRepository(t *testing.T) (TicketRepository, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE tickets`)
	require.NoError(t, err)
	return NewTicketRepository(pool), pool
}

func insertTicketAt(t *testing.T, pool *pgxpool.Pool, createdAt time.Time, category domain.TicketCategory, priority domain.TicketPriority) string {
	t.Helper()
	id, err := newTicketID()
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(),
		`INSERT INTO tickets (id, title, description, category, priority, status, created_at)
         VALUES ($1, 'Seeded', 'Seeded description', $2, $3, 'open', $4)`,
		id, string(category), string(priority), createdAt)
	require.NoError(t, err)
	return id
}

func TestPostgresIntegrationStatsEmpty(t *testing.T) {
	repo, _ := newPostgresRepository(t)

	stats, err := repo.Stats(context.Background(), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalTickets)
	assert.Equal(t, int64(0), stats.OpenTickets)
	assert.Equal(t, 0.0, stats.AvgTicketsPerDay)
	assert.Len(t, stats.PriorityBreakdown, 4)
	assert.Len(t, stats.CategoryBreakdown, 4)
}

func TestPostgresIntegrationStatsAveragePerDay(t *testing.T) {
	dayA := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	dayB := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		times []time.Time
		want  float64
	}{
		{name: "same day", times: []time.Time{dayA, dayA.Add(time.Hour), dayA.Add(2 * time.Hour)}, want: 3.0},
		{name: "two days", times: []time.Time{dayA, dayA.Add(time.Hour), dayB}, want: 1.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, pool := newPostgresRepository(t)
			for _, at := range tc.times {
				insertTicketAt(t, pool, at, domain.TicketCategoryBilling, domain.TicketPriorityHigh)
			}

			stats, err := repo.Stats(context.Background(), time.UTC)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tc.times)), stats.TotalTickets)
			assert.Equal(t, int64(len(tc.times)), stats.OpenTickets)
			assert.InDelta(t, tc.want, stats.AvgTicketsPerDay, 1e-9)
			assert.Equal(t, int64(len(tc.times)), stats.CategoryBreakdown[domain.TicketCategoryBilling])
			assert.Equal(t, int64(len(tc.times)), stats.PriorityBreakdown[domain.TicketPriorityHigh])
			assert.Equal(t, int64(0), stats.PriorityBreakdown[domain.TicketPriorityLow])
		})
	}
}

func TestPostgresIntegrationListNewestFirst(t *testing.T) {
	repo, pool := newPostgresRepository(t)
	same := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	oldest := insertTicketAt(t, pool, same.Add(-time.Hour), domain.TicketCategoryGeneral, domain.TicketPriorityLow)
	first := insertTicketAt(t, pool, same, domain.TicketCategoryGeneral, domain.TicketPriorityLow)
	second := insertTicketAt(t, pool, same, domain.TicketCategoryGeneral, domain.TicketPriorityLow)

	tickets, err := repo.List(context.Background(), TicketFilter{})
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, []string{second, first, oldest}, []string{tickets[0].ID, tickets[1].ID, tickets[2].ID})
}
