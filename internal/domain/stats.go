package domain

import "math"

// TicketStats aggregates ticket counts computed by the store.
type TicketStats struct {
	TotalTickets      int64
	OpenTickets       int64
	AvgTicketsPerDay  float64
	PriorityBreakdown map[TicketPriority]int64
	CategoryBreakdown map[TicketCategory]int64
}

// NewTicketStats returns an empty report with every breakdown key present.
func NewTicketStats() TicketStats {
	stats := TicketStats{
		PriorityBreakdown: make(map[TicketPriority]int64, len(Priorities())),
		CategoryBreakdown: make(map[TicketCategory]int64, len(Categories())),
	}
	for _, p := range Priorities() {
		stats.PriorityBreakdown[p] = 0
	}
	for _, c := range Categories() {
		stats.CategoryBreakdown[c] = 0
	}
	return stats
}

// RoundAverage rounds a per-day average to two decimal places.
func RoundAverage(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
