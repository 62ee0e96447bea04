package domain

// Classification is a suggested category and priority for a free-text description.
// It is produced per request and never persisted.
type Classification struct {
	Category TicketCategory
	Priority TicketPriority
}

// FallbackClassification is returned whenever no validated suggestion is available.
func FallbackClassification() Classification {
	return Classification{Category: DefaultCategory, Priority: DefaultPriority}
}
