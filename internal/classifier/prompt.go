package classifier

import (
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

var categoryHints = map[domain.TicketCategory]string{
	domain.TicketCategoryBilling:   "payment issues, invoices, charges, subscriptions, refunds",
	domain.TicketCategoryTechnical: "bugs, errors, crashes, outages, performance, integrations",
	domain.TicketCategoryAccount:   "login, password, profile, access, permissions, account settings",
	domain.TicketCategoryGeneral:   "questions and requests that fit no other category",
}

var priorityHints = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:      "questions, minor requests, cosmetic issues",
	domain.TicketPriorityMedium:   "degraded functionality with a workaround",
	domain.TicketPriorityHigh:     "important functionality broken for many users, no workaround",
	domain.TicketPriorityCritical: "system down, data loss, security breach",
}

// systemPrompt lists the vocabularies straight from the domain enumerations so the
// prompt cannot drift from what the store accepts.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a support ticket classifier.\n")

	categories := domain.Categories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	b.WriteString("Classify the ticket into exactly one category: " + strings.Join(names, ", ") + ".\n")
	for _, c := range categories {
		writeHint(&b, string(c), categoryHints[c])
	}

	priorities := domain.Priorities()
	names = make([]string, len(priorities))
	for i, p := range priorities {
		names[i] = string(p)
	}
	b.WriteString("Assign exactly one priority: " + strings.Join(names, ", ") + ".\n")
	for _, p := range priorities {
		writeHint(&b, string(p), priorityHints[p])
	}

	b.WriteString("Respond ONLY with a JSON object of the form {\"category\": \"...\", \"priority\": \"...\"}.\n")
	b.WriteString("Do not add explanations, prose, or markdown code fences.")
	return b.String()
}

func writeHint(b *strings.Builder, name, hint string) {
	if hint == "" {
		return
	}
	b.WriteString("- " + name + ": " + hint + "\n")
}

func userPrompt(description string) string {
	return "Ticket description:\n" + description
}
