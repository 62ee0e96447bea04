package classifier

import (
	"encoding/json"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

const codeFence = "```"

type modelAnswer struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// parseAnswer turns raw model text into a classification. Each field is checked
// against its vocabulary on its own; the names of fields replaced by their default
// are returned in rejected. Only undecodable text is an error.
func parseAnswer(raw string) (result domain.Classification, rejected []string, err error) {
	content := stripCodeFence(strings.TrimSpace(raw))

	var answer modelAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return domain.Classification{}, nil, err
	}

	result.Category = domain.TicketCategory(strings.ToLower(strings.TrimSpace(answer.Category)))
	if !result.Category.Valid() {
		result.Category = domain.DefaultCategory
		rejected = append(rejected, "category")
	}
	result.Priority = domain.TicketPriority(strings.ToLower(strings.TrimSpace(answer.Priority)))
	if !result.Priority.Valid() {
		result.Priority = domain.DefaultPriority
		rejected = append(rejected, "priority")
	}
	return result, rejected, nil
}

// stripCodeFence returns the body of a fenced block: everything after the first
// newline following the opening fence, up to the last closing fence.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, codeFence) {
		return content
	}
	if i := strings.Index(content, "\n"); i >= 0 {
		content = content[i+1:]
	}
	if j := strings.LastIndex(content, codeFence); j >= 0 {
		content = content[:j]
	}
	return strings.TrimSpace(content)
}
