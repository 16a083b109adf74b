package ai

import (
	"context"
	"fmt"
	"strings"
)

// MockAssistant serves deployments without a chat backend configured. It
// answers with a short summary derived from the table context so the chat
// surface stays usable in dev.
type MockAssistant struct{}

func (m MockAssistant) Ask(ctx context.Context, tableContext string, prompt string, history []ChatMessage) (string, error) {
	rows := 0
	for _, line := range strings.Split(tableContext, "\n") {
		if strings.TrimSpace(line) != "" {
			rows++
		}
	}
	if rows > 0 {
		rows-- // header line
	}
	return fmt.Sprintf("No assistant model is configured. The current result table has %d rows; your question was: %q", rows, prompt), nil
}
