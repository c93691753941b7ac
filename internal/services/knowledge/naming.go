package knowledge

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitize(id string) string {
	return nonAlnum.ReplaceAllString(id, "_")
}

// KnowledgeBaseName is the per-user knowledge base holding transaction text.
func KnowledgeBaseName(userID uuid.UUID) string {
	return "wyse_transactions_" + sanitize(userID.String())
}

// AITableName is the per-user model that answers questions over context.
func AITableName(userID uuid.UUID) string {
	return "wyse_ai_table_" + sanitize(userID.String())
}

func AgentName(userID uuid.UUID) string {
	return "wyse_agent_" + sanitize(userID.String())
}

func JobName(userID uuid.UUID) string {
	return "wyse_sync_job_" + sanitize(userID.String())
}

// Quote renders s as a SQL string literal, doubling embedded single quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
