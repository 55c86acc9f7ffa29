package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateTaskID creates a time-ordered task identifier.
// UUIDv7 embeds a millisecond timestamp so lexical order follows creation order.
func GenerateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// GenerateSessionID creates an identifier for a simulation run.
// Format: {prefix}-{8charHexUUID}
//
// Example:
//   - Input: prefix="sim"
//   - Output: "sim-a3f8e2b1"
func GenerateSessionID(prefix string) string {
	return prefix + "-" + ShortID(uuid.New().String())
}

// ShortID returns the first 8 hex characters of a UUID string for log output.
// Non-UUID input shorter than 8 characters is returned unchanged.
func ShortID(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) <= 8 {
		return compact
	}
	return compact[:8]
}
