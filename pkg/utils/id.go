package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier with a readable type prefix,
// e.g. "auction-2f6c...".
func GenerateID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
