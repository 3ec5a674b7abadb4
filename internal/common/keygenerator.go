package common

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateSessionID returns a random RFC 4122 version 4 identifier used to group entries.
func GenerateSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id.String(), nil
}
