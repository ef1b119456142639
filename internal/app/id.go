package app

import (
	"fmt"

	"github.com/google/uuid"
)

// generateID returns a UUIDv7 so lease and refund ids sort by creation time.
func generateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}
