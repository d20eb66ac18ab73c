// Package uuid generates identifiers for request tracing.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces time-ordered UUIDs. Request IDs sort by creation time,
// which keeps log correlation cheap.
type Generator struct{}

// New returns a UUID generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (g *Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}
