package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random 32-character hex identifier. The same format is
// used for record ids, bearer tokens and invite tokens.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
