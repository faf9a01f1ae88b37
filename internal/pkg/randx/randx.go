/*
Package randx provides helpers for generating unique identifiers.

Connection handles are standard UUID v4 strings.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnID generates a UUID v4 string used as the handle of one live connection.
func ConnID() string {
	return uuid.New().String()
}
