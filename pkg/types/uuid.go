package types

import "github.com/google/uuid"

// newUUID is split out from ids.go so the google/uuid import sits in one
// place; it returns the standard dashed, lowercase string form.
func newUUID() string {
	return uuid.New().String()
}
