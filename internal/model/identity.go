package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentity is returned when an identity key cannot be parsed
var ErrInvalidIdentity = errors.New("invalid identity key")

// Identity is the permanent key of a catalog entry: source tag + external id.
// Its string form is "source:external_id" and is unique across all sources.
type Identity struct {
	Source     string
	ExternalID string
}

// String returns the persisted key form
func (id Identity) String() string {
	return id.Source + ":" + id.ExternalID
}

// Valid reports whether both parts are present
func (id Identity) Valid() bool {
	return id.Source != "" && id.ExternalID != "" && !strings.Contains(id.Source, ":")
}

// ParseIdentity parses "source:external_id". The external id may itself contain
// colons; the source tag may not.
func ParseIdentity(key string) (Identity, error) {
	source, externalID, ok := strings.Cut(key, ":")
	id := Identity{Source: source, ExternalID: externalID}
	if !ok || !id.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, key)
	}
	return id, nil
}
