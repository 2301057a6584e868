// Package prefixed_uuid provides UUIDs carrying a short type prefix, such as
// "run-123e4567-e89b-12d3-a456-426614174000".
package prefixed_uuid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunPrefix tags itinerary pipeline runs.
const RunPrefix = "run"

// PrefixedUUID represents a UUID with a prefix string.
type PrefixedUUID struct {
	Prefix string
	UUID   uuid.UUID
}

// New creates a new PrefixedUUID with the given prefix and a generated UUID.
func New(prefix string) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: uuid.New()}
}

// NewRunID returns a fresh run identifier.
func NewRunID() PrefixedUUID {
	return New(RunPrefix)
}

// FromUUID creates a PrefixedUUID from an existing UUID and prefix.
func FromUUID(prefix string, id uuid.UUID) PrefixedUUID {
	return PrefixedUUID{Prefix: prefix, UUID: id}
}

// FromString parses "prefix-uuid". The prefix ends at the first dash.
func FromString(s string) (PrefixedUUID, error) {
	prefix, raw, ok := strings.Cut(s, "-")
	if !ok || prefix == "" {
		return PrefixedUUID{}, fmt.Errorf("invalid prefixed UUID format: %q", s)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return PrefixedUUID{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return PrefixedUUID{Prefix: prefix, UUID: id}, nil
}

// ParseWithPrefix is FromString plus a check that the prefix is the expected one.
// Untrusted IDs (URL params) go through here before touching storage keys.
func ParseWithPrefix(s, prefix string) (PrefixedUUID, error) {
	p, err := FromString(s)
	if err != nil {
		return PrefixedUUID{}, err
	}
	if p.Prefix != prefix {
		return PrefixedUUID{}, fmt.Errorf("expected prefix %q, got %q", prefix, p.Prefix)
	}
	return p, nil
}

// RawUUID returns the underlying UUID without the prefix.
func (p PrefixedUUID) RawUUID() uuid.UUID {
	return p.UUID
}

func (p PrefixedUUID) String() string {
	return p.Prefix + "-" + p.UUID.String()
}

// IsZero reports whether p is the zero value.
func (p PrefixedUUID) IsZero() bool {
	return p.Prefix == "" && p.UUID == uuid.Nil
}

func (p PrefixedUUID) Equal(other PrefixedUUID) bool {
	return p == other
}

// MarshalText implements encoding.TextMarshaler, so JSON and YAML encode the
// ID as a plain string.
func (p PrefixedUUID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PrefixedUUID) UnmarshalText(data []byte) error {
	parsed, err := FromString(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
