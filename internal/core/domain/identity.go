package domain

import "strings"

// Identity is an opaque ledger address. Equality is the only defined operation.
type Identity string

// NewIdentity trims surrounding whitespace; adapters normalise further.
func NewIdentity(s string) Identity {
	return Identity(strings.TrimSpace(s))
}

// Equal reports whether both identities refer to the same participant.
func (i Identity) Equal(other Identity) bool {
	return i == other
}

func (i Identity) IsZero() bool {
	return i == ""
}

func (i Identity) String() string {
	return string(i)
}

// Roster is the ordered approved set. Its order drives the record join.
type Roster []Identity

// Clone returns an independent copy so callers cannot alias view state.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	copy(out, r)
	return out
}
