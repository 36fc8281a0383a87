// Package edit joins raw edits with their commits into sorted edit records.
package edit

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/typedna/pkg/faults"
)

// ErrInvalidKind is returned for an edit marker other than +, -, ADD or REMOVE.
var ErrInvalidKind = fmt.Errorf("%w: invalid edit marker", faults.ErrMalformedInput)

// Kind says whether an edit added or removed an entity.
type Kind uint8

// Edit kinds.
const (
	Addition Kind = iota + 1
	Deletion
)

// ParseKind translates a dataset marker. Older datasets spell the markers
// ADD and REMOVE.
func ParseKind(marker string) (Kind, error) {
	switch strings.ToUpper(marker) {
	case "+", "ADD":
		return Addition, nil
	case "-", "REMOVE":
		return Deletion, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, marker)
	}
}

// Marker returns the canonical one-character marker.
func (k Kind) Marker() string {
	switch k {
	case Addition:
		return "+"
	case Deletion:
		return "-"
	default:
		return "?"
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind as its marker.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Marker()), nil
}
