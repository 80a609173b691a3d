// Package ident derives RS4Brick device identifiers.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/denisbrodbeck/machineid"
)

// Prefix starts every device identifier.
const Prefix = "rs4b-"

// HexDigits is the width of the hexadecimal part.
const HexDigits = 6

const hwMask = 1<<(4*HexDigits) - 1

// ErrInvalid indicates a malformed identifier.
var ErrInvalid = errors.New("invalid device identifier")

// ID is the textual device identifier, e.g. rs4b-1A2B3C.
type ID string

// FromHardware derives the ID from a hardware unique value. Only the low
// 24 bits take part.
func FromHardware(hw uint32) ID {
	return ID(fmt.Sprintf("%s%06X", Prefix, hw&hwMask))
}

// Parse validates the canonical form.
func Parse(s string) (ID, error) {
	if !strings.HasPrefix(s, Prefix) || len(s) != len(Prefix)+HexDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	for _, c := range s[len(Prefix):] {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	return ID(s), nil
}

// Hardware returns the hardware value encoded in a valid ID.
func (id ID) Hardware() (uint32, error) {
	if _, err := Parse(string(id)); err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(string(id)[len(Prefix):], 16, 32)
	return uint32(v), err
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// appID keys the protected machine id so it doesn't leak the raw value.
const appID = "rs4brick"

// HardwareValue derives a stable value from the host machine id.
func HardwareValue() (uint32, error) {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		return 0, fmt.Errorf("machine id: %w", err)
	}
	if len(id) < 8 {
		return 0, fmt.Errorf("machine id too short: %q", id)
	}
	v, err := strconv.ParseUint(id[:8], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("machine id: %w", err)
	}
	return uint32(v), nil
}

// Local returns the ID of this host.
func Local() (ID, error) {
	hw, err := HardwareValue()
	if err != nil {
		return "", err
	}
	return FromHardware(hw), nil
}
