package cardutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// ============================================================================
// Card identifiers
// ============================================================================
//
// The external card identifier is derived, never stored as a free choice:
//
//   identifier = hex(SHA-256(pan + documentNumber))[:32]
//
// Recomputing it for the same PAN and document always yields the same value,
// so a card can be located again from its issuing data without a lookup table.
//
// ============================================================================

const (
	// PanLength is the only PAN length that gets masked.
	PanLength = 16

	// IdentifierLength is the number of hex characters kept from the digest.
	IdentifierLength = 32

	panMask = "********"
)

// MaskPan keeps the first and last four digits of a 16 character PAN.
// Anything else, including the empty string, is returned unchanged.
func MaskPan(pan string) string {
	if len(pan) != PanLength {
		return pan
	}
	return pan[:4] + panMask + pan[PanLength-4:]
}

// DeriveIdentifier returns the deterministic card identifier for a PAN and
// document number pair.
func DeriveIdentifier(pan, documentNumber string) string {
	sum := sha256.Sum256([]byte(pan + documentNumber))
	return hex.EncodeToString(sum[:])[:IdentifierLength]
}
