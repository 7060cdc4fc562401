package cardutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	// DefaultValidationCodeLength is the width of the enrollment code.
	DefaultValidationCodeLength = 6

	// ReferencePrefix tags every transaction reference number.
	ReferencePrefix = "TXN"

	maxValidationCodeLength = 18
	referenceEntropyBytes   = 8
)

// Generator produces the random values issued by the service: enrollment
// validation codes and transaction reference numbers.
//
// Entropy and time are injected so callers can substitute deterministic
// sources; the zero configuration uses crypto/rand and the wall clock.
type Generator struct {
	random     io.Reader
	now        func() time.Time
	codeLength int
}

type Option func(*Generator)

// WithRandom replaces the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

// WithClock replaces the time source used for reference numbers.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator issuing validation codes of codeLength
// digits. Out of range lengths fall back to DefaultValidationCodeLength.
func NewGenerator(codeLength int, opts ...Option) *Generator {
	if codeLength <= 0 || codeLength > maxValidationCodeLength {
		codeLength = DefaultValidationCodeLength
	}

	g := &Generator{
		random:     rand.Reader,
		now:        time.Now,
		codeLength: codeLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CodeLength reports the fixed width of generated validation codes.
func (g *Generator) CodeLength() int {
	return g.codeLength
}

// ValidationCode draws a uniformly distributed, zero padded numeric code.
func (g *Generator) ValidationCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.codeLength)), nil)

	n, err := rand.Int(g.random, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate validation code: %w", err)
	}
	return fmt.Sprintf("%0*d", g.codeLength, n), nil
}

// ReferenceNumber returns a transaction reference.
// Format: TXN + 13 digit unix milliseconds + 16 hex chars of entropy,
// e.g. TXN1718035200123 9f2c4b7a01d3e856 (without the space).
//
// The 64 random bits keep back-to-back calls within one millisecond apart;
// the unique index on reference_number remains the final guard.
func (g *Generator) ReferenceNumber() (string, error) {
	entropy := make([]byte, referenceEntropyBytes)
	if _, err := io.ReadFull(g.random, entropy); err != nil {
		return "", fmt.Errorf("failed to generate reference number: %w", err)
	}
	return fmt.Sprintf("%s%013d%s", ReferencePrefix, g.now().UnixMilli(), hex.EncodeToString(entropy)), nil
}
