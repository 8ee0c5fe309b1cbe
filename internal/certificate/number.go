// Package certificate holds the integrity primitives behind issued
// certificates: number generation, the validation hash schemes, hash
// verification and the public verification URL. Everything here is a pure
// function over its arguments; the signing secret is always passed in by the
// caller and never read from the environment.
package certificate

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"time"
)

// NumberPrefix starts every certificate number.
const NumberPrefix = "CERT-"

// numberRandBytes is the width of the random suffix (8 hex chars).
const numberRandBytes = 4

// NumberGenerator builds certificate numbers from a clock and a randomness
// source. The zero value uses time.Now and crypto/rand.
type NumberGenerator struct {
	Now  func() time.Time
	Rand io.Reader
}

// Generate returns CERT-<unix millis>-<RANDOM HEX>. It does not retry on
// collision; the certificates table carries a unique index instead.
func (g NumberGenerator) Generate() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	src := rand.Reader
	if g.Rand != nil {
		src = g.Rand
	}
	buf := make([]byte, numberRandBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", err
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))
	return NumberPrefix + strconv.FormatInt(now().UnixMilli(), 10) + "-" + suffix, nil
}

// GenerateNumber is NumberGenerator{}.Generate.
func GenerateNumber() (string, error) {
	return NumberGenerator{}.Generate()
}
