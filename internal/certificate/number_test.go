package certificate

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var numberPattern = regexp.MustCompile(`^CERT-\d+-[0-9A-F]{8}$`)

func TestGenerateNumber_Format(t *testing.T) {
	n, err := GenerateNumber()
	require.NoError(t, err)
	assert.True(t, numberPattern.MatchString(n), n)
}

func TestGenerateNumber_Distinct(t *testing.T) {
	a, err := GenerateNumber()
	require.NoError(t, err)
	b, err := GenerateNumber()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNumberGenerator_Deterministic(t *testing.T) {
	g := NumberGenerator{
		Now:  func() time.Time { return time.UnixMilli(1704067200123) },
		Rand: bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef}),
	}
	n, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "CERT-1704067200123-DEADBEEF", n)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNumberGenerator_RandError(t *testing.T) {
	_, err := NumberGenerator{Rand: failingReader{}}.Generate()
	assert.Error(t, err)

	_, err = NumberGenerator{Rand: bytes.NewReader([]byte{1, 2})}.Generate()
	assert.Error(t, err)
}
