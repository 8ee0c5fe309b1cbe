package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cr3t"

var fixtureIssued = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixtureFields() Fields {
	return Fields{
		Number:     "CERT-1-AAAA",
		MemberID:   "m1",
		MemberName: "  ana silva ",
		Type:       "COURSE",
		Title:      "curso x",
		IssuedDate: fixtureIssued,
	}
}

func TestGenerateValidationHash_Fixture(t *testing.T) {
	f := fixtureFields()
	got := GenerateValidationHash(f.Number, f.MemberID, f.MemberName, f.Type, f.Title, f.IssuedDate, testSecret)

	assert.Equal(t, "8b2551fab4bb7f5081bc42f313a48c20bcbad86fb1bd4fbbd06ac846e51bdf4d", got)

	sum := sha256.Sum256([]byte("CERT-1-AAAA-m1-ANA SILVA-COURSE-CURSO X-2024-01-01T00:00:00.000Z-s3cr3t"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Len(t, got, 64)
}

func TestLegacyScheme_Fixture(t *testing.T) {
	got := LegacyScheme{}.Hash(fixtureFields(), testSecret)
	assert.Equal(t, "d993b81f24311326390b276a5490e0b965e6f7f91d937c1cae349a6a099692a9", got)
}

func TestGenerateValidationHash_Deterministic(t *testing.T) {
	f := fixtureFields()
	a := CurrentScheme{}.Hash(f, testSecret)
	b := CurrentScheme{}.Hash(f, testSecret)
	assert.Equal(t, a, b)
}

func TestGenerateValidationHash_NormalizesNameAndTitle(t *testing.T) {
	base := CurrentScheme{}.Hash(fixtureFields(), testSecret)

	f := fixtureFields()
	f.MemberName = "ANA SILVA"
	f.Title = "\tCurso X  "
	assert.Equal(t, base, CurrentScheme{}.Hash(f, testSecret))
}

func TestGenerateValidationHash_FieldChanges(t *testing.T) {
	base := CurrentScheme{}.Hash(fixtureFields(), testSecret)

	tests := []struct {
		name   string
		mutate func(*Fields)
	}{
		{"number", func(f *Fields) { f.Number = "CERT-1-AAAB" }},
		{"member id", func(f *Fields) { f.MemberID = "m2" }},
		{"member name", func(f *Fields) { f.MemberName = "ana silvia" }},
		{"type", func(f *Fields) { f.Type = "EVENT" }},
		{"title", func(f *Fields) { f.Title = "curso y" }},
		{"issued date", func(f *Fields) { f.IssuedDate = f.IssuedDate.Add(time.Millisecond) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixtureFields()
			tt.mutate(&f)
			assert.NotEqual(t, base, CurrentScheme{}.Hash(f, testSecret))
		})
	}

	assert.NotEqual(t, base, CurrentScheme{}.Hash(fixtureFields(), "other"))
}

func TestFormatIssuedDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	ts := time.Date(2024, 3, 9, 21, 5, 7, 123456789, loc)
	assert.Equal(t, "2024-03-10T00:05:07.123Z", FormatIssuedDate(ts))
	assert.Equal(t, "2024-01-01T00:00:00.000Z", FormatIssuedDate(fixtureIssued))
}

func TestDigest_HyphenAmbiguity(t *testing.T) {
	// Unescaped separators: these two splits hash to the same value.
	a := digest("CERT-1", "A")
	b := digest("CERT", "1-A")
	require.Equal(t, a, b)
}
