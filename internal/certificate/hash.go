package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// isoMillis renders a time the way ISO-8601 round-trip timestamps are written
// by most clients: UTC, millisecond precision, literal Z.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Fields are the certificate values bound by a validation hash. MemberName and
// Title are the values frozen at issuance, not the member's current name.
type Fields struct {
	Number     string
	MemberID   string
	MemberName string
	Type       string
	Title      string
	IssuedDate time.Time
}

// Scheme is one version of the validation hash construction.
type Scheme interface {
	Version() int
	Hash(f Fields, secret string) string
}

// CurrentScheme binds name and title in addition to the identity fields.
type CurrentScheme struct{}

// Version implements Scheme.
func (CurrentScheme) Version() int { return 2 }

// Hash implements Scheme.
func (CurrentScheme) Hash(f Fields, secret string) string {
	return digest(
		f.Number,
		f.MemberID,
		normalize(f.MemberName),
		f.Type,
		normalize(f.Title),
		FormatIssuedDate(f.IssuedDate),
		secret,
	)
}

// LegacyScheme is the construction used before name and title were bound.
// It cannot detect edits to either and is only accepted during verification.
type LegacyScheme struct{}

// Version implements Scheme.
func (LegacyScheme) Version() int { return 1 }

// Hash implements Scheme.
func (LegacyScheme) Hash(f Fields, secret string) string {
	return digest(f.Number, f.MemberID, f.Type, FormatIssuedDate(f.IssuedDate), secret)
}

// GenerateValidationHash returns the current-scheme hash for a certificate.
func GenerateValidationHash(number, memberID, memberName, certType, title string, issuedDate time.Time, secret string) string {
	return CurrentScheme{}.Hash(Fields{
		Number:     number,
		MemberID:   memberID,
		MemberName: memberName,
		Type:       certType,
		Title:      title,
		IssuedDate: issuedDate,
	}, secret)
}

// FormatIssuedDate is the canonical timestamp string used inside hashes.
func FormatIssuedDate(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// digest joins parts with "-" and hashes them. Hyphens inside a part are not
// escaped, so two different splits can produce the same message. Issued
// certificates depend on this exact construction.
func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return hex.EncodeToString(sum[:])
}
