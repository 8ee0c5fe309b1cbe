package certificate

import (
	"crypto/subtle"
	"time"
)

// Verifier checks hashes against an ordered list of schemes, newest first.
// New certificates are always signed with the first scheme; older schemes stay
// in the list so certificates issued under them keep verifying.
type Verifier struct {
	secret  string
	schemes []Scheme
}

// DefaultSchemes is the verification order used by NewVerifier.
func DefaultSchemes() []Scheme {
	return []Scheme{CurrentScheme{}, LegacyScheme{}}
}

// NewVerifier returns a Verifier using secret. With no schemes given it uses
// DefaultSchemes.
func NewVerifier(secret string, schemes ...Scheme) *Verifier {
	if len(schemes) == 0 {
		schemes = DefaultSchemes()
	}
	return &Verifier{secret: secret, schemes: schemes}
}

// Sign hashes f with the newest scheme.
func (v *Verifier) Sign(f Fields) string {
	return v.schemes[0].Hash(f, v.secret)
}

// Verify reports whether hash matches f under any scheme, and which scheme
// matched first.
func (v *Verifier) Verify(hash string, f Fields) (Scheme, bool) {
	for _, s := range v.schemes {
		if equalHash(hash, s.Hash(f, v.secret)) {
			return s, true
		}
	}
	return nil, false
}

// ValidateCertificateHash verifies hash under the current scheme and falls back
// to the legacy one.
func ValidateCertificateHash(hash, number, memberID, memberName, certType, title string, issuedDate time.Time, secret string) bool {
	_, ok := NewVerifier(secret).Verify(hash, Fields{
		Number:     number,
		MemberID:   memberID,
		MemberName: memberName,
		Type:       certType,
		Title:      title,
		IssuedDate: issuedDate,
	})
	return ok
}

func equalHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
