package model

import "time"

// Certificate types accepted at issuance.
const (
    CertificateBaptism = "BAPTISM"
    CertificateCourse  = "COURSE"
    CertificateEvent   = "EVENT"
)

// ValidCertificateType reports whether t is one of the issuable types.
func ValidCertificateType(t string) bool {
    switch t {
    case CertificateBaptism, CertificateCourse, CertificateEvent:
        return true
    }
    return false
}

// Certificate represents a row in the `certificates` table.  MemberName and
// Title are copied at issuance and never follow later edits to the member or
// course, because the validation hash binds the values as printed.
//
// Fields:
//  ID                – uuid primary key.
//  ChurchID          – owning tenant.
//  MemberID          – subject of the certificate.
//  MemberName        – subject name frozen at issuance.
//  Type              – BAPTISM, COURSE or EVENT.
//  Title             – printed title, frozen at issuance.
//  Description       – free text shown on the certificate (nullable).
//  BaptismID, CourseID, EventID – the record that justifies the certificate.
//  CertificateNumber – unique public identifier (CERT-…).
//  ValidationHash    – hex SHA-256 bound to the frozen fields.
//  QRCodeURL         – verification URL printed as QR code.
//  IssuedDate        – issuance instant, millisecond precision.
//  IssuedBy          – name of the signer (nullable).
//  ValidUntil        – optional expiry.
//  Active, Revoked, RevokedAt, RevokeReason – lifecycle flags.
type Certificate struct {
    ID                string     `json:"id"`
    ChurchID          string     `json:"church_id"`
    MemberID          string     `json:"member_id"`
    MemberName        string     `json:"member_name"`
    Type              string     `json:"type"`
    Title             string     `json:"title"`
    Description       *string    `json:"description,omitempty"`
    BaptismID         *string    `json:"baptism_id,omitempty"`
    CourseID          *string    `json:"course_id,omitempty"`
    EventID           *string    `json:"event_id,omitempty"`
    CertificateNumber string     `json:"certificate_number"`
    ValidationHash    string     `json:"validation_hash"`
    QRCodeURL         string     `json:"qr_code_url"`
    IssuedDate        time.Time  `json:"issued_date"`
    IssuedBy          *string    `json:"issued_by,omitempty"`
    ValidUntil        *time.Time `json:"valid_until,omitempty"`
    Active            bool       `json:"active"`
    Revoked           bool       `json:"revoked"`
    RevokedAt         *time.Time `json:"revoked_at,omitempty"`
    RevokeReason      *string    `json:"revoke_reason,omitempty"`
    CreatedAt         time.Time  `json:"created_at"`
    UpdatedAt         time.Time  `json:"updated_at"`
}

// ReferenceID returns the id of the record matching the certificate type.
func (c *Certificate) ReferenceID() string {
    var p *string
    switch c.Type {
    case CertificateBaptism:
        p = c.BaptismID
    case CertificateCourse:
        p = c.CourseID
    case CertificateEvent:
        p = c.EventID
    }
    if p == nil {
        return ""
    }
    return *p
}

// Expired reports whether ValidUntil lies before now.
func (c *Certificate) Expired(now time.Time) bool {
    return c.ValidUntil != nil && c.ValidUntil.Before(now)
}

// CertificateValidation is one row of the `certificate_validations` audit
// table, written for every public validation of a known certificate.
type CertificateValidation struct {
    ID            string    // certificate_validations.id
    CertificateID string    // certificate_validations.certificate_id
    IsValid       bool      // certificate_validations.is_valid
    IPAddress     *string   // certificate_validations.ip_address (nullable)
    UserAgent     *string   // certificate_validations.user_agent (nullable)
    Notes         string    // certificate_validations.notes
    CreatedAt     time.Time // certificate_validations.created_at
}
