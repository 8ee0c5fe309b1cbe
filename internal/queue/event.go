// Package queue defines message payloads exchanged over the message broker
// and the consumer that writes them to the certificate audit log.
package queue

import "time"

// CertificateEventsQueue is the durable queue carrying CertificateEvent.
const CertificateEventsQueue = "certificate.events"

// Event kinds.
const (
    KindIssued           = "certificate.issued"
    KindRehashed         = "certificate.rehashed"
    KindRevoked          = "certificate.revoked"
    KindValidationFailed = "certificate.validation_failed"
    KindNotFound         = "certificate.not_found"
)

// CertificateEvent is published on issuance, rehash and revocation, and for
// every failed public validation.  It carries enough context for downstream
// consumers to alert on forgeries without querying the primary database.
// Hash values are never included.
type CertificateEvent struct {
    Kind              string `json:"kind"`
    CertificateID     string `json:"certificate_id,omitempty"`
    CertificateNumber string `json:"certificate_number"`
    ChurchID          string `json:"church_id,omitempty"`
    MemberID          string `json:"member_id,omitempty"`
    Reason            string `json:"reason,omitempty"`
    IPAddress         string `json:"ip_address,omitempty"`
    UserAgent         string `json:"user_agent,omitempty"`
    OccurredAt        string `json:"occurred_at"`
}

// Stamp sets OccurredAt to t in RFC 3339 UTC.
func (e *CertificateEvent) Stamp(t time.Time) {
    e.OccurredAt = t.UTC().Format(time.RFC3339)
}
