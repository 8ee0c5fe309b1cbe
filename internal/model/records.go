package model

import "time"

// BaptismInfo is the part of a `baptisms` row shown on a certificate.
type BaptismInfo struct {
    Date     time.Time `json:"date"`
    Location *string   `json:"location,omitempty"`
    Minister *string   `json:"minister,omitempty"`
}

// CourseInfo is the part of a `courses` row shown on a certificate.
type CourseInfo struct {
    Name        string  `json:"name"`
    Description *string `json:"description,omitempty"`
}

// EventInfo is the part of an `events` row shown on a certificate.
type EventInfo struct {
    Title string    `json:"title"`
    Date  time.Time `json:"date"`
    Type  string    `json:"type"`
}

// CertificateDetails groups the records a certificate refers to.  At most one
// of Baptism, Course and Event is set, matching the certificate type.
type CertificateDetails struct {
    ChurchName string       `json:"church_name"`
    Baptism    *BaptismInfo `json:"baptism,omitempty"`
    Course     *CourseInfo  `json:"course,omitempty"`
    Event      *EventInfo   `json:"event,omitempty"`
}
