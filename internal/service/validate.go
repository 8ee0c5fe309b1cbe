package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/queue"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
)

// Outcome classifies a public validation.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeNotFound
	OutcomeRevoked
	OutcomeInactive
	OutcomeExpired
	OutcomeHashMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRevoked:
		return "revoked"
	case OutcomeInactive:
		return "inactive"
	case OutcomeExpired:
		return "expired"
	case OutcomeHashMismatch:
		return "hash_mismatch"
	}
	return "unknown"
}

// ValidateRequest is a public validation attempt, usually from a scanned QR
// code.
type ValidateRequest struct {
	Number    string
	Hash      string
	IPAddress string
	UserAgent string
}

// ValidationResult is the verdict of Validate.  Certificate is nil when the
// number is unknown; Details is only loaded for valid certificates.
type ValidationResult struct {
	Outcome       Outcome
	Certificate   *model.Certificate
	Details       *model.CertificateDetails
	SchemeVersion int
	SchemeMatch   bool
	StoredMatch   bool
	Warnings      []string
}

// Valid reports whether the certificate passed every check.
func (r *ValidationResult) Valid() bool { return r.Outcome == OutcomeValid }

// Validate checks a presented number/hash pair.  A mismatch is a normal
// outcome, not an error; errors are reserved for storage failures.  The
// presented hash must both verify under a known scheme and equal the stored
// hash, so a hash superseded by RegenerateHash no longer validates.
func (s *CertificateService) Validate(ctx context.Context, req ValidateRequest) (*ValidationResult, error) {
	req.Number = strings.TrimSpace(req.Number)
	req.Hash = strings.TrimSpace(req.Hash)
	if req.Number == "" || req.Hash == "" {
		return nil, invalid("number and hash are required")
	}

	c, err := s.certs.GetByNumber(ctx, req.Number)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.logger.Warnj(log.JSON{
			"msg":        "validation of unknown certificate",
			"number":     req.Number,
			"hash":       truncateHash(req.Hash),
			"ip_address": req.IPAddress,
			"user_agent": req.UserAgent,
		})
		s.publish(ctx, queue.CertificateEvent{
			Kind:              queue.KindNotFound,
			CertificateNumber: req.Number,
			IPAddress:         req.IPAddress,
			UserAgent:         req.UserAgent,
		})
		return &ValidationResult{Outcome: OutcomeNotFound}, nil
	}

	res := &ValidationResult{Certificate: c}
	var notes string
	switch {
	case c.Revoked:
		res.Outcome, notes = OutcomeRevoked, "certificate revoked"
	case !c.Active:
		res.Outcome, notes = OutcomeInactive, "certificate inactive"
	case c.Expired(s.now()):
		res.Outcome, notes = OutcomeExpired, "certificate expired"
	}
	if notes != "" {
		if err := s.record(ctx, c, req, false, notes); err != nil {
			return nil, err
		}
		return res, nil
	}

	if scheme, ok := s.verifier.Verify(req.Hash, fieldsOf(c)); ok {
		res.SchemeMatch, res.SchemeVersion = true, scheme.Version()
	}
	res.StoredMatch = subtle.ConstantTimeCompare([]byte(req.Hash), []byte(c.ValidationHash)) == 1

	if !res.SchemeMatch || !res.StoredMatch {
		res.Outcome = OutcomeHashMismatch
		notes = fmt.Sprintf("hash mismatch (scheme match: %t, stored match: %t)", res.SchemeMatch, res.StoredMatch)
		if err := s.record(ctx, c, req, false, notes); err != nil {
			return nil, err
		}
		s.logger.Warnj(log.JSON{
			"msg":           "validation with invalid hash",
			"number":        c.CertificateNumber,
			"member_id":     c.MemberID,
			"hash_provided": truncateHash(req.Hash),
			"hash_stored":   truncateHash(c.ValidationHash),
			"ip_address":    req.IPAddress,
			"user_agent":    req.UserAgent,
		})
		s.publish(ctx, queue.CertificateEvent{
			Kind:              queue.KindValidationFailed,
			CertificateID:     c.ID,
			CertificateNumber: c.CertificateNumber,
			ChurchID:          c.ChurchID,
			MemberID:          c.MemberID,
			Reason:            notes,
			IPAddress:         req.IPAddress,
			UserAgent:         req.UserAgent,
		})
		return res, nil
	}

	if err := s.record(ctx, c, req, true, "validation succeeded"); err != nil {
		return nil, err
	}
	res.Outcome = OutcomeValid
	res.Warnings = s.crossCheck(ctx, c)
	if len(res.Warnings) > 0 {
		s.logger.Warnj(log.JSON{"msg": "validation warnings", "number": c.CertificateNumber, "warnings": res.Warnings})
	}

	d, err := s.records.Details(ctx, c)
	if err != nil {
		return nil, err
	}
	res.Details = d
	return res, nil
}

// crossCheck re-reads the records a valid certificate was issued from.
// Missing records produce warnings but do not invalidate the certificate.
func (s *CertificateService) crossCheck(ctx context.Context, c *model.Certificate) []string {
	var (
		warnings []string
		ok       bool
		err      error
	)
	ref := c.ReferenceID()
	if ref == "" {
		return nil
	}
	switch c.Type {
	case model.CertificateBaptism:
		if ok, err = s.records.BaptismBelongs(ctx, c.ChurchID, ref, c.MemberID); err == nil && !ok {
			warnings = append(warnings, "the linked baptism was not found or does not belong to this member")
		}
	case model.CertificateCourse:
		if ok, _, err = s.records.CourseCompletion(ctx, c.MemberID, ref); err == nil && !ok {
			warnings = append(warnings, "the member has no completion record for this course")
		}
	case model.CertificateEvent:
		if ok, err = s.records.Attended(ctx, c.MemberID, ref); err == nil && !ok {
			warnings = append(warnings, "the member has no attendance record for this event")
		}
	}
	if err != nil {
		s.logger.Errorf("cross-check %s: %v", c.CertificateNumber, err)
	}
	return warnings
}

func (s *CertificateService) record(ctx context.Context, c *model.Certificate, req ValidateRequest, valid bool, notes string) error {
	v := &model.CertificateValidation{
		CertificateID: c.ID,
		IsValid:       valid,
		IPAddress:     optional(req.IPAddress),
		UserAgent:     optional(req.UserAgent),
		Notes:         notes,
	}
	if err := s.validations.Record(ctx, v); err != nil {
		return fmt.Errorf("record validation of %s: %w", c.CertificateNumber, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
