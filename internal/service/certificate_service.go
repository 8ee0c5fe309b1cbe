package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/ekklesia-certificates/internal/certificate"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/queue"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
)

// issueAttempts bounds retries when a generated number collides with an
// existing one.
const issueAttempts = 3

// CertificateStore is the persistence used by CertificateService.
type CertificateStore interface {
	Create(ctx context.Context, c *model.Certificate) error
	GetByID(ctx context.Context, churchID, id string) (*model.Certificate, error)
	GetByNumber(ctx context.Context, number string) (*model.Certificate, error)
	List(ctx context.Context, f repository.CertificateFilter) ([]*model.Certificate, int64, error)
	ListByMember(ctx context.Context, memberID string) ([]*model.Certificate, error)
	ExistsActive(ctx context.Context, churchID, memberID, certType, refID string) (bool, error)
	UpdateHash(ctx context.Context, churchID, id, hash, qrURL string) error
	Revoke(ctx context.Context, churchID, id, reason string, at time.Time) error
}

// ValidationStore records public validation attempts.
type ValidationStore interface {
	Record(ctx context.Context, v *model.CertificateValidation) error
	CountForCertificate(ctx context.Context, certificateID string) (int, error)
}

// RecordStore reads the church records certificates are issued from.
type RecordStore interface {
	MemberName(ctx context.Context, churchID, memberID string) (string, error)
	BaptismBelongs(ctx context.Context, churchID, baptismID, memberID string) (bool, error)
	CourseCompletion(ctx context.Context, memberID, courseID string) (bool, string, error)
	EventInChurch(ctx context.Context, churchID, eventID string) (bool, error)
	Attended(ctx context.Context, memberID, eventID string) (bool, error)
	Details(ctx context.Context, c *model.Certificate) (*model.CertificateDetails, error)
}

// Config holds the values CertificateService needs from the environment.
type Config struct {
	Secret  string
	BaseURL string
	Schemes []certificate.Scheme // verification order; defaults to certificate.DefaultSchemes
}

// CertificateService implements issuance, lookup, export, rehash, revocation
// and public validation of certificates.
type CertificateService struct {
	certs       CertificateStore
	validations ValidationStore
	records     RecordStore
	events      EventPublisher
	logger      *log.Logger

	verifier *certificate.Verifier
	numbers  certificate.NumberGenerator
	baseURL  string
	now      func() time.Time
}

// NewCertificateService wires a CertificateService.  A nil publisher disables
// events; a nil logger discards output.
func NewCertificateService(certs CertificateStore, validations ValidationStore, records RecordStore,
	events EventPublisher, cfg Config, logger *log.Logger) *CertificateService {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = log.New("certificates")
		logger.SetOutput(io.Discard)
	}
	return &CertificateService{
		certs:       certs,
		validations: validations,
		records:     records,
		events:      events,
		logger:      logger,
		verifier:    certificate.NewVerifier(cfg.Secret, cfg.Schemes...),
		baseURL:     cfg.BaseURL,
		now:         time.Now,
	}
}

// IssueRequest is the input of Issue.  IssuerName is the caller's display
// name, used when IssuedBy is empty.
type IssueRequest struct {
	ChurchID    string
	MemberID    string
	Type        string
	Title       string
	Description *string
	BaptismID   *string
	CourseID    *string
	EventID     *string
	IssuedBy    *string
	ValidUntil  *time.Time
	IssuerName  string
}

func (r IssueRequest) referenceID() *string {
	switch r.Type {
	case model.CertificateBaptism:
		return r.BaptismID
	case model.CertificateCourse:
		return r.CourseID
	case model.CertificateEvent:
		return r.EventID
	}
	return nil
}

// Issue creates a certificate after checking that the member really holds
// the baptism, course completion or event attendance it attests.
func (s *CertificateService) Issue(ctx context.Context, req IssueRequest) (*model.Certificate, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if req.MemberID == "" || req.Type == "" || req.Title == "" {
		return nil, invalid("member_id, type and title are required")
	}
	if !model.ValidCertificateType(req.Type) {
		return nil, invalid("invalid certificate type")
	}
	ref := req.referenceID()
	if ref == nil || *ref == "" {
		return nil, invalid(fmt.Sprintf("%s_id is required for %s certificates",
			strings.ToLower(req.Type), strings.ToLower(req.Type)))
	}

	if err := s.checkProof(ctx, req.ChurchID, req.MemberID, req.Type, *ref); err != nil {
		return nil, err
	}

	dup, err := s.certs.ExistsActive(ctx, req.ChurchID, req.MemberID, req.Type, *ref)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, conflict(fmt.Sprintf("member already holds a %s certificate for this record", strings.ToLower(req.Type)))
	}

	name, err := s.records.MemberName(ctx, req.ChurchID, req.MemberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("member not found")
		}
		return nil, err
	}

	issuedBy := req.IssuedBy
	if (issuedBy == nil || strings.TrimSpace(*issuedBy) == "") && req.IssuerName != "" {
		issuedBy = &req.IssuerName
	}

	c := &model.Certificate{
		ChurchID:    req.ChurchID,
		MemberID:    req.MemberID,
		MemberName:  name,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		IssuedBy:    issuedBy,
		ValidUntil:  req.ValidUntil,
		// Stored as DATETIME(3): hash only what the column can hold.
		IssuedDate: s.now().UTC().Truncate(time.Millisecond),
		Active:     true,
	}
	switch req.Type {
	case model.CertificateBaptism:
		c.BaptismID = ref
	case model.CertificateCourse:
		c.CourseID = ref
	case model.CertificateEvent:
		c.EventID = ref
	}

	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate certificate number: %w", err)
		}
		c.ID = uuid.NewString()
		c.CertificateNumber = number
		c.ValidationHash = s.verifier.Sign(fieldsOf(c))
		c.QRCodeURL = certificate.QRCodeURL(number, c.ValidationHash, s.baseURL)

		err = s.certs.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrConflict) || attempt == issueAttempts {
			return nil, err
		}
		s.logger.Warnf("certificate number collision on %s, retrying", number)
	}

	s.publish(ctx, queue.CertificateEvent{
		Kind:              queue.KindIssued,
		CertificateID:     c.ID,
		CertificateNumber: c.CertificateNumber,
		ChurchID:          c.ChurchID,
		MemberID:          c.MemberID,
	})
	return c, nil
}

func (s *CertificateService) checkProof(ctx context.Context, churchID, memberID, certType, refID string) error {
	switch certType {
	case model.CertificateBaptism:
		ok, err := s.records.BaptismBelongs(ctx, churchID, refID, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("baptism not found or does not belong to this member")
		}
	case model.CertificateCourse:
		ok, courseChurch, err := s.records.CourseCompletion(ctx, memberID, refID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("member has no completion record for this course")
		}
		if courseChurch != churchID {
			return forbidden("course does not belong to your church")
		}
	case model.CertificateEvent:
		ok, err := s.records.EventInChurch(ctx, churchID, refID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("event not found")
		}
		ok, err = s.records.Attended(ctx, memberID, refID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("member has no attendance record for this event")
		}
	}
	return nil
}

// Get returns a certificate of the church.
func (s *CertificateService) Get(ctx context.Context, churchID, id string) (*model.Certificate, error) {
	c, err := s.certs.GetByID(ctx, churchID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("certificate not found")
		}
		return nil, err
	}
	return c, nil
}

// MaxPageSize caps List pages.
const MaxPageSize = 100

// List returns a page of the church's active certificates and the total
// number of matches.
func (s *CertificateService) List(ctx context.Context, f repository.CertificateFilter) ([]*model.Certificate, int64, error) {
	if f.Type != "" {
		f.Type = strings.ToUpper(f.Type)
		if !model.ValidCertificateType(f.Type) {
			return nil, 0, invalid("invalid certificate type")
		}
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return s.certs.List(ctx, f)
}

// ListForMember returns the certificates held by a member.
func (s *CertificateService) ListForMember(ctx context.Context, memberID string) ([]*model.Certificate, error) {
	if memberID == "" {
		return nil, forbidden("account is not linked to a member")
	}
	return s.certs.ListByMember(ctx, memberID)
}

// RegenerateHash recomputes the stored hash with the current scheme from the
// certificate's frozen fields.  Used after a scheme upgrade; it never reads
// the member's current name.
func (s *CertificateService) RegenerateHash(ctx context.Context, churchID, id string) (*model.Certificate, error) {
	c, err := s.Get(ctx, churchID, id)
	if err != nil {
		return nil, err
	}
	hash := s.verifier.Sign(fieldsOf(c))
	qrURL := certificate.QRCodeURL(c.CertificateNumber, hash, s.baseURL)
	if err := s.certs.UpdateHash(ctx, churchID, id, hash, qrURL); err != nil {
		return nil, err
	}
	c.ValidationHash, c.QRCodeURL = hash, qrURL

	s.publish(ctx, queue.CertificateEvent{
		Kind:              queue.KindRehashed,
		CertificateID:     c.ID,
		CertificateNumber: c.CertificateNumber,
		ChurchID:          c.ChurchID,
		MemberID:          c.MemberID,
	})
	return c, nil
}

// Revoke marks a certificate revoked with a reason.
func (s *CertificateService) Revoke(ctx context.Context, churchID, id, reason string) (*model.Certificate, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}
	c, err := s.Get(ctx, churchID, id)
	if err != nil {
		return nil, err
	}
	if c.Revoked {
		return nil, conflict("certificate already revoked")
	}
	at := s.now().UTC().Truncate(time.Millisecond)
	if err := s.certs.Revoke(ctx, churchID, id, reason, at); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflict("certificate already revoked")
		}
		return nil, err
	}
	c.Revoked, c.RevokedAt, c.RevokeReason = true, &at, &reason

	s.publish(ctx, queue.CertificateEvent{
		Kind:              queue.KindRevoked,
		CertificateID:     c.ID,
		CertificateNumber: c.CertificateNumber,
		ChurchID:          c.ChurchID,
		MemberID:          c.MemberID,
		Reason:            reason,
	})
	return c, nil
}

// VerificationURL is the public URL for a certificate's current hash.
func (s *CertificateService) VerificationURL(c *model.Certificate) string {
	return certificate.QRCodeURL(c.CertificateNumber, c.ValidationHash, s.baseURL)
}

func (s *CertificateService) publish(ctx context.Context, ev queue.CertificateEvent) {
	ev.Stamp(s.now())
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Errorf("publish %s for %s: %v", ev.Kind, ev.CertificateNumber, err)
	}
}

func fieldsOf(c *model.Certificate) certificate.Fields {
	return certificate.Fields{
		Number:     c.CertificateNumber,
		MemberID:   c.MemberID,
		MemberName: c.MemberName,
		Type:       c.Type,
		Title:      c.Title,
		IssuedDate: c.IssuedDate,
	}
}
