// This file holds persistence for issued certificates.  Every query a staff
// member can trigger is scoped by church_id; only GetByNumber, used by the
// public validation endpoint, crosses tenants.

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/ekklesia-certificates/internal/database"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

const certificateColumns = `id, church_id, member_id, member_name, type, title, description,
	baptism_id, course_id, event_id, certificate_number, validation_hash, qr_code_url,
	issued_date, issued_by, valid_until, active, revoked, revoked_at, revoke_reason,
	created_at, updated_at`

// CertificateFilter narrows List.  Empty fields are ignored; PageSize 0
// returns every match.
type CertificateFilter struct {
	ChurchID string
	MemberID string
	Type     string
	Page     int // 1-based
	PageSize int
}

// CertificateRepo encapsulates queries on the `certificates` table.
type CertificateRepo struct {
	db *sql.DB
}

// NewCertificateRepo constructs a CertificateRepo with the provided DB handle.
func NewCertificateRepo(db *sql.DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(s rowScanner) (*model.Certificate, error) {
	var (
		c                                        model.Certificate
		description, baptismID, courseID, eventID sql.NullString
		issuedBy, revokeReason                   sql.NullString
		validUntil, revokedAt                    sql.NullTime
	)
	err := s.Scan(&c.ID, &c.ChurchID, &c.MemberID, &c.MemberName, &c.Type, &c.Title, &description,
		&baptismID, &courseID, &eventID, &c.CertificateNumber, &c.ValidationHash, &c.QRCodeURL,
		&c.IssuedDate, &issuedBy, &validUntil, &c.Active, &c.Revoked, &revokedAt, &revokeReason,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = stringPtr(description)
	c.BaptismID = stringPtr(baptismID)
	c.CourseID = stringPtr(courseID)
	c.EventID = stringPtr(eventID)
	c.IssuedBy = stringPtr(issuedBy)
	c.RevokeReason = stringPtr(revokeReason)
	c.ValidUntil = timePtr(validUntil)
	c.RevokedAt = timePtr(revokedAt)
	return &c, nil
}

// Create inserts a certificate.  A duplicate certificate_number (or id)
// yields ErrConflict; the caller decides whether to retry with a new number.
func (r *CertificateRepo) Create(ctx context.Context, c *model.Certificate) error {
	const q = `INSERT INTO certificates (id, church_id, member_id, member_name, type, title, description,
		baptism_id, course_id, event_id, certificate_number, validation_hash, qr_code_url,
		issued_date, issued_by, valid_until, active, revoked)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.ChurchID, c.MemberID, c.MemberName, c.Type, c.Title,
		c.Description, c.BaptismID, c.CourseID, c.EventID, c.CertificateNumber, c.ValidationHash,
		c.QRCodeURL, c.IssuedDate, c.IssuedBy, c.ValidUntil, c.Active, c.Revoked)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}

	// Read back the defaulted timestamps.
	const qSelect = "SELECT created_at, updated_at FROM certificates WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, qSelect, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("reload certificate: %w", err)
	}
	return nil
}

// GetByID returns a certificate of the given church.
func (r *CertificateRepo) GetByID(ctx context.Context, churchID, id string) (*model.Certificate, error) {
	q := "SELECT " + certificateColumns + " FROM certificates WHERE id = ? AND church_id = ?"
	c, err := scanCertificate(r.db.QueryRowContext(ctx, q, id, churchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

// GetByNumber looks a certificate up by its public number, across churches.
func (r *CertificateRepo) GetByNumber(ctx context.Context, number string) (*model.Certificate, error) {
	q := "SELECT " + certificateColumns + " FROM certificates WHERE certificate_number = ?"
	c, err := scanCertificate(r.db.QueryRowContext(ctx, q, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate by number: %w", err)
	}
	return c, nil
}

// List returns one page of a church's active, non-revoked certificates,
// newest first, with the total number of matches.
func (r *CertificateRepo) List(ctx context.Context, f CertificateFilter) ([]*model.Certificate, int64, error) {
	where := []string{"church_id = ?", "active = 1", "revoked = 0"}
	args := []any{f.ChurchID}
	if f.MemberID != "" {
		where = append(where, "member_id = ?")
		args = append(args, f.MemberID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM certificates WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	q := "SELECT " + certificateColumns + " FROM certificates WHERE " + cond + " ORDER BY issued_date DESC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.PageSize, (page-1)*f.PageSize)
	}
	out, err := r.list(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByMember returns the active, non-revoked certificates of a member.
func (r *CertificateRepo) ListByMember(ctx context.Context, memberID string) ([]*model.Certificate, error) {
	q := "SELECT " + certificateColumns + ` FROM certificates
		WHERE member_id = ? AND active = 1 AND revoked = 0 ORDER BY issued_date DESC`
	return r.list(ctx, q, memberID)
}

func (r *CertificateRepo) list(ctx context.Context, q string, args ...any) ([]*model.Certificate, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Certificate, 0)
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExistsActive reports whether the member already holds a non-revoked
// certificate of the given type for the same baptism, course or event.
func (r *CertificateRepo) ExistsActive(ctx context.Context, churchID, memberID, certType, refID string) (bool, error) {
	var col string
	switch certType {
	case model.CertificateBaptism:
		col = "baptism_id"
	case model.CertificateCourse:
		col = "course_id"
	case model.CertificateEvent:
		col = "event_id"
	default:
		return false, fmt.Errorf("unknown certificate type %q", certType)
	}
	q := `SELECT EXISTS(SELECT 1 FROM certificates
		WHERE church_id = ? AND member_id = ? AND type = ? AND ` + col + ` = ? AND revoked = 0)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, churchID, memberID, certType, refID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check duplicate certificate: %w", err)
	}
	return exists, nil
}

// UpdateHash overwrites the stored hash and verification URL.  MySQL reports
// zero affected rows when the values are unchanged, so existence is the
// caller's concern.
func (r *CertificateRepo) UpdateHash(ctx context.Context, churchID, id, hash, qrURL string) error {
	const q = `UPDATE certificates SET validation_hash = ?, qr_code_url = ?
		WHERE id = ? AND church_id = ?`
	if _, err := r.db.ExecContext(ctx, q, hash, qrURL, id, churchID); err != nil {
		return fmt.Errorf("update certificate hash: %w", err)
	}
	return nil
}

// Revoke marks a certificate revoked.  It returns ErrConflict when the row is
// missing or already revoked.
func (r *CertificateRepo) Revoke(ctx context.Context, churchID, id, reason string, at time.Time) error {
	const q = `UPDATE certificates SET revoked = 1, revoked_at = ?, revoke_reason = ?
		WHERE id = ? AND church_id = ? AND revoked = 0`
	res, err := r.db.ExecContext(ctx, q, at, reason, id, churchID)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
