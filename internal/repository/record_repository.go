package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

// RecordRepo reads the church records a certificate is issued from: members,
// baptisms, course completions and event attendance.  These tables belong to
// the wider application; this service only reads them.
type RecordRepo struct{ db *sql.DB }

func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

// MemberName returns the current name of a member of the church.
func (r *RecordRepo) MemberName(ctx context.Context, churchID, memberID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		"SELECT name FROM members WHERE id = ? AND church_id = ? LIMIT 1", memberID, churchID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get member: %w", err)
	}
	return name, nil
}

// BaptismBelongs reports whether the baptism exists in the church and belongs
// to the member.
func (r *RecordRepo) BaptismBelongs(ctx context.Context, churchID, baptismID, memberID string) (bool, error) {
	return r.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM baptisms WHERE id = ? AND member_id = ? AND church_id = ?)",
		baptismID, memberID, churchID)
}

// CourseCompletion reports whether the member completed the course, and which
// church the course belongs to.
func (r *RecordRepo) CourseCompletion(ctx context.Context, memberID, courseID string) (bool, string, error) {
	var churchID string
	err := r.db.QueryRowContext(ctx,
		`SELECT c.church_id FROM member_courses mc
		 JOIN courses c ON c.id = mc.course_id
		 WHERE mc.member_id = ? AND mc.course_id = ? AND mc.status = 'COMPLETED' LIMIT 1`,
		memberID, courseID).Scan(&churchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("get course completion: %w", err)
	}
	return true, churchID, nil
}

// EventInChurch reports whether the event exists in the church.
func (r *RecordRepo) EventInChurch(ctx context.Context, churchID, eventID string) (bool, error) {
	return r.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM events WHERE id = ? AND church_id = ?)", eventID, churchID)
}

// Attended reports whether the member's presence at the event was recorded.
func (r *RecordRepo) Attended(ctx context.Context, memberID, eventID string) (bool, error) {
	return r.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendances WHERE member_id = ? AND event_id = ? AND present = 1)",
		memberID, eventID)
}

// Details loads the church name and the referenced record of a certificate.
// A referenced record that has since been deleted is left nil.
func (r *RecordRepo) Details(ctx context.Context, c *model.Certificate) (*model.CertificateDetails, error) {
	d := &model.CertificateDetails{}
	err := r.db.QueryRowContext(ctx, "SELECT name FROM churches WHERE id = ?", c.ChurchID).Scan(&d.ChurchName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get church: %w", err)
	}

	switch {
	case c.BaptismID != nil:
		var (
			b                  model.BaptismInfo
			location, minister sql.NullString
		)
		err = r.db.QueryRowContext(ctx,
			"SELECT date, location, minister FROM baptisms WHERE id = ?", *c.BaptismID).
			Scan(&b.Date, &location, &minister)
		if err == nil {
			b.Location, b.Minister = stringPtr(location), stringPtr(minister)
			d.Baptism = &b
		}
	case c.CourseID != nil:
		var (
			co   model.CourseInfo
			desc sql.NullString
		)
		err = r.db.QueryRowContext(ctx,
			"SELECT name, description FROM courses WHERE id = ?", *c.CourseID).Scan(&co.Name, &desc)
		if err == nil {
			co.Description = stringPtr(desc)
			d.Course = &co
		}
	case c.EventID != nil:
		var ev model.EventInfo
		err = r.db.QueryRowContext(ctx,
			"SELECT title, date, type FROM events WHERE id = ?", *c.EventID).Scan(&ev.Title, &ev.Date, &ev.Type)
		if err == nil {
			d.Event = &ev
		}
	default:
		err = nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get certificate record: %w", err)
	}
	return d, nil
}

func (r *RecordRepo) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return ok, nil
}
