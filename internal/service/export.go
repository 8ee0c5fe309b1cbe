package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/ekklesia-certificates/internal/certificate"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

// DefaultQRSize is the PNG edge length, in pixels, of rendered QR codes.
const DefaultQRSize = 256

// ExportData is the printable view of a certificate.
type ExportData struct {
	MemberName        string             `json:"member_name"`
	CertificateNumber string             `json:"certificate_number"`
	ValidationHash    string             `json:"validation_hash"`
	ValidationURL     string             `json:"validation_url"`
	QRCodeURL         string             `json:"qr_code_url"`
	ChurchName        string             `json:"church_name"`
	Title             string             `json:"title"`
	Description       *string            `json:"description,omitempty"`
	Type              string             `json:"type"`
	IssuedDate        time.Time          `json:"issued_date"`
	IssuedBy          *string            `json:"issued_by,omitempty"`
	Baptism           *model.BaptismInfo `json:"baptism,omitempty"`
	Course            *model.CourseInfo  `json:"course,omitempty"`
	Event             *model.EventInfo   `json:"event,omitempty"`
	ValidationCount   int                `json:"validation_count"`
}

// Export assembles the printable view of a certificate of the church.
func (s *CertificateService) Export(ctx context.Context, churchID, id string) (*ExportData, error) {
	c, err := s.Get(ctx, churchID, id)
	if err != nil {
		return nil, err
	}
	d, err := s.records.Details(ctx, c)
	if err != nil {
		return nil, err
	}
	checks, err := s.validations.CountForCertificate(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	validationURL := s.VerificationURL(c)
	qrURL := c.QRCodeURL
	if qrURL == "" {
		qrURL = validationURL
	}
	return &ExportData{
		MemberName:        c.MemberName,
		CertificateNumber: c.CertificateNumber,
		ValidationHash:    c.ValidationHash,
		ValidationURL:     validationURL,
		QRCodeURL:         qrURL,
		ChurchName:        d.ChurchName,
		Title:             c.Title,
		Description:       c.Description,
		Type:              c.Type,
		IssuedDate:        c.IssuedDate,
		IssuedBy:          c.IssuedBy,
		Baptism:           d.Baptism,
		Course:            d.Course,
		Event:             d.Event,
		ValidationCount:   checks,
	}, nil
}

// WriteCSV writes the export as field,value rows with a header row.  Nested
// records are flattened to "record.field" keys.  Dates use the millisecond
// UTC form bound into the validation hash.
func (e *ExportData) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"field", "value"},
		{"member_name", e.MemberName},
		{"certificate_number", e.CertificateNumber},
		{"validation_hash", e.ValidationHash},
		{"validation_url", e.ValidationURL},
		{"qr_code_url", e.QRCodeURL},
		{"church_name", e.ChurchName},
		{"title", e.Title},
		{"description", deref(e.Description)},
		{"type", e.Type},
		{"issued_date", certificate.FormatIssuedDate(e.IssuedDate)},
		{"issued_by", deref(e.IssuedBy)},
		{"validation_count", strconv.Itoa(e.ValidationCount)},
	}
	if b := e.Baptism; b != nil {
		rows = append(rows,
			[]string{"baptism.date", certificate.FormatIssuedDate(b.Date)},
			[]string{"baptism.location", deref(b.Location)},
			[]string{"baptism.minister", deref(b.Minister)})
	}
	if c := e.Course; c != nil {
		rows = append(rows,
			[]string{"course.name", c.Name},
			[]string{"course.description", deref(c.Description)})
	}
	if ev := e.Event; ev != nil {
		rows = append(rows,
			[]string{"event.title", ev.Title},
			[]string{"event.date", certificate.FormatIssuedDate(ev.Date)},
			[]string{"event.type", ev.Type})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// QRCode renders the certificate's verification URL as a PNG.  It returns
// the certificate too so callers can name the download.
func (s *CertificateService) QRCode(ctx context.Context, churchID, id string, size int) ([]byte, *model.Certificate, error) {
	c, err := s.Get(ctx, churchID, id)
	if err != nil {
		return nil, nil, err
	}
	if size <= 0 || size > 1024 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(s.VerificationURL(c), qrcode.Medium, size)
	if err != nil {
		return nil, nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, c, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
