package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ekklesia-certificates/internal/middleware"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
	"github.com/iliyamo/ekklesia-certificates/internal/service"
)

// fakeCertificates implements Certificates with overridable funcs.  Unset
// funcs fail the call with an internal error.
type fakeCertificates struct {
	issue    func(service.IssueRequest) (*model.Certificate, error)
	get      func(churchID, id string) (*model.Certificate, error)
	list     func(repository.CertificateFilter) ([]*model.Certificate, int64, error)
	listMine func(memberID string) ([]*model.Certificate, error)
	export   func(churchID, id string) (*service.ExportData, error)
	qrcode   func(churchID, id string, size int) ([]byte, *model.Certificate, error)
	rehash   func(churchID, id string) (*model.Certificate, error)
	revoke   func(churchID, id, reason string) (*model.Certificate, error)
	validate func(service.ValidateRequest) (*service.ValidationResult, error)
}

var errUnexpected = io.ErrUnexpectedEOF

func (f *fakeCertificates) Issue(_ context.Context, r service.IssueRequest) (*model.Certificate, error) {
	if f.issue == nil {
		return nil, errUnexpected
	}
	return f.issue(r)
}

func (f *fakeCertificates) Get(_ context.Context, churchID, id string) (*model.Certificate, error) {
	if f.get == nil {
		return nil, errUnexpected
	}
	return f.get(churchID, id)
}

func (f *fakeCertificates) List(_ context.Context, flt repository.CertificateFilter) ([]*model.Certificate, int64, error) {
	if f.list == nil {
		return nil, 0, errUnexpected
	}
	return f.list(flt)
}

func (f *fakeCertificates) ListForMember(_ context.Context, memberID string) ([]*model.Certificate, error) {
	if f.listMine == nil {
		return nil, errUnexpected
	}
	return f.listMine(memberID)
}

func (f *fakeCertificates) Export(_ context.Context, churchID, id string) (*service.ExportData, error) {
	if f.export == nil {
		return nil, errUnexpected
	}
	return f.export(churchID, id)
}

func (f *fakeCertificates) QRCode(_ context.Context, churchID, id string, size int) ([]byte, *model.Certificate, error) {
	if f.qrcode == nil {
		return nil, nil, errUnexpected
	}
	return f.qrcode(churchID, id, size)
}

func (f *fakeCertificates) RegenerateHash(_ context.Context, churchID, id string) (*model.Certificate, error) {
	if f.rehash == nil {
		return nil, errUnexpected
	}
	return f.rehash(churchID, id)
}

func (f *fakeCertificates) Revoke(_ context.Context, churchID, id, reason string) (*model.Certificate, error) {
	if f.revoke == nil {
		return nil, errUnexpected
	}
	return f.revoke(churchID, id, reason)
}

func (f *fakeCertificates) Validate(_ context.Context, r service.ValidateRequest) (*service.ValidationResult, error) {
	if f.validate == nil {
		return nil, errUnexpected
	}
	return f.validate(r)
}

type fakeUsers struct {
	byEmail map[string]model.User
	byID    map[uint64]model.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// request builds an echo context as JWTAuth would leave it.
func request(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, uint64(5))
	c.Set(middleware.CtxRole, model.RolePastor)
	c.Set(middleware.CtxChurchID, "ch1")
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func sampleCert() *model.Certificate {
	return &model.Certificate{
		ID:                "c1",
		ChurchID:          "ch1",
		MemberID:          "m1",
		MemberName:        "Ana Silva",
		Type:              model.CertificateCourse,
		Title:             "Curso X",
		CertificateNumber: "CERT-1-ABCD",
		ValidationHash:    strings.Repeat("a", 64),
		IssuedDate:        time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Active:            true,
	}
}
