package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ekklesia-certificates/internal/middleware"
	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
	"github.com/iliyamo/ekklesia-certificates/internal/service"
)

// Certificates is the part of service.CertificateService the HTTP layer uses.
type Certificates interface {
	Issue(ctx context.Context, req service.IssueRequest) (*model.Certificate, error)
	Get(ctx context.Context, churchID, id string) (*model.Certificate, error)
	List(ctx context.Context, f repository.CertificateFilter) ([]*model.Certificate, int64, error)
	ListForMember(ctx context.Context, memberID string) ([]*model.Certificate, error)
	Export(ctx context.Context, churchID, id string) (*service.ExportData, error)
	QRCode(ctx context.Context, churchID, id string, size int) ([]byte, *model.Certificate, error)
	RegenerateHash(ctx context.Context, churchID, id string) (*model.Certificate, error)
	Revoke(ctx context.Context, churchID, id, reason string) (*model.Certificate, error)
	Validate(ctx context.Context, req service.ValidateRequest) (*service.ValidationResult, error)
}

// CertificateHandler serves the tenant certificate routes and the public
// validation endpoint.
type CertificateHandler struct {
	Svc   Certificates
	Users UserStore // optional; supplies the default signer name on issue
}

func NewCertificateHandler(svc Certificates, users UserStore) *CertificateHandler {
	return &CertificateHandler{Svc: svc, Users: users}
}

type issueReq struct {
	MemberID    string     `json:"member_id" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	BaptismID   *string    `json:"baptism_id"`
	CourseID    *string    `json:"course_id"`
	EventID     *string    `json:"event_id"`
	IssuedBy    *string    `json:"issued_by" validate:"omitempty,max=255"`
	ValidUntil  *time.Time `json:"valid_until"`
}

type revokeReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Issue handles POST /v1/certificates.
func (h *CertificateHandler) Issue(c echo.Context) error {
	var req issueReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	cert, err := h.Svc.Issue(ctx, service.IssueRequest{
		ChurchID:    middleware.ChurchID(c),
		MemberID:    req.MemberID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		BaptismID:   req.BaptismID,
		CourseID:    req.CourseID,
		EventID:     req.EventID,
		IssuedBy:    req.IssuedBy,
		ValidUntil:  req.ValidUntil,
		IssuerName:  h.issuerName(ctx, c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, cert)
}

func (h *CertificateHandler) issuerName(ctx context.Context, c echo.Context) string {
	uid, ok := middleware.UserID(c)
	if !ok || h.Users == nil {
		return ""
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		c.Logger().Warnf("load issuer %d: %v", uid, err)
		return ""
	}
	return u.Name
}

// List handles GET /v1/certificates?member_id=&type=&page=&page_size=.
func (h *CertificateHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Svc.List(ctx, repository.CertificateFilter{
		ChurchID: middleware.ChurchID(c),
		MemberID: strings.TrimSpace(c.QueryParam("member_id")),
		Type:     strings.TrimSpace(c.QueryParam("type")),
		Page:     page,
		PageSize: ps,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

// Get handles GET /v1/certificates/:id.
func (h *CertificateHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cert, err := h.Svc.Get(ctx, middleware.ChurchID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cert)
}

// Export handles GET /v1/certificates/:id/export?format=json|csv.
func (h *CertificateHandler) Export(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "format must be json or csv"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	data, err := h.Svc.Export(ctx, middleware.ChurchID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="certificado-%s.%s"`, data.CertificateNumber, format))

	if format == "json" {
		return c.JSON(http.StatusOK, data)
	}
	var buf bytes.Buffer
	if err := data.WriteCSV(&buf); err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// QRCode handles GET /v1/certificates/:id/qrcode?size=.
func (h *CertificateHandler) QRCode(c echo.Context) error {
	size, _ := strconv.Atoi(c.QueryParam("size"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	png, cert, err := h.Svc.QRCode(ctx, middleware.ChurchID(c), c.Param("id"), size)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="qrcode-%s.png"`, cert.CertificateNumber))
	return c.Blob(http.StatusOK, "image/png", png)
}

// UpdateHash handles POST /v1/certificates/:id/update-hash.
func (h *CertificateHandler) UpdateHash(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cert, err := h.Svc.RegenerateHash(ctx, middleware.ChurchID(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "validation hash updated",
		"certificate": cert,
	})
}

// Revoke handles POST /v1/certificates/:id/revoke.
func (h *CertificateHandler) Revoke(c echo.Context) error {
	var req revokeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cert, err := h.Svc.Revoke(ctx, middleware.ChurchID(c), c.Param("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "certificate revoked",
		"certificate": cert,
	})
}

// MyCertificates handles GET /v1/members/me/certificates.
func (h *CertificateHandler) MyCertificates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Svc.ListForMember(ctx, middleware.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "total": len(items)})
}
