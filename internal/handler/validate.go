package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/service"
)

// publicCertificate is what an anonymous verifier is shown.  Internal ids and
// the hash itself are left out.
type publicCertificate struct {
	Number     string             `json:"certificateNumber"`
	MemberName string             `json:"memberName"`
	Type       string             `json:"type"`
	Title      string             `json:"title"`
	IssuedDate time.Time          `json:"issuedDate"`
	IssuedBy   *string            `json:"issuedBy,omitempty"`
	ValidUntil *time.Time         `json:"validUntil,omitempty"`
	ChurchName string             `json:"churchName,omitempty"`
	Baptism    *model.BaptismInfo `json:"baptism,omitempty"`
	Course     *model.CourseInfo  `json:"course,omitempty"`
	Event      *model.EventInfo   `json:"event,omitempty"`
}

type validationResp struct {
	IsValid      bool               `json:"isValid"`
	Message      string             `json:"message"`
	FraudAlert   bool               `json:"fraudAlert,omitempty"`
	Revoked      bool               `json:"revoked,omitempty"`
	RevokedAt    *time.Time         `json:"revokedAt,omitempty"`
	RevokeReason *string            `json:"revokeReason,omitempty"`
	Expired      bool               `json:"expired,omitempty"`
	ValidUntil   *time.Time         `json:"validUntil,omitempty"`
	Scheme       int                `json:"scheme,omitempty"`
	Certificate  *publicCertificate `json:"certificate,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// Validate handles the public GET /v1/certificates/validate and
// /validate-certificate routes.  The query carries number and hash, exactly
// as printed in the QR code URL.
func (h *CertificateHandler) Validate(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Validate(ctx, service.ValidateRequest{
		Number:    c.QueryParam("number"),
		Hash:      c.QueryParam("hash"),
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalid) {
			return c.JSON(http.StatusBadRequest, validationResp{Message: "number and hash are required"})
		}
		c.Logger().Errorf("validate certificate: %v", err)
		return c.JSON(http.StatusInternalServerError, validationResp{Message: "validation failed"})
	}

	cert := res.Certificate
	switch res.Outcome {
	case service.OutcomeNotFound:
		return c.JSON(http.StatusNotFound, validationResp{
			Message:    "certificate not found",
			FraudAlert: true,
		})
	case service.OutcomeRevoked:
		return c.JSON(http.StatusGone, validationResp{
			Message:      "certificate revoked",
			Revoked:      true,
			RevokedAt:    cert.RevokedAt,
			RevokeReason: cert.RevokeReason,
		})
	case service.OutcomeInactive:
		return c.JSON(http.StatusForbidden, validationResp{Message: "certificate inactive"})
	case service.OutcomeExpired:
		return c.JSON(http.StatusGone, validationResp{
			Message:    "certificate expired",
			Expired:    true,
			ValidUntil: cert.ValidUntil,
		})
	case service.OutcomeHashMismatch:
		return c.JSON(http.StatusForbidden, validationResp{
			Message:    "invalid validation hash",
			FraudAlert: true,
		})
	}

	pc := &publicCertificate{
		Number:     cert.CertificateNumber,
		MemberName: cert.MemberName,
		Type:       cert.Type,
		Title:      cert.Title,
		IssuedDate: cert.IssuedDate,
		IssuedBy:   cert.IssuedBy,
		ValidUntil: cert.ValidUntil,
	}
	if d := res.Details; d != nil {
		pc.ChurchName, pc.Baptism, pc.Course, pc.Event = d.ChurchName, d.Baptism, d.Course, d.Event
	}
	return c.JSON(http.StatusOK, validationResp{
		IsValid:     true,
		Message:     "certificate is valid",
		Scheme:      res.SchemeVersion,
		Certificate: pc,
		Warnings:    res.Warnings,
	})
}
