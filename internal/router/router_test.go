package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/ekklesia-certificates/internal/config"
	"github.com/iliyamo/ekklesia-certificates/internal/handler"
	"github.com/iliyamo/ekklesia-certificates/internal/service"
	"github.com/iliyamo/ekklesia-certificates/internal/utils"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	// Stores are never reached: every request below stops at middleware or
	// input validation.
	svc := service.NewCertificateService(nil, nil, nil, nil, service.Config{Secret: "s"}, nil)
	h := handler.NewCertificateHandler(svc, nil)

	RegisterRoutes(e, okPinger{})
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "k"}, nil, nil), "k")
	RegisterPublicValidation(e, h, nil)
	RegisterCertificates(e, h, "k", nil)
	return e
}

func do(e *echo.Echo, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestProbes(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/readyz", ""))
}

func TestPublicValidationNeedsNoToken(t *testing.T) {
	e := newServer()
	// Missing hash: rejected by the service, not by auth.
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/certificates/validate?number=CERT-1", ""))
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/validate-certificate?number=CERT-1", ""))
}

func TestTenantRoutesRequireToken(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/v1/certificates"},
		{http.MethodPost, "/v1/certificates"},
		{http.MethodGet, "/v1/certificates/c1"},
		{http.MethodGet, "/v1/certificates/c1/export"},
		{http.MethodGet, "/v1/certificates/c1/qrcode"},
		{http.MethodPost, "/v1/certificates/c1/update-hash"},
		{http.MethodPost, "/v1/certificates/c1/revoke"},
		{http.MethodGet, "/v1/members/me/certificates"},
		{http.MethodGet, "/v1/me"},
	} {
		assert.Equal(t, http.StatusUnauthorized, do(e, r.method, r.path, ""), r.path)
	}
}

func TestRoleGates(t *testing.T) {
	e := newServer()
	tok := func(role string) string {
		at, err := utils.NewAccessToken("k", utils.Identity{UserID: 1, Role: role, ChurchID: "ch1", MemberID: "m1"}, 5)
		if err != nil {
			t.Fatal(err)
		}
		return at.Token
	}
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/certificates", tok("MEMBER")))
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/v1/certificates/c1/revoke", tok("SECRETARY")))
	// Body validation runs after the role gate.
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/certificates/c1/revoke", tok("PASTOR")))
}
