package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"firmgate/internal/audit"
	auditstore "firmgate/internal/audit/store"
	"firmgate/internal/firm/service"
	firmstore "firmgate/internal/firm/store"
	"firmgate/pkg/requestcontext"
)

const adminEmail = "admin@example.com"

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	svc := service.New(firmstore.NewInMemory(), audit.NewWriter(auditstore.NewInMemoryStore()))
	h := New(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Subject: "user_admin", Email: adminEmail})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createFirm(email string) FirmResponse {
	rec := s.do(http.MethodPost, "/admin/firms", `{"name":" Acme Legal ","email":" `+email+` "}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp FirmResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) TestCreateTrimsInput() {
	resp := s.createFirm("ops@acme.test")
	s.Equal("Acme Legal", resp.Name)
	s.Equal("ops@acme.test", resp.Email)
	s.False(resp.HasCompletedOnboarding)
}

func (s *HandlerSuite) TestCreateDuplicateReturns409() {
	s.createFirm("ops@acme.test")
	rec := s.do(http.MethodPost, "/admin/firms", `{"name":"Other","email":"ops@acme.test"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "a firm with this email already exists")
}

func (s *HandlerSuite) TestCreateValidation() {
	cases := map[string]string{
		"missing name": `{"email":"ops@acme.test"}`,
		"bad email":    `{"name":"Acme","email":"not-an-email"}`,
		"blank name":   `{"name":"   ","email":"ops@acme.test"}`,
		"invalid json": `{"name":`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/admin/firms", body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestGetAndList() {
	created := s.createFirm("ops@acme.test")

	rec := s.do(http.MethodGet, "/admin/firms/"+created.ID, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/admin/firms/"+uuid.New().String(), "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/admin/firms/not-a-uuid", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/admin/firms", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var list FirmListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Len(list.Firms, 1)
}

func (s *HandlerSuite) TestPatch() {
	created := s.createFirm("ops@acme.test")

	rec := s.do(http.MethodPatch, "/admin/firms/"+created.ID, `{"phone":" 555-0100 "}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp FirmResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("555-0100", resp.Phone)
	s.Equal("Acme Legal", resp.Name)

	rec = s.do(http.MethodPatch, "/admin/firms/"+created.ID, `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMissingPrincipal() {
	svc := service.New(firmstore.NewInMemory(), audit.NewWriter(auditstore.NewInMemoryStore()))
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/admin/firms", strings.NewReader(`{"name":"Acme","email":"ops@acme.test"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
