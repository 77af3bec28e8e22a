package access

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"firmgate/internal/audit"
	auditstore "firmgate/internal/audit/store"
	firmhandler "firmgate/internal/firm/handler"
	firmmodels "firmgate/internal/firm/models"
	firmservice "firmgate/internal/firm/service"
	firmstore "firmgate/internal/firm/store"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

const (
	adminEmail   = "admin@firmgate.test"
	onboarded    = "done@firm.test"
	notOnboarded = "pending@firm.test"
)

type failingLookup struct{}

func (failingLookup) GetByEmail(context.Context, string) (*firmmodels.Firm, error) {
	return nil, errors.New("db down")
}

type AccessSuite struct {
	suite.Suite
	ctx        context.Context
	firms      *firmservice.Service
	classifier *Classifier
	router     http.Handler
	doneFirm   *firmmodels.Firm
}

func TestAccessSuite(t *testing.T) {
	suite.Run(t, new(AccessSuite))
}

func (s *AccessSuite) SetupTest() {
	s.ctx = context.Background()
	s.firms = firmservice.New(firmstore.NewInMemory(), audit.NewWriter(auditstore.NewInMemoryStore()))

	var err error
	s.doneFirm, err = s.firms.Create(s.ctx, firmmodels.CreateFirmCommand{Name: "Done LLP", Email: onboarded}, adminEmail)
	s.Require().NoError(err)
	_, err = s.firms.CompleteOnboarding(s.ctx, onboarded, "user_done")
	s.Require().NoError(err)
	_, err = s.firms.Create(s.ctx, firmmodels.CreateFirmCommand{Name: "Pending LLP", Email: notOnboarded}, adminEmail)
	s.Require().NoError(err)

	s.classifier = NewClassifier(adminEmail, s.firms, slog.New(slog.DiscardHandler), nil)
	h := NewHandler(s.classifier, s.firms, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	h.RegisterAuth(r)
	r.Group(func(r chi.Router) {
		r.Use(s.classifier.RequireRole(RoleFirm))
		h.RegisterFirm(r)
	})
	r.With(s.classifier.RequireRole(RoleAdmin)).Get("/admin/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router = r
}

func (s *AccessSuite) do(path, email string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if email != "" {
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Email: email}))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AccessSuite) TestClassify() {
	cases := map[string]Role{
		adminEmail:             RoleAdmin,
		" " + adminEmail + " ": RoleAdmin,
		onboarded:              RoleFirm,
		notOnboarded:           RoleUnrecognized,
		"stranger@example.com": RoleUnrecognized,
		"":                     RoleUnrecognized,
	}
	for email, want := range cases {
		cls, err := s.classifier.Classify(s.ctx, email)
		s.Require().NoError(err, email)
		s.Equal(want, cls.Role, email)
	}

	cls, err := s.classifier.Classify(s.ctx, onboarded)
	s.Require().NoError(err)
	s.Equal(s.doneFirm.ID, cls.FirmID)
}

func (s *AccessSuite) TestClassifyIsNotCached() {
	cls, err := s.classifier.Classify(s.ctx, notOnboarded)
	s.Require().NoError(err)
	s.Equal(RoleUnrecognized, cls.Role)

	_, err = s.firms.CompleteOnboarding(s.ctx, notOnboarded, "user_pending")
	s.Require().NoError(err)

	cls, err = s.classifier.Classify(s.ctx, notOnboarded)
	s.Require().NoError(err)
	s.Equal(RoleFirm, cls.Role)
}

func (s *AccessSuite) TestClassifyStoreFailure() {
	c := NewClassifier(adminEmail, failingLookup{}, nil, nil)
	_, err := c.Classify(s.ctx, onboarded)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *AccessSuite) TestRequireRole() {
	s.Equal(http.StatusUnauthorized, s.do("/admin/ping", "").Code)
	s.Equal(http.StatusNoContent, s.do("/admin/ping", adminEmail).Code)
	s.Equal(http.StatusForbidden, s.do("/admin/ping", onboarded).Code)

	rec := s.do("/admin/ping", "stranger@example.com")
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal(AccessDeniedPath, rec.Header().Get("Location"))

	s.Equal(http.StatusForbidden, s.do("/firm/me", adminEmail).Code)
}

func (s *AccessSuite) TestRedirect() {
	cases := map[string]string{
		adminEmail:   AdminDashboardPath,
		onboarded:    FirmDashboardPath,
		notOnboarded: AccessDeniedPath,
	}
	for email, want := range cases {
		rec := s.do("/auth/redirect", email)
		s.Equal(http.StatusSeeOther, rec.Code, email)
		s.Equal(want, rec.Header().Get("Location"), email)
	}
	s.Equal(http.StatusUnauthorized, s.do("/auth/redirect", "").Code)
}

func (s *AccessSuite) TestWhoAmI() {
	rec := s.do("/auth/whoami", onboarded)
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp WhoAmIResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("firm", resp.Role)
	s.Equal(s.doneFirm.ID.String(), resp.FirmID)
}

func (s *AccessSuite) TestFirmMe() {
	rec := s.do("/firm/me", onboarded)
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp firmhandler.FirmResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("Done LLP", resp.Name)
	s.True(resp.HasCompletedOnboarding)
}
