package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	firmmodels "firmgate/internal/firm/models"
	"firmgate/internal/token/handler/mocks"
	"firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
	"firmgate/pkg/requestcontext"
)

const adminEmail = "admin@example.com"

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.service.EXPECT().OnboardingLink(gomock.Any()).DoAndReturn(func(v string) string {
		return "https://app.test/firm-signup?token=" + v
	}).AnyTimes()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Email: adminEmail})
			ctx = requestcontext.WithTime(ctx, s.now)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	New(s.service, slog.New(slog.DiscardHandler)).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func (s *HandlerSuite) TestGenerate() {
	firmID := id.NewFirmID()
	value := strings.Repeat("k", models.Length)
	issued := &models.IssuedToken{TokenID: id.NewTokenID(), Token: value, ExpiresAt: s.now.Add(24 * time.Hour)}
	s.service.EXPECT().Generate(gomock.Any(), firmID, adminEmail).Return(issued, nil)

	rec := s.do(http.MethodPost, "/admin/firms/"+firmID.String()+"/tokens")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var resp IssuedTokenResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(value, resp.Token)
	s.Equal("https://app.test/firm-signup?token="+value, resp.Link)
}

func (s *HandlerSuite) TestGenerateConflict() {
	firmID := id.NewFirmID()
	s.service.EXPECT().Generate(gomock.Any(), firmID, adminEmail).
		Return(nil, dErrors.New(dErrors.CodeConflict, "this firm already has an active onboarding token"))

	rec := s.do(http.MethodPost, "/admin/firms/"+firmID.String()+"/tokens")
	s.Equal(http.StatusConflict, rec.Code)
	s.Contains(rec.Body.String(), "already has an active onboarding token")
}

func (s *HandlerSuite) TestForceGenerate() {
	firmID := id.NewFirmID()
	issued := &models.IssuedToken{TokenID: id.NewTokenID(), Token: strings.Repeat("f", models.Length), Invalidated: 2}
	s.service.EXPECT().ForceGenerate(gomock.Any(), firmID, adminEmail).Return(issued, nil)

	rec := s.do(http.MethodPost, "/admin/firms/"+firmID.String()+"/tokens/force")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var resp IssuedTokenResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Invalidated)
}

func (s *HandlerSuite) TestInvalidFirmID() {
	rec := s.do(http.MethodPost, "/admin/firms/nope/tokens")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestListActiveIncludesExpired() {
	firmID := id.NewFirmID()
	expired := &models.Token{ID: id.NewTokenID(), FirmID: firmID, Value: strings.Repeat("e", models.Length),
		CreatedAt: s.now.Add(-48 * time.Hour), ExpiresAt: s.now.Add(-24 * time.Hour)}
	valid := &models.Token{ID: id.NewTokenID(), FirmID: firmID, Value: strings.Repeat("v", models.Length),
		CreatedAt: s.now, ExpiresAt: s.now.Add(24 * time.Hour)}
	summary := &firmmodels.Summary{ID: firmID, Name: "Acme", Email: "ops@acme.test"}
	s.service.EXPECT().ListActive(gomock.Any()).Return([]models.TokenWithFirm{
		{Token: valid, Firm: summary},
		{Token: expired, Firm: nil},
	}, nil)

	rec := s.do(http.MethodGet, "/admin/tokens/active")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp TokenListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Tokens, 2)
	s.Equal(statusValid, resp.Tokens[0].Status)
	s.Equal("Acme", resp.Tokens[0].Firm.Name)
	s.Equal(statusExpired, resp.Tokens[1].Status)
	s.Nil(resp.Tokens[1].Firm)
}

func (s *HandlerSuite) TestListForFirmHidesUsedSecrets() {
	firmID := id.NewFirmID()
	usedAt := s.now.Add(-time.Hour)
	used := &models.Token{ID: id.NewTokenID(), FirmID: firmID, Value: strings.Repeat("u", models.Length),
		IsUsed: true, UsedAt: &usedAt, CreatedAt: s.now.Add(-2 * time.Hour), ExpiresAt: s.now.Add(22 * time.Hour)}
	s.service.EXPECT().ListForFirm(gomock.Any(), firmID).Return([]*models.Token{used}, nil)

	rec := s.do(http.MethodGet, "/admin/firms/"+firmID.String()+"/tokens")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp TokenListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Tokens, 1)
	s.Equal(statusUsed, resp.Tokens[0].Status)
	s.Empty(resp.Tokens[0].Token)
	s.Empty(resp.Tokens[0].Link)
}

func (s *HandlerSuite) TestListAllError() {
	s.service.EXPECT().ListAll(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "db down"))
	rec := s.do(http.MethodGet, "/admin/tokens")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "db down")
}
