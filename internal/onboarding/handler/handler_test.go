package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	firmmodels "firmgate/internal/firm/models"
	"firmgate/internal/onboarding/handler/mocks"
	"firmgate/internal/onboarding/models"
	tokenmodels "firmgate/internal/token/models"
	id "firmgate/pkg/domain"
	dErrors "firmgate/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
	token   string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.token = strings.Repeat("Ab1", 10) + "xy"
	r := chi.NewRouter()
	New(s.service, slog.New(slog.DiscardHandler)).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestBeginValid() {
	summary := firmmodels.Summary{ID: id.NewFirmID(), Name: "Acme", Email: "acme@firm.test"}
	s.service.EXPECT().Begin(gomock.Any(), s.token).
		Return(tokenmodels.Valid(&tokenmodels.Token{Value: s.token, FirmID: summary.ID}, summary))

	rec := s.do(http.MethodGet, "/firm-signup?token="+s.token, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SignupStateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Valid)
	s.Require().NotNil(resp.Firm)
	s.Equal("Acme", resp.Firm.Name)
}

func (s *HandlerSuite) TestBeginInvalidCarriesMessage() {
	s.service.EXPECT().Begin(gomock.Any(), "nope").Return(tokenmodels.Invalid(tokenmodels.ReasonUsed))

	rec := s.do(http.MethodGet, "/firm-signup?token=nope", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SignupStateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Valid)
	s.Equal("used", resp.Reason)
	s.Equal(tokenmodels.MessageUsed, resp.Message)
	s.Nil(resp.Firm)
}

func (s *HandlerSuite) TestCredentialsCompleted() {
	s.service.EXPECT().SubmitCredential(gomock.Any(), s.token, "Passw0rdX").
		Return(&models.Outcome{Status: models.OutcomeCompleted, Email: "acme@firm.test"}, nil)

	rec := s.do(http.MethodPost, "/firm-signup/credentials",
		`{"token":" `+s.token+` ","password":"Passw0rdX","confirm_password":"Passw0rdX"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp OutcomeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("completed", resp.Status)
	s.Equal(firmDashboardPath, resp.RedirectURL)
}

func (s *HandlerSuite) TestCredentialsNeedsVerification() {
	s.service.EXPECT().SubmitCredential(gomock.Any(), s.token, "Passw0rdX").
		Return(&models.Outcome{Status: models.OutcomeVerificationRequired, Email: "acme@firm.test"}, nil)

	rec := s.do(http.MethodPost, "/firm-signup/credentials",
		`{"token":"`+s.token+`","password":"Passw0rdX","confirm_password":"Passw0rdX"}`)
	s.Require().Equal(http.StatusAccepted, rec.Code)
	var resp OutcomeResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("verification_required", resp.Status)
	s.Empty(resp.RedirectURL)
}

func (s *HandlerSuite) TestCredentialsPasswordRules() {
	cases := map[string]string{
		"mismatch":  `{"token":"` + s.token + `","password":"Passw0rdX","confirm_password":"Passw0rdY"}`,
		"too short": `{"token":"` + s.token + `","password":"Pa0","confirm_password":"Pa0"}`,
		"no digit":  `{"token":"` + s.token + `","password":"Password","confirm_password":"Password"}`,
		"no upper":  `{"token":"` + s.token + `","password":"passw0rdx","confirm_password":"passw0rdx"}`,
		"no token":  `{"password":"Passw0rdX","confirm_password":"Passw0rdX"}`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/firm-signup/credentials", body)
			s.Equal(http.StatusBadRequest, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestCredentialsTokenErrors() {
	cases := map[string]struct {
		err    error
		status int
	}{
		"not found": {dErrors.New(dErrors.CodeNotFound, tokenmodels.MessageNotFound), http.StatusNotFound},
		"used":      {dErrors.New(dErrors.CodeConflict, tokenmodels.MessageUsed), http.StatusConflict},
		"expired":   {dErrors.New(dErrors.CodeExpired, tokenmodels.MessageExpired), http.StatusGone},
		"identity":  {dErrors.New(dErrors.CodeInternal, "identity service unavailable"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			s.service.EXPECT().SubmitCredential(gomock.Any(), s.token, "Passw0rdX").Return(nil, tc.err)

			rec := s.do(http.MethodPost, "/firm-signup/credentials",
				`{"token":"`+s.token+`","password":"Passw0rdX","confirm_password":"Passw0rdX"}`)
			s.Equal(tc.status, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestVerify() {
	s.service.EXPECT().VerifyCode(gomock.Any(), s.token, "123456").
		Return(&models.Outcome{Status: models.OutcomeCompleted, Email: "acme@firm.test"}, nil)

	rec := s.do(http.MethodPost, "/firm-signup/verify", `{"token":"`+s.token+`","code":" 123456 "}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestVerifyUnverified() {
	s.service.EXPECT().VerifyCode(gomock.Any(), s.token, "123456").
		Return(nil, dErrors.New(dErrors.CodeUnverified, "email verification is not complete yet"))

	rec := s.do(http.MethodPost, "/firm-signup/verify", `{"token":"`+s.token+`","code":"123456"}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestVerifyRejectsMalformedCode() {
	rec := s.do(http.MethodPost, "/firm-signup/verify", `{"token":"`+s.token+`","code":"12ab"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestResend() {
	s.service.EXPECT().ResendCode(gomock.Any(), s.token).Return(nil)

	rec := s.do(http.MethodPost, "/firm-signup/resend", `{"token":"`+s.token+`"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"sent":true`)
}
