package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"tenderdesk/internal/auth/reset"
	"tenderdesk/internal/auth/secrets"
	"tenderdesk/internal/auth/service"
	"tenderdesk/internal/auth/session"
	"tenderdesk/internal/auth/token"
	"tenderdesk/internal/directory"
	dErrors "tenderdesk/pkg/domain-errors"
	mwauth "tenderdesk/pkg/platform/middleware/auth"
	"tenderdesk/pkg/testutil"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testEmail    = "marie.dubois@example.com"
	testPassword = "correct-horse"
)

type recordingSender struct {
	codes []string
}

func (s *recordingSender) Send(_ context.Context, _, code string) error {
	s.codes = append(s.codes, code)
	return nil
}

type AuthHandlerSuite struct {
	suite.Suite
	dir    *directory.InMemoryDirectory
	sender *recordingSender
	router chi.Router
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.dir = directory.NewInMemoryDirectory()
	s.sender = &recordingSender{}
	sessions := session.NewInMemoryStore()
	challenges := reset.NewInMemoryChallengeStore()

	codec, err := token.NewCodec(testSecret, "tenderdesk", "tenderdesk-api")
	s.Require().NoError(err)

	svc := service.New(s.dir, codec, sessions, time.Hour, logger)
	flow := reset.NewFlow(s.dir, challenges, s.sender, 15*time.Minute, logger)

	passthrough := func(next http.Handler) http.Handler { return next }
	s.router = chi.NewRouter()
	New(svc, flow, logger).Register(s.router, mwauth.RequireAuth(svc, logger), passthrough)

	hash, err := secrets.HashPassword(testPassword)
	s.Require().NoError(err)
	_, err = directory.SeedIdentity(context.Background(), s.dir, testEmail, hash, directory.RoleUser)
	s.Require().NoError(err)
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) loginToken() string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	result := testutil.UnmarshalResponse[service.LoginResult](s.T(), rr)
	s.Require().NotEmpty(result.Token)
	return result.Token
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("succeeds with valid credentials", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email":    "Marie.Dubois@Example.com",
			"password": testPassword,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		result := testutil.UnmarshalResponse[service.LoginResult](s.T(), rr)
		s.NotEmpty(result.Token)
		s.Equal(testEmail, result.User.Email)
	})

	s.Run("rejects bad credentials with 401", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email":    testEmail,
			"password": "wrong",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("rejects missing fields with 400", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email": testEmail,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *AuthHandlerSuite) TestMe() {
	tokenString := s.loginToken()

	s.Run("returns the caller's profile", func() {
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), tokenString)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		profile := testutil.UnmarshalResponse[service.Profile](s.T(), rr)
		s.Equal(testEmail, profile.Email)
	})

	s.Run("rejects a missing token", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/auth/me")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("rejects a garbage token", func() {
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), "garbage")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	tokenString := s.loginToken()

	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/auth/logout"), tokenString)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	// The revoked token no longer authenticates.
	req = testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), tokenString)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *AuthHandlerSuite) TestLogoutAll() {
	first := s.loginToken()
	second := s.loginToken()

	req := testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/logout-all", map[string]bool{"keep_current": true}),
		second,
	)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[logoutAllResponse](s.T(), rr)
	s.Equal(1, resp.RevokedCount)

	req = testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), first)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized)

	req = testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/me"), second)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)
}

func (s *AuthHandlerSuite) TestForgotPassword() {
	s.Run("returns 200 for a known email", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/forgot-password", map[string]string{
			"email": testEmail,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Len(s.sender.codes, 1)
	})

	s.Run("returns 200 for an unknown email without sending", func() {
		before := len(s.sender.codes)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/forgot-password", map[string]string{
			"email": "nobody@example.com",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Len(s.sender.codes, before)
	})
}

func (s *AuthHandlerSuite) TestResetPasswordFlow() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": testEmail,
	})
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)
	s.Require().NotEmpty(s.sender.codes)
	code := s.sender.codes[len(s.sender.codes)-1]

	s.Run("verify reports a valid code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/verify-reset-token", map[string]string{
			"email": testEmail,
			"code":  code,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[verifyResetTokenResponse](s.T(), rr)
		s.True(resp.Valid)
	})

	s.Run("verify reports an invalid code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/verify-reset-token", map[string]string{
			"email": testEmail,
			"code":  "000000",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[verifyResetTokenResponse](s.T(), rr)
		s.False(resp.Valid)
	})

	s.Run("reset updates the password and consumes the code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/reset-password", map[string]string{
			"email":        testEmail,
			"code":         code,
			"new_password": "brand-new-password",
		})
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)

		// New password works, replayed code does not.
		loginReq := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"email":    testEmail,
			"password": "brand-new-password",
		})
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, loginReq), http.StatusOK)

		replay := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/reset-password", map[string]string{
			"email":        testEmail,
			"code":         code,
			"new_password": "yet-another-password",
		})
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, replay),
			http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}
