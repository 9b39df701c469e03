package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizchat/bizchat-api/internal/repository"
	"github.com/bizchat/bizchat-api/internal/session"
	"github.com/bizchat/bizchat-api/internal/usecase"
	"github.com/bizchat/bizchat-api/shared/auth"
	"github.com/bizchat/bizchat-api/shared/provider"
	"github.com/bizchat/bizchat-api/shared/validator"
)

type stubProvider struct {
	identity *provider.ExternalIdentity
	err      error
}

func (p *stubProvider) Authenticate(_ context.Context, _ string) (*provider.ExternalIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

type testEnv struct {
	router   chi.Router
	repo     *repository.MemoryUserRepository
	provider *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	repo := repository.NewMemoryUserRepository()
	accountUsecase := usecase.NewAccountUsecase(repo, nil, &logger)

	jwtAuth := auth.NewJWTAuthenticator("test-secret", "bizchat-api", "bizchat-api")
	sessions := session.NewIssuer(jwtAuth, repo, "bizchat-api", 30*24*time.Hour, &logger)

	validate, err := validator.New()
	require.NoError(t, err)

	stub := &stubProvider{
		identity: &provider.ExternalIdentity{
			ID:        "google-subject-1",
			Email:     "owner@acme.test",
			FullName:  "Acme Owner",
			AvatarURL: "https://lh3.example/avatar.png",
		},
	}

	h := NewAccountHandler(accountUsecase, stub, sessions, validate, &logger)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	return &testEnv{router: r, repo: repo, provider: stub}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signIn(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/callback/google", "", map[string]string{"idToken": "stub"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp signInResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGoogleCallbackEstablishesSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/callback/google", "", map[string]string{"idToken": "stub"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[signInResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "google-subject-1", resp.User.ID)
	assert.Equal(t, session.ScreenCompleteProfile, resp.Redirect)
}

func TestGoogleCallbackRefusedOnProviderRejection(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = provider.ErrInvalidGoogleToken

	rec := env.do(t, http.MethodPost, "/api/auth/callback/google", "", map[string]string{"idToken": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleCallbackRefusedOnStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.Err = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/auth/callback/google", "", map[string]string{"idToken": "stub"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/session"},
		{http.MethodPost, "/api/auth/complete-profile"},
		{http.MethodPost, "/api/auth/resend-verification"},
		{http.MethodPost, "/api/auth/verify-email"},
	}

	for _, p := range paths {
		rec := env.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p.path)
	}
}

func TestCompleteProfileValidatesFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short phone", map[string]string{"phone": "12345", "role": "customer"}},
		{"missing role", map[string]string{"phone": "1234567890"}},
		{"unknown role", map[string]string{"phone": "1234567890", "role": "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/complete-profile", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFullLifecycleFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	// Complete the profile: the fresh code is echoed for the email-less
	// deployment.
	rec := env.do(t, http.MethodPost, "/api/auth/complete-profile", token, map[string]string{
		"phone": "1234567890",
		"role":  "customer",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	completed := decodeBody[verificationResponse](t, rec)
	assert.Equal(t, "Profile updated successfully", completed.Message)
	require.Len(t, completed.VerificationCode, 6)

	// The session now routes to the verify screen.
	rec = env.do(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decodeBody[sessionResponse](t, rec)
	assert.Equal(t, session.ScreenVerify, sess.Redirect)

	// A wrong code is rejected.
	wrong := "000000"
	if wrong == completed.VerificationCode {
		wrong = "000001"
	}
	rec = env.do(t, http.MethodPost, "/api/auth/verify-email", token, map[string]string{"code": wrong})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Resend supersedes the first code.
	rec = env.do(t, http.MethodPost, "/api/auth/resend-verification", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resent := decodeBody[verificationResponse](t, rec)
	assert.Equal(t, "Verification code sent", resent.Message)

	if completed.VerificationCode != resent.VerificationCode {
		rec = env.do(t, http.MethodPost, "/api/auth/verify-email", token, map[string]string{
			"code": completed.VerificationCode,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	// The latest code verifies the account.
	rec = env.do(t, http.MethodPost, "/api/auth/verify-email", token, map[string]string{
		"code": resent.VerificationCode,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", decodeBody[messageResponse](t, rec).Message)

	// Verification is visible on the very next session materialization.
	rec = env.do(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess = decodeBody[sessionResponse](t, rec)
	assert.True(t, sess.Session.Verified)
	assert.Equal(t, session.ScreenDashboard, sess.Redirect)

	// Replaying the consumed code and resending are informational successes.
	rec = env.do(t, http.MethodPost, "/api/auth/verify-email", token, map[string]string{
		"code": resent.VerificationCode,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email already verified", decodeBody[messageResponse](t, rec).Message)

	rec = env.do(t, http.MethodPost, "/api/auth/resend-verification", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email already verified", decodeBody[messageResponse](t, rec).Message)
}

func TestVerifyEmailRejectsMalformedCode(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	rec := env.do(t, http.MethodPost, "/api/auth/verify-email", token, map[string]string{"code": "1234"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreFailureMapsToServiceUnavailable(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t)

	env.repo.Err = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/auth/complete-profile", token, map[string]string{
		"phone": "1234567890",
		"role":  "customer",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Database not configured", decodeBody[messageResponse](t, rec).Message)
}
