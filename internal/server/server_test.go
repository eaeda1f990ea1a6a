package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/inkwell-ai/inkwell/internal/auth/domain"
	"github.com/inkwell-ai/inkwell/internal/auth/session"
	"github.com/inkwell-ai/inkwell/internal/config"
	contentdomain "github.com/inkwell-ai/inkwell/internal/content/domain"
	creditdomain "github.com/inkwell-ai/inkwell/internal/credit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccountID = snowflake.ID(4242)

type fakeAuthService struct {
	signupErr   error
	loginErr    error
	authErr     error
	logoutCalls int
}

func (f *fakeAuthService) Signup(ctx context.Context, req authdomain.SignupRequest) (*authdomain.SignupResult, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	account := &authdomain.Account{ID: testAccountID, Email: req.Email, Credits: 10}
	return &authdomain.SignupResult{
		Account: account,
		Login: &authdomain.LoginResult{
			Account:   account.View(),
			RawToken:  "fresh-token",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	account := &authdomain.Account{ID: testAccountID, Email: req.Email, Credits: 10}
	return &authdomain.LoginResult{
		Account:   account.View(),
		RawToken:  "fresh-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	f.logoutCalls++
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	if rawToken != "valid-token" {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{AccountID: testAccountID}, nil
}

func (f *fakeAuthService) AccountByID(ctx context.Context, id snowflake.ID) (*authdomain.Account, error) {
	return &authdomain.Account{ID: id, Email: "someone@example.com", Credits: 10}, nil
}

type fakeContentService struct {
	generateResult *contentdomain.GenerateResult
	generateErr    error
	artifacts      []contentdomain.Artifact
	deleteErr      error
	lastRequest    contentdomain.GenerateRequest
}

func (f *fakeContentService) Generate(ctx context.Context, req contentdomain.GenerateRequest) (*contentdomain.GenerateResult, error) {
	f.lastRequest = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generateResult, nil
}

func (f *fakeContentService) History(ctx context.Context, ownerID snowflake.ID) ([]contentdomain.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeContentService) Delete(ctx context.Context, ownerID, artifactID snowflake.ID) error {
	return f.deleteErr
}

type fakeCreditStore struct {
	balance    int64
	balanceErr error
}

func (f *fakeCreditStore) Balance(ctx context.Context, accountID snowflake.ID) (int64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeCreditStore) ConditionalDebit(ctx context.Context, accountID snowflake.ID, amount, expected int64) error {
	return nil
}

func (f *fakeCreditStore) Grant(ctx context.Context, accountID snowflake.ID, amount int64) error {
	return nil
}

type testHarness struct {
	server  *Server
	auth    *fakeAuthService
	content *fakeContentService
	credits *fakeCreditStore
}

func newTestServer(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	auth := &fakeAuthService{}
	content := &fakeContentService{
		generateResult: &contentdomain.GenerateResult{
			Artifact: &contentdomain.Artifact{
				ID:      snowflake.ID(7),
				OwnerID: testAccountID,
				Body:    "generated body",
				Cost:    2,
			},
			Cost:             2,
			RemainingCredits: 8,
		},
	}
	credits := &fakeCreditStore{balance: 10}

	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        config.Config{},
		Authsvc:    auth,
		Contentsvc: content,
		Credits:    credits,
		Sessions:   session.NewManager(config.Config{}),
		GenID:      node,
	})

	return &testHarness{server: srv, auth: auth, content: content, credits: credits}
}

func (h *testHarness) do(t *testing.T, method, path string, body any, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "valid-token"})
	}

	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)
	return rec
}

func validGenerateBody() map[string]string {
	return map[string]string{
		"contentType": "blog-post",
		"topic":       "urban beekeeping",
		"tone":        "friendly",
		"length":      "medium",
	}
}

func TestGenerateRequiresSession(t *testing.T) {
	h := newTestServer(t)

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateRejectsStaleCookie(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/content/generate", bytes.NewBufferString("{}"))
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "expired-token"})
	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateHappyPath(t *testing.T) {
	h := newTestServer(t)

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated body", resp.Content)
	assert.Equal(t, int64(2), resp.Cost)
	assert.Equal(t, int64(8), resp.RemainingCredits)
	assert.False(t, resp.DebitPending)

	// Identity comes from the session, not the payload.
	assert.Equal(t, testAccountID, h.content.lastRequest.OwnerID)
}

func TestGenerateDebitPendingStillSucceeds(t *testing.T) {
	h := newTestServer(t)
	h.content.generateResult.DebitPending = true
	h.content.generateResult.RemainingCredits = 10

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.DebitPending)
}

func TestGenerateValidationError(t *testing.T) {
	h := newTestServer(t)
	h.content.generateErr = &contentdomain.ValidationError{Fields: []string{"topic"}}

	rec := h.do(t, http.MethodPost, "/api/content/generate", map[string]string{"length": "short"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
	assert.Contains(t, rec.Body.String(), "topic")
}

func TestGenerateInsufficientCredits(t *testing.T) {
	h := newTestServer(t)
	h.content.generateErr = &contentdomain.InsufficientCreditsError{Required: 3, Available: 1}

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_credits", resp.Error.Type)
	assert.Equal(t, int64(3), resp.Error.Required)
	assert.Equal(t, int64(1), resp.Error.Available)
}

func TestGenerateProviderFailure(t *testing.T) {
	h := newTestServer(t)
	h.content.generateErr = contentdomain.ErrGenerationFailed

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGeneratePersistenceFailure(t *testing.T) {
	h := newTestServer(t)
	h.content.generateErr = contentdomain.ErrPersistenceFailed

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistory(t *testing.T) {
	h := newTestServer(t)
	h.content.artifacts = []contentdomain.Artifact{
		{ID: snowflake.ID(2), OwnerID: testAccountID, Body: "newer"},
		{ID: snowflake.ID(1), OwnerID: testAccountID, Body: "older"},
	}

	rec := h.do(t, http.MethodGet, "/api/content/history", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Content []contentdomain.Artifact `json:"content"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "newer", resp.Content[0].Body)
}

func TestDeleteArtifactNotOwned(t *testing.T) {
	h := newTestServer(t)
	h.content.deleteErr = contentdomain.ErrArtifactNotFound

	rec := h.do(t, http.MethodDelete, "/api/content/12345", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteArtifactBadID(t *testing.T) {
	h := newTestServer(t)

	rec := h.do(t, http.MethodDelete, "/api/content/not-a-number", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredits(t *testing.T) {
	h := newTestServer(t)
	h.credits.balance = 7

	rec := h.do(t, http.MethodGet, "/api/user/credits", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credits": 7}`, rec.Body.String())
}

func TestCreditsUnknownAccount(t *testing.T) {
	h := newTestServer(t)
	h.credits.balanceErr = creditdomain.ErrAccountNotFound

	rec := h.do(t, http.MethodGet, "/api/user/credits", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupSetsSessionCookie(t *testing.T) {
	h := newTestServer(t)

	rec := h.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "new@example.com",
		"password": "strong-password",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "fresh-token", cookies[0].Value)
}

func TestSignupConflict(t *testing.T) {
	h := newTestServer(t)
	h.auth.signupErr = authdomain.ErrAccountExists

	rec := h.do(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":    "taken@example.com",
		"password": "strong-password",
	}, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newTestServer(t)
	h.auth.loginErr = authdomain.ErrInvalidCredentials

	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.auth.logoutCalls)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMe(t *testing.T) {
	h := newTestServer(t)

	rec := h.do(t, http.MethodGet, "/auth/me", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "someone@example.com")
}

func TestUnexpectedErrorsAreOpaque(t *testing.T) {
	h := newTestServer(t)
	h.content.generateErr = errors.New("sql: connection reset")

	rec := h.do(t, http.MethodPost, "/api/content/generate", validGenerateBody(), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sql:")
}
