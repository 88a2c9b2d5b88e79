package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/idm-forms/pkg/catalog"
	"github.com/tendant/idm-forms/pkg/config"
	"github.com/tendant/idm-forms/pkg/form"
	"github.com/tendant/idm-forms/pkg/ratelimit"
	"github.com/tendant/idm-forms/pkg/submit"
	"github.com/tendant/idm-forms/pkg/validate"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	base := []Option{
		WithUserStore(NewUserStore(BcryptHasher{Cost: bcrypt.MinCost})),
		WithTokenIssuer(NewTokenIssuer("test-secret", "test")),
		WithLaptopStore(NewLaptopStore(SeedLaptops...)),
	}
	srv := NewServer(append(base, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func signup(t *testing.T, ts *httptest.Server, name, email, password string) map[string]any {
	t.Helper()
	resp, body := postJSON(t, ts.URL+SignupPath, form.SignupRequest{Name: name, Email: email, Password: password})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body
}

func TestSignup(t *testing.T) {
	_, ts := newTestServer(t)

	body := signup(t, ts, "Ada", "ada@example.com", "secret1")
	assert.Equal(t, "Ada", body["name"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, body, "PasswordHash")

	tests := []struct {
		name       string
		req        any
		wantStatus int
		wantError  string
	}{
		{"duplicate email", form.SignupRequest{Name: "Ada", Email: "ADA@example.com", Password: "secret1"}, http.StatusConflict, "Email is already registered."},
		{"missing name", form.SignupRequest{Email: "b@example.com", Password: "secret1"}, http.StatusBadRequest, validate.MsgNameRequired},
		{"invalid email", form.SignupRequest{Name: "B", Email: "b@", Password: "secret1"}, http.StatusBadRequest, validate.MsgEmailInvalid},
		{"short password", form.SignupRequest{Name: "B", Email: "b@example.com", Password: "123"}, http.StatusBadRequest, validate.MsgPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, ts.URL+SignupPath, tt.req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, map[string]any{"error": tt.wantError}, body)
		})
	}
}

func TestSignup_MalformedBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+SignupPath, "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t)
	signup(t, ts, "Ada", "ada@example.com", "secret1")

	resp, body := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, TokenType, body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", user["name"])

	resp, body = postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": MsgInvalidCredentials}, body)

	resp, body = postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": MsgInvalidCredentials}, body)

	resp, body = postJSON(t, ts.URL+LoginPath, form.LoginRequest{Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": validate.MsgEmailRequired}, body)
}

func TestLogin_RememberExtendsExpiry(t *testing.T) {
	_, ts := newTestServer(t, WithTokenTTL(time.Hour, 48*time.Hour))
	signup(t, ts, "Ada", "ada@example.com", "secret1")

	expiry := func(remember bool) time.Time {
		_, body := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "secret1", Remember: remember})
		at, err := time.Parse(time.RFC3339Nano, body["expires_at"].(string))
		require.NoError(t, err)
		return at
	}
	short := expiry(false)
	long := expiry(true)
	assert.WithinDuration(t, short.Add(47*time.Hour), long, time.Minute)
}

func TestLogin_RateLimitedPerEmail(t *testing.T) {
	limiter := ratelimit.New(2, time.Hour)
	_, ts := newTestServer(t, WithLoginLimiter(limiter))
	signup(t, ts, "Ada", "ada@example.com", "secret1")

	for i := 0; i < 2; i++ {
		resp, _ := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: " ADA@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Contains(t, body["message"], "Too many attempts")

	resp, _ = postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "other@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe(t *testing.T) {
	_, ts := newTestServer(t)
	signup(t, ts, "Ada", "ada@example.com", "secret1")
	_, body := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	token := body["access_token"].(string)

	req, err := http.NewRequest(http.MethodGet, ts.URL+MePath, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "ada@example.com", me["email"])

	anon, err := http.Get(ts.URL + MePath)
	require.NoError(t, err)
	defer anon.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, anon.StatusCode)
	var anonBody map[string]any
	require.NoError(t, json.NewDecoder(anon.Body).Decode(&anonBody))
	assert.Equal(t, map[string]any{"message": MsgUnauthorized}, anonBody)
}

func getMe(t *testing.T, ts *httptest.Server, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+MePath, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestMe_InvalidToken(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+MePath, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, MsgUnauthorized, body["message"])
}

func TestMe_RateLimitedPerUser(t *testing.T) {
	_, ts := newTestServer(t, WithUserLimiter(ratelimit.New(2, time.Hour)))
	signup(t, ts, "Ada", "ada@example.com", "secret1")
	signup(t, ts, "Bob", "bob@example.com", "secret1")
	_, ada := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	_, bob := postJSON(t, ts.URL+LoginPath, form.LoginRequest{Email: "bob@example.com", Password: "secret1"})
	adaToken := ada["access_token"].(string)
	bobToken := bob["access_token"].(string)

	for i := 0; i < 2; i++ {
		resp := getMe(t, ts, adaToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}
	resp := getMe(t, ts, adaToken)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, getMe(t, ts, bobToken).StatusCode)
}

func TestLaptops(t *testing.T) {
	_, ts := newTestServer(t)
	client := catalog.NewClient(ts.URL)

	laptops, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SeedLaptops, laptops)

	laptop, err := client.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "XPS 13", laptop.Model)

	resp, err := http.Get(ts.URL + LaptopsPath + "/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, MsgLaptopNotFound, body["message"])
}

func TestLaptops_NonCanonicalIDs(t *testing.T) {
	_, ts := newTestServer(t, WithLaptopStore(NewLaptopStore(
		catalog.Laptop{ID: "007", Brand: "Acme", Model: "Bond", Price: 700},
		catalog.Laptop{ID: "+5", Brand: "Acme", Model: "Plus", Price: 500},
	)))
	client := catalog.NewClient(ts.URL)

	laptops, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, laptops, 2)
	assert.Equal(t, catalog.ID("007"), laptops[0].ID)
	assert.Equal(t, catalog.ID("+5"), laptops[1].ID)

	laptop, err := client.Get(context.Background(), "007")
	require.NoError(t, err)
	assert.Equal(t, "Bond", laptop.Model)
}

func TestForms_AgainstServer(t *testing.T) {
	_, ts := newTestServer(t)
	poster := submit.New(submit.WithBaseURL(ts.URL))
	ctx := context.Background()

	signupForm := form.NewSignupForm(poster)
	for field, value := range map[string]string{
		validate.FieldName:            "Ada",
		validate.FieldEmail:           " ada@example.com ",
		validate.FieldPassword:        "secret1",
		validate.FieldConfirmPassword: "secret1",
	} {
		require.NoError(t, signupForm.UpdateField(field, value))
	}
	require.NoError(t, signupForm.Submit(ctx))
	assert.Equal(t, form.SignupSuccessMessage, signupForm.State().Success)
	assert.Equal(t, form.Values{}, signupForm.Values())

	require.NoError(t, signupForm.UpdateField(validate.FieldName, "Ada"))
	require.NoError(t, signupForm.UpdateField(validate.FieldEmail, "ada@example.com"))
	require.NoError(t, signupForm.UpdateField(validate.FieldPassword, "secret1"))
	require.NoError(t, signupForm.UpdateField(validate.FieldConfirmPassword, "secret1"))
	require.NoError(t, signupForm.Submit(ctx))
	assert.Equal(t, []string{"Email is already registered."}, signupForm.State().Errors)

	var payload any
	loginForm := form.NewLoginForm(poster, form.WithOnSuccess(func(p any) { payload = p }))
	require.NoError(t, loginForm.UpdateField(validate.FieldEmail, "ada@example.com"))
	require.NoError(t, loginForm.UpdateField(validate.FieldPassword, "wrong-password"))
	require.NoError(t, loginForm.Submit(ctx))
	assert.Equal(t, []string{MsgInvalidCredentials}, loginForm.State().Errors)
	assert.Nil(t, payload)

	require.NoError(t, loginForm.UpdateField(validate.FieldPassword, "secret1"))
	require.NoError(t, loginForm.Submit(ctx))
	assert.Empty(t, loginForm.State().Errors)
	require.IsType(t, map[string]any{}, payload)
	assert.Equal(t, TokenType, payload.(map[string]any)["token_type"])
}

func TestLoginLimitFromConfig(t *testing.T) {
	limit, err := LoginLimitFromConfig(config.LoginRateLimitConfig{
		Enabled:         true,
		Capacity:        3,
		RefillPerMinute: 2,
		BucketTTL:       "PT10M",
	})
	require.NoError(t, err)
	assert.Equal(t, LoginLimit{Enabled: true, Capacity: 3, RefillEvery: 30 * time.Second, IdleTTL: 10 * time.Minute}, limit)
	assert.NotNil(t, NewLoginLimiter(limit))

	limit.Enabled = false
	assert.Nil(t, NewLoginLimiter(limit))
}
