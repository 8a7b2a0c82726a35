package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirbutik/backend/internal/domain"
)

func login(t *testing.T, ta testAPI, username string, password string) string {
	t.Helper()
	rec, env := ta.do(t, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: username, Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	var resp domain.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestAuthManagerHashesPlainPasswords(t *testing.T) {
	auth, err := NewAuthManager(strings.Repeat("k", 32), time.Hour, []User{
		{Username: " Admin ", Password: "rahasia-admin", Role: RoleAdmin},
	})
	require.NoError(t, err)

	cred, ok := auth.users["admin"]
	require.True(t, ok)
	assert.True(t, isPasswordHash(cred.password))

	resp, err := auth.Login(domain.LoginRequest{Username: "ADMIN", Password: "rahasia-admin"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resp.Role)

	actor, err := auth.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{Username: "admin", Role: RoleAdmin}, actor)

	_, err = auth.Login(domain.LoginRequest{Username: "admin", Password: "salah"})
	assert.ErrorIs(t, err, errInvalidCredentials)
}

func TestAuthManagerRejectsExpiredAndForeignTokens(t *testing.T) {
	auth, err := NewAuthManager(strings.Repeat("k", 32), time.Minute, []User{
		{Username: "kasir", Password: mustHashPassword(t, "kasir-pass"), Role: RoleCashier},
	})
	require.NoError(t, err)

	issued := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	resp, err := auth.Login(domain.LoginRequest{Username: "kasir", Password: "kasir-pass"})
	require.NoError(t, err)

	auth.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = auth.ParseToken(resp.AccessToken)
	assert.Error(t, err)

	other, err := NewAuthManager(strings.Repeat("z", 32), time.Hour, nil)
	require.NoError(t, err)
	other.now = func() time.Time { return issued }
	_, err = other.ParseToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestDisabledAuthLetsRequestsThrough(t *testing.T) {
	ta := newTestAPI(t)
	rec, _ := ta.do(t, http.MethodGet, "/api/products", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ta.do(t, http.MethodPost, "/api/auth/login", domain.LoginRequest{Username: "admin", Password: "x"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesRequireToken(t *testing.T) {
	ta := newAuthTestAPI(t)

	rec, _ := ta.do(t, http.MethodGet, "/api/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ta.do(t, http.MethodGet, "/api/products", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ta.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCashierCannotMutateCatalog(t *testing.T) {
	ta := newAuthTestAPI(t)
	cashier := login(t, ta, "kasir", "kasir-pass")
	admin := login(t, ta, "admin", "admin-pass")

	rec, _ := ta.do(t, http.MethodGet, "/api/products", nil, cashier)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ta.do(t, http.MethodPut, "/api/products/BTK-001", map[string]any{"selling_price": 1}, cashier)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = ta.do(t, http.MethodPost, "/api/reports/pdf", nil, cashier)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = ta.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"items":          []map[string]any{{"sku": "BTK-005", "qty": 1}},
		"payment_method": "cash",
	}, cashier)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := ta.do(t, http.MethodPut, "/api/products/BTK-001", map[string]any{"selling_price": 160000}, admin)
	assert.Equal(t, http.StatusOK, rec.Code, env.Error)
}
