package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rahat/lenslock/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func (e *testEnv) doAuth(fn http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	fn(rr, req)
	return rr
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	t.Run("creates the account and sets the session cookie", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.doAuth(env.auths.HandleRegister, "/auth/register",
			`{"email":"New@Example.com","password":"hunter2-secure","isCreator":true}`)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "new@example.com", user.Email)
		assert.True(t, user.IsCreator)
		assert.Equal(t, int64(0), user.TokenBalance)

		cookie := sessionCookie(rr)
		require.NotNil(t, cookie, "register should set a session cookie")
		assert.True(t, cookie.HttpOnly)

		// The password hash must never appear in the response body.
		assert.NotContains(t, rr.Body.String(), "password")

		// The issued token must authenticate against protected routes.
		rrBal := env.doWallet(cookie, http.MethodGet, "/api/wallet", "")
		assert.Equal(t, http.StatusOK, rrBal.Code)
	})

	t.Run("duplicate email is a 409", func(t *testing.T) {
		env := newTestEnv(t)
		body := `{"email":"dup@example.com","password":"hunter2-secure"}`

		rr := env.doAuth(env.auths.HandleRegister, "/auth/register", body)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = env.doAuth(env.auths.HandleRegister, "/auth/register", body)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("short password is a 400", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.doAuth(env.auths.HandleRegister, "/auth/register",
			`{"email":"a@example.com","password":"short"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doAuth(env.auths.HandleRegister, "/auth/register",
		`{"email":"who@example.com","password":"hunter2-secure"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("correct credentials", func(t *testing.T) {
		rr := env.doAuth(env.auths.HandleLogin, "/auth/login",
			`{"email":"who@example.com","password":"hunter2-secure"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, sessionCookie(rr))
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := env.doAuth(env.auths.HandleLogin, "/auth/login",
			`{"email":"who@example.com","password":"wrong-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email gets the same error shape", func(t *testing.T) {
		rr := env.doAuth(env.auths.HandleLogin, "/auth/login",
			`{"email":"nobody@example.com","password":"hunter2-secure"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var res struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "unauthorized", res.Error)
	})
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	env.auths.HandleLogout(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}
