package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/login", loginRequest{Email: testEmail, Password: testPassword}))
	expectStatus(t, rec, http.StatusOK)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("expected %s cookie", sessionCookieName)
	}
	email, ok := ts.auth.verifySessionValue(session.Value)
	if !ok || email != testEmail {
		t.Fatalf("cookie did not verify: %q %v", email, ok)
	}
}

func TestLoginAcceptsForm(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email="+testEmail+"&password="+testPassword))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	for _, creds := range []loginRequest{
		{Email: testEmail, Password: "incorrecta"},
		{Email: "nadie@heynow.test", Password: testPassword},
	} {
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/login", creds))
		expectStatus(t, rec, http.StatusUnauthorized)
	}
}

func TestValidateCredentials(t *testing.T) {
	ts := newTestServer(t)

	ok, err := ts.auth.validateCredentials(context.Background(), testEmail, testPassword)
	if err != nil || !ok {
		t.Fatalf("expected valid credentials, got %v, %v", ok, err)
	}
}

func TestVerifySessionValueRejectsTampering(t *testing.T) {
	auth := newAuthService(nil, "", "secret")
	value := auth.createSessionValue(testEmail)

	if _, ok := auth.verifySessionValue(value); !ok {
		t.Fatalf("expected own cookie to verify")
	}

	other := newAuthService(nil, "", "other-secret")
	if _, ok := other.verifySessionValue(value); ok {
		t.Fatalf("expected cookie signed with another secret to fail")
	}

	payload, signature, _ := strings.Cut(value, ".")
	for _, bad := range []string{"", payload, payload + ".zz", "a." + signature, value + ".x"} {
		if _, ok := auth.verifySessionValue(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
	expectStatus(t, rec, http.StatusOK)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", cookies)
	}
}

func TestSessionForUnknownUserIsRejected(t *testing.T) {
	ts := newTestServer(t)

	for _, auth := range []*authService{ts.auth, newAuthService(nil, "", "")} {
		req := httptest.NewRequest(http.MethodGet, "/api/quotes/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: auth.createSessionValue("nobody@evil.test")})
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		expectStatus(t, rec, http.StatusUnauthorized)
	}
}

func TestResolveSessionSecret(t *testing.T) {
	if _, err := resolveSessionSecret("", false); !errors.Is(err, errMissingSessionSecret) {
		t.Fatalf("expected errMissingSessionSecret, got %v", err)
	}

	got, err := resolveSessionSecret("configured", false)
	if err != nil || got != "configured" {
		t.Fatalf("got %q, %v", got, err)
	}

	first, err := resolveSessionSecret("", true)
	if err != nil || len(first) != 64 {
		t.Fatalf("dev secret = %q, %v", first, err)
	}
	second, _ := resolveSessionSecret("", true)
	if first == second {
		t.Fatalf("dev secrets should be random")
	}
}
