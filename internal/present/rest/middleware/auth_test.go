package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/metacatalog/internal/config"
	"github.com/totegamma/metacatalog/internal/domain"
)

type mockAuth struct{}

func (mockAuth) AuthJwt(ctx context.Context, token string) (*domain.User, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &domain.User{ID: 5, Profile: domain.ProfileEditor}, nil
}

func serve(t *testing.T, header string) *domain.Session {
	t.Helper()
	mw := NewAuthMiddleware(mockAuth{}, config.NodeInfo{NodeID: "srv"})
	e := echo.New()

	var session *domain.Session
	e.GET("/", mw.IdentifyIdentity(func(c echo.Context) error {
		session = domain.SessionFrom(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	req.Header.Set("Accept-Language", "fre,en;q=0.8")
	e.ServeHTTP(httptest.NewRecorder(), req)

	if session == nil {
		t.Fatalf("session must always be attached")
	}
	return session
}

func TestIdentifyIdentity(t *testing.T) {
	session := serve(t, "Bearer good")
	if !session.Authenticated() || session.User.ID != 5 {
		t.Fatalf("expected user 5, got %+v", session.User)
	}
	if session.Lang != "fre" || session.NodeID != "srv" {
		t.Fatalf("unexpected session %+v", session)
	}

	for _, header := range []string{"", "Bearer bad", "Basic good", "Bearer"} {
		if serve(t, header).Authenticated() {
			t.Fatalf("header %q must leave the request anonymous", header)
		}
	}
}

func TestLanguageOf(t *testing.T) {
	if languageOf("") != "eng" || languageOf("*") != "eng" {
		t.Fatalf("missing language defaults to eng")
	}
	if languageOf("de-CH;q=0.9, fr") != "de-CH" {
		t.Fatalf("first tag wins")
	}
}
