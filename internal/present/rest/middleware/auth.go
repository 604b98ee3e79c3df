package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/metacatalog/internal/config"
	"github.com/totegamma/metacatalog/internal/domain"
)

var tracer = otel.Tracer("auth")

const defaultLang = "eng"

type authenticator interface {
	AuthJwt(ctx context.Context, token string) (*domain.User, error)
}

type AuthMiddleware struct {
	auth     authenticator
	nodeInfo config.NodeInfo
}

func NewAuthMiddleware(
	auth authenticator,
	nodeInfo config.NodeInfo,
) *AuthMiddleware {
	return &AuthMiddleware{
		auth:     auth,
		nodeInfo: nodeInfo,
	}
}

// IdentifyIdentity attaches a session to every request. Requests without a
// valid bearer token get an anonymous session.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		session := &domain.Session{
			IP:     c.RealIP(),
			Lang:   languageOf(c.Request().Header.Get(domain.LanguageHeader)),
			NodeID: s.nodeInfo.NodeID,
		}

		authHeader := c.Request().Header.Get(domain.AuthorizationHeader)

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}

			authType, token := split[0], split[1]
			if authType != "Bearer" {
				span.RecordError(fmt.Errorf("only Bearer is acceptable"))
				goto skipCheckAuthorization
			}

			user, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
				goto skipCheckAuthorization
			}

			session.User = user
			span.SetAttributes(attribute.Int64("RequesterId", int64(user.ID)))
		}

	skipCheckAuthorization:
		ctx = domain.WithSession(ctx, session)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// languageOf picks the first language tag of an Accept-Language header.
func languageOf(header string) string {
	tag := strings.TrimSpace(strings.Split(header, ",")[0])
	tag = strings.TrimSpace(strings.Split(tag, ";")[0])
	if tag == "" || tag == "*" {
		return defaultLang
	}
	return tag
}
