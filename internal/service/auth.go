package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/metacatalog/internal/config"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/jwt"
)

var tracer = otel.Tracer("service")

type userFinder interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type AuthService struct {
	config config.NodeInfo
	users  userFinder
}

func NewAuthService(
	config config.NodeInfo,
	users userFinder,
) *AuthService {
	return &AuthService{
		config: config,
		users:  users,
	}
}

// AuthJwt resolves the user a bearer token was issued for.
func (s *AuthService) AuthJwt(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	_, claims, err := jwt.Validate(token, s.config.JwtSecret)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return nil, err
	}

	if s.config.FQDN != "" && claims.Audience != s.config.FQDN {
		err := fmt.Errorf("jwt audience mismatch: expected %s, got %s", s.config.FQDN, claims.Audience)
		span.RecordError(err)
		return nil, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		err = fmt.Errorf("invalid subject %q", claims.Subject)
		span.RecordError(err)
		return nil, err
	}

	user, err := s.users.FindByID(ctx, domain.UserID(id))
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load token user")
	}
	return user, nil
}

// IssueToken creates a bearer token for a user, valid for ttlSeconds.
func (s *AuthService) IssueToken(id domain.UserID, issuedAt, ttlSeconds int64) (string, error) {
	return jwt.Create(jwt.Claims{
		Issuer:         s.config.NodeID,
		Subject:        strconv.FormatInt(int64(id), 10),
		Audience:       s.config.FQDN,
		IssuedAt:       strconv.FormatInt(issuedAt, 10),
		ExpirationTime: strconv.FormatInt(issuedAt+ttlSeconds, 10),
	}, s.config.JwtSecret)
}
